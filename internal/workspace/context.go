// Package workspace reads and writes the repository working tree: it
// assembles the text context sent to the generation backend and applies
// parsed edits back to disk.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/grahamg/ai-git/internal/logging"
	"github.com/grahamg/ai-git/internal/session"
)

// ErrNoActiveSession is returned when context is requested without a
// session. It is the only fatal condition in context assembly; every
// per-file problem is a soft skip.
var ErrNoActiveSession = errors.New("no active session")

// File is one context block: a repository-relative path and its content.
type File struct {
	Path    string
	Content string
}

var log = logging.New("workspace")

// StructuralFiles finds files matching the structural patterns anywhere
// under the repository root, in discovery order. Unreadable files are
// skipped, not fatal. The .git directory is never searched.
func StructuralFiles(root string, patterns []string) []File {
	var (
		files []File
		seen  = make(map[string]bool)
	)

	fsys := os.DirFS(root)
	for _, pattern := range patterns {
		_ = doublestar.GlobWalk(fsys, "**/"+pattern, func(path string, d fs.DirEntry) error {
			if d.IsDir() || seen[path] {
				return nil
			}
			if path == ".git" || strings.HasPrefix(path, ".git/") {
				return nil
			}
			seen[path] = true

			data, err := os.ReadFile(filepath.Join(root, path))
			if err != nil {
				log.Warn("structural_file_unreadable", map[string]interface{}{"path": path}, err)
				return nil
			}
			files = append(files, File{Path: path, Content: string(data)})
			return nil
		})
	}
	return files
}

// BuildContext concatenates structural files and the session's context
// files into the labeled text sent to the backend. Structural files come
// first in discovery order, then context files in sorted order. Context
// files missing from disk are skipped.
func BuildContext(sess *session.Session, root string, patterns []string) (string, error) {
	if sess == nil {
		return "", ErrNoActiveSession
	}

	var parts []string
	for _, f := range StructuralFiles(root, patterns) {
		parts = append(parts, "File: "+f.Path+"\n"+f.Content+"\n")
	}

	for _, path := range sess.ContextFiles {
		data, err := os.ReadFile(filepath.Join(root, path))
		if err != nil {
			log.Warn("context_file_skipped", map[string]interface{}{"path": path}, err)
			continue
		}
		parts = append(parts, "File: "+path+"\n"+string(data)+"\n")
	}

	return strings.Join(parts, "\n"), nil
}
