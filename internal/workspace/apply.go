package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grahamg/ai-git/internal/session"
)

// ApplyError reports a failed batch apply: the path that failed and the
// files already written before the failure. Written files are not
// reverted; version control is the recovery mechanism.
type ApplyError struct {
	Path    string
	Written []string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v (%d file(s) already written)", e.Path, e.Err, len(e.Written))
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Apply writes each edit as a full file replacement, creating parent
// directories as needed. Edits are applied in sorted path order so a
// partial failure is reproducible. The first I/O failure aborts the
// batch. Returned FileChanges record whether each file was created or
// modified, for provenance.
func Apply(root string, edits map[string]string) ([]session.FileChange, error) {
	paths := make([]string, 0, len(edits))
	for p := range edits {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []session.FileChange
	for _, path := range paths {
		rel, err := confine(path)
		if err != nil {
			return changes, &ApplyError{Path: path, Written: changedPaths(changes), Err: err}
		}

		full := filepath.Join(root, rel)
		status := "modified"
		if _, err := os.Stat(full); os.IsNotExist(err) {
			status = "created"
		}

		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return changes, &ApplyError{Path: path, Written: changedPaths(changes), Err: err}
		}
		if err := os.WriteFile(full, []byte(edits[path]), 0o644); err != nil {
			return changes, &ApplyError{Path: path, Written: changedPaths(changes), Err: err}
		}

		changes = append(changes, session.FileChange{Path: rel, Status: status})
	}
	return changes, nil
}

// confine rejects paths that would escape the repository root.
func confine(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path not allowed")
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes repository")
	}
	return clean, nil
}

func changedPaths(changes []session.FileChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}
