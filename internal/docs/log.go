// Package docs maintains the human-readable audit trail: one markdown
// table per branch, a row per change. Writes are best-effort; the
// lifecycle never blocks on a failed documentation write.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grahamg/ai-git/internal/session"
)

// Dir is the documentation directory name under the repository root.
const Dir = "ai-tool-docs"

// Log writes per-branch change documentation.
type Log struct {
	dir string
}

// NewLog creates a documentation log rooted at a repository.
func NewLog(repoRoot string) *Log {
	return &Log{dir: filepath.Join(repoRoot, Dir)}
}

func (l *Log) path(branch string) string {
	return filepath.Join(l.dir, branch+".md")
}

// Init starts a fresh document for a branch with the table header.
func (l *Log) Init(branch string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create docs dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# AI-Assisted Changes: %s\n\n", branch)
	b.WriteString("## Change History\n\n")
	b.WriteString("| Timestamp | Prompt | Changes | Commit |\n")
	b.WriteString("|-----------|--------|---------|--------|\n")

	return os.WriteFile(l.path(branch), []byte(b.String()), 0o644)
}

// Append adds one change row to a branch's document. The document is
// initialized first if it does not exist yet.
func (l *Log) Append(branch string, rec session.ChangeRecord) error {
	if _, err := os.Stat(l.path(branch)); os.IsNotExist(err) {
		if err := l.Init(branch); err != nil {
			return err
		}
	}

	summaries := make([]string, 0, len(rec.ChangedFiles))
	for _, fc := range rec.ChangedFiles {
		summaries = append(summaries, fmt.Sprintf("%s (%s)", fc.Path, fc.Status))
	}

	commit := rec.CommitID
	if commit == "" {
		commit = "-"
	}

	row := fmt.Sprintf("| %s | %s | %s | %s |\n",
		rec.Timestamp.Format("2006-01-02 15:04:05"),
		cell(rec.Prompt),
		cell(strings.Join(summaries, "; ")),
		commit,
	)

	f, err := os.OpenFile(l.path(branch), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open doc: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(row); err != nil {
		return fmt.Errorf("append doc: %w", err)
	}
	return nil
}

// cell sanitizes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
