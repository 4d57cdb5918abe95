// Package render provides terminal output formatting for the REPL.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/grahamg/ai-git/internal/session"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. With pretty off, output is plain text.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// OK formats a success line.
func (r *Renderer) OK(msg string) string {
	if r.pretty {
		return color.GreenString("✓ ") + msg
	}
	return msg
}

// Fail formats a failure line.
func (r *Renderer) Fail(msg string) string {
	if r.pretty {
		return color.RedString("✗ ") + msg
	}
	return "error: " + msg
}

// Diff colorizes a unified diff for review.
func (r *Renderer) Diff(diff string) string {
	if diff == "" {
		return "No changes to review"
	}
	if !r.pretty {
		return diff
	}

	var sb strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(color.GreenString(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(color.RedString(line))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(color.CyanString(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Context formats the structural patterns and context files.
func (r *Renderer) Context(patterns, files []string) string {
	var sb strings.Builder

	r.heading(&sb, "Structural files:")
	for _, p := range patterns {
		fmt.Fprintf(&sb, "  - %s\n", p)
	}

	r.heading(&sb, "\nContext files:")
	if len(files) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, f := range files {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// History formats the session change records.
func (r *Renderer) History(records []session.ChangeRecord) string {
	if len(records) == 0 {
		return "No changes recorded yet"
	}

	var sb strings.Builder
	for _, rec := range records {
		ts := rec.Timestamp.Format("2006-01-02 15:04:05")
		commit := rec.CommitID
		if commit == "" {
			commit = "(uncommitted)"
		} else if len(commit) > 8 {
			commit = commit[:8]
		}

		if r.pretty {
			fmt.Fprintf(&sb, "%s %s %s\n", color.HiBlackString(ts), color.YellowString(commit), rec.Prompt)
		} else {
			fmt.Fprintf(&sb, "[%s] %s %s\n", ts, commit, rec.Prompt)
		}
		for _, fc := range rec.ChangedFiles {
			fmt.Fprintf(&sb, "    %s (%s)\n", fc.Path, fc.Status)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Edits summarizes parsed edits before they are applied.
func (r *Renderer) Edits(edits map[string]string) string {
	paths := make([]string, 0, len(edits))
	for p := range edits {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d file(s) to write:\n", len(edits))
	for _, path := range paths {
		fmt.Fprintf(&sb, "  - %s (%d bytes)\n", path, len(edits[path]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r *Renderer) heading(sb *strings.Builder, text string) {
	if r.pretty {
		sb.WriteString(color.CyanString(text) + "\n")
	} else {
		sb.WriteString(text + "\n")
	}
}
