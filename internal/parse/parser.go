// Package parse turns a generation backend's free-form response into a
// mapping of file path to full replacement content.
//
// The expected shape is zero or more sections, each introduced by a
// "FILE:" marker followed by a path on the same line and a fenced code
// block holding the whole new file. Anything before the first marker is
// treated as an optional explanation. Malformed sections are skipped and
// reported as warnings; they never fail the whole response.
package parse

import (
	"errors"
	"fmt"
	"strings"
)

const (
	marker = "FILE:"
	fence  = "```"
)

// ErrNoChanges indicates the response contained no valid file sections.
var ErrNoChanges = errors.New("no valid changes found in response")

// Result holds the outcome of parsing one backend response.
type Result struct {
	// Explanation is the prose before the first FILE: marker, if any.
	Explanation string

	// Edits maps file path to full replacement content. For duplicate
	// paths the later section wins.
	Edits map[string]string

	// Warnings describe sections that were skipped as malformed.
	Warnings []string
}

// Parse extracts file edits from a backend response. Parsing is pure:
// the same input always yields the same result. It fails only with
// ErrNoChanges, when not a single valid section could be extracted.
func Parse(text string) (*Result, error) {
	res := &Result{Edits: make(map[string]string)}

	idx := strings.Index(text, marker)
	if idx < 0 {
		return nil, ErrNoChanges
	}
	res.Explanation = strings.TrimSpace(text[:idx])

	rest := text[idx:]
	for len(rest) > 0 {
		rest = rest[len(marker):]
		next := strings.Index(rest, marker)
		segment := rest
		if next >= 0 {
			segment = rest[:next]
			rest = rest[next:]
		} else {
			rest = ""
		}
		res.parseSegment(segment)
	}

	if len(res.Edits) == 0 {
		return nil, ErrNoChanges
	}
	return res, nil
}

// parseSegment handles one FILE: section: path on the first line, then a
// fenced block. The content is the text strictly between the end of the
// opening fence line and the last fence token, trimmed.
func (r *Result) parseSegment(segment string) {
	path := segment
	if nl := strings.IndexByte(segment, '\n'); nl >= 0 {
		path = segment[:nl]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		r.warn("section with empty file path")
		return
	}

	open := strings.Index(segment, fence)
	if open < 0 {
		r.warn("%s: missing opening fence", path)
		return
	}

	// The opening fence may carry an info string (```python); content
	// starts on the next line.
	start := strings.IndexByte(segment[open:], '\n')
	if start < 0 {
		r.warn("%s: unterminated fence", path)
		return
	}
	start += open + 1

	end := strings.LastIndex(segment, fence)
	if end < start {
		r.warn("%s: unterminated fence", path)
		return
	}

	r.Edits[path] = strings.TrimSpace(segment[start:end])
}

func (r *Result) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
