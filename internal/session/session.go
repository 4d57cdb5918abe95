// Package session holds the single unit of in-progress work and its
// durable store. At most one session exists per repository; it is owned
// by the lifecycle controller and survives process restarts.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Session represents a modification session bound to one branch.
type Session struct {
	ID            string
	Branch        string
	ContextFiles  []string // unique, kept sorted
	ChangeHistory []ChangeRecord
	CreatedAt     time.Time
}

// FileChange describes one touched file in a change record.
type FileChange struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "created" or "modified"
}

// ChangeRecord is one provenance entry: prompt, files changed, and the
// commit that followed (empty until one does). Immutable once appended.
type ChangeRecord struct {
	ID           string
	Timestamp    time.Time
	Prompt       string
	ChangedFiles []FileChange
	CommitID     string
}

// New creates a fresh session for a branch.
func New(branch string) *Session {
	return &Session{
		ID:        ulid.Make().String(),
		Branch:    branch,
		CreatedAt: time.Now(),
	}
}

// NewChangeRecord builds a provenance entry for an applied change.
func NewChangeRecord(prompt string, files []FileChange, commitID string) ChangeRecord {
	return ChangeRecord{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Prompt:       prompt,
		ChangedFiles: files,
		CommitID:     commitID,
	}
}

// AddContextFile adds a path to the context set. Returns false if the
// path was already present.
func (s *Session) AddContextFile(path string) bool {
	if s.HasContextFile(path) {
		return false
	}
	s.ContextFiles = append(s.ContextFiles, path)
	sort.Strings(s.ContextFiles)
	return true
}

// RemoveContextFile removes a path from the context set. Returns false
// if the path was not present.
func (s *Session) RemoveContextFile(path string) bool {
	for i, p := range s.ContextFiles {
		if p == path {
			s.ContextFiles = append(s.ContextFiles[:i], s.ContextFiles[i+1:]...)
			return true
		}
	}
	return false
}

// ClearContext drops every context file.
func (s *Session) ClearContext() {
	s.ContextFiles = nil
}

// HasContextFile reports whether a path is in the context set.
func (s *Session) HasContextFile(path string) bool {
	i := sort.SearchStrings(s.ContextFiles, path)
	return i < len(s.ContextFiles) && s.ContextFiles[i] == path
}

// AppendChange appends a record to the history. History is append-only;
// insertion order is chronological.
func (s *Session) AppendChange(rec ChangeRecord) {
	s.ChangeHistory = append(s.ChangeHistory, rec)
}
