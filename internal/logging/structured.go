// Package logging provides structured JSON logging for aigit components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Event     string                 `json:"event"`
	Repo      string                 `json:"repo,omitempty"`
	Branch    string                 `json:"branch,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

var (
	outMu  sync.Mutex
	out    io.Writer = os.Stderr
	debugs bool
)

// SetOutput redirects log output (used by tests).
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// SetDebug enables debug-level events.
func SetDebug(enabled bool) {
	debugs = enabled
}

// Logger provides structured logging scoped to a component.
type Logger struct {
	component string
	repo      string
	branch    string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithRepo sets the repository context
func (l *Logger) WithRepo(repo string) *Logger {
	return &Logger{component: l.component, repo: repo, branch: l.branch}
}

// WithBranch sets the branch context
func (l *Logger) WithBranch(branch string) *Logger {
	return &Logger{component: l.component, repo: l.repo, branch: branch}
}

// log emits a structured log event
func (l *Logger) log(level Level, event string, extra map[string]interface{}, err error) {
	if level == LevelDebug && !debugs {
		return
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Event:     event,
		Repo:      l.repo,
		Branch:    l.branch,
		Extra:     extra,
	}

	if err != nil {
		e.Error = err.Error()
	}

	data, _ := json.Marshal(e)
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(data))
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.log(LevelDebug, event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.log(LevelInfo, event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.log(LevelError, event, extra, err)
}

// TimedEvent logs an info event with its duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: l.component,
		Event:     event,
		Repo:      l.repo,
		Branch:    l.branch,
		Duration:  time.Since(start).Milliseconds(),
		Extra:     extra,
	}

	data, _ := json.Marshal(e)
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(data))
}
