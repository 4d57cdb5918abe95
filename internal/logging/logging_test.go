package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestLoggerContext(t *testing.T) {
	logger := New("lifecycle").WithRepo("/repo").WithBranch("feat-x")

	if logger.component != "lifecycle" {
		t.Errorf("expected component 'lifecycle', got '%s'", logger.component)
	}
	if logger.repo != "/repo" {
		t.Errorf("expected repo '/repo', got '%s'", logger.repo)
	}
	if logger.branch != "feat-x" {
		t.Errorf("expected branch 'feat-x', got '%s'", logger.branch)
	}
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	logger := New("session").WithBranch("feat-x")
	logger.Info("session_saved", map[string]interface{}{"records": 2})

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}

	if parsed["level"] != "info" {
		t.Errorf("expected level 'info', got '%v'", parsed["level"])
	}
	if parsed["component"] != "session" {
		t.Errorf("expected component 'session', got '%v'", parsed["component"])
	}
	if parsed["branch"] != "feat-x" {
		t.Errorf("expected branch 'feat-x', got '%v'", parsed["branch"])
	}
	if parsed["extra"].(map[string]interface{})["records"].(float64) != 2 {
		t.Errorf("expected records 2, got '%v'", parsed["extra"])
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetDebug(false)
	New("parser").Debug("segment_skipped", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got '%s'", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	New("parser").Debug("segment_skipped", nil)
	if buf.Len() == 0 {
		t.Error("expected debug output when enabled")
	}
}

func TestTimedEventDuration(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	start := time.Now().Add(-50 * time.Millisecond)
	New("ollama").TimedEvent("generate", start, nil)

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	if parsed["duration_ms"].(float64) < 50 {
		t.Errorf("expected duration_ms >= 50, got '%v'", parsed["duration_ms"])
	}
}
