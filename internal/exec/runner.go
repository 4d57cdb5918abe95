// Package exec provides a testable command execution abstraction.
// The git capability and the REPL shell command go through Runner
// instead of calling exec.Command directly.
package exec

import (
	"context"
	"io"
	"os"
	osexec "os/exec"
	"strings"
)

// Runner defines the interface for executing external commands.
// Inject this instead of calling exec.Command directly.
type Runner interface {
	// Run executes a command in a directory and returns combined stdout/stderr.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// RunSeparate executes a command in a directory and returns stdout and
	// stderr separately.
	RunSeparate(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

	// Interactive runs a command wired to the caller's terminal and waits
	// for it to exit.
	Interactive(ctx context.Context, dir, name string, args ...string) error
}

// OSRunner implements Runner using os/exec.
type OSRunner struct {
	// Env overrides environment variables (nil = inherit from parent)
	Env []string

	// Stdin/Stdout/Stderr used by Interactive (nil = process defaults)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewOSRunner creates a new OS-based command runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) command(ctx context.Context, dir, name string, args ...string) *osexec.Cmd {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	return cmd
}

// Run executes a command and returns combined output.
func (r *OSRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return r.command(ctx, dir, name, args...).CombinedOutput()
}

// RunSeparate executes and returns stdout and stderr separately.
func (r *OSRunner) RunSeparate(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := r.command(ctx, dir, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return []byte(stdout.String()), []byte(stderr.String()), err
}

// Interactive runs a command attached to the terminal.
func (r *OSRunner) Interactive(ctx context.Context, dir, name string, args ...string) error {
	cmd := r.command(ctx, dir, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// MockRunner implements Runner for testing.
type MockRunner struct {
	// Calls records every invocation in order.
	Calls []MockCall

	// Responses maps "name arg1 arg2 ..." to a response. When no exact
	// match exists, the bare command name is tried as a fallback.
	Responses map[string]MockResponse
}

// MockCall records a single command invocation.
type MockCall struct {
	Name string
	Args []string
	Dir  string
}

// String renders the call the way Responses keys are written.
func (c MockCall) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// MockResponse defines the response for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse sets the response for a command pattern.
func (m *MockRunner) AddResponse(pattern string, resp MockResponse) {
	m.Responses[pattern] = resp
}

// CallStrings returns every recorded call rendered as "name args...".
func (m *MockRunner) CallStrings() []string {
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.String())
	}
	return out
}

func (m *MockRunner) record(name string, args []string, dir string) MockResponse {
	call := MockCall{Name: name, Args: args, Dir: dir}
	m.Calls = append(m.Calls, call)

	if resp, ok := m.Responses[call.String()]; ok {
		return resp
	}
	if resp, ok := m.Responses[name]; ok {
		return resp
	}
	return MockResponse{}
}

func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	resp := m.record(name, args, dir)
	out := append(append([]byte{}, resp.Stdout...), resp.Stderr...)
	return out, resp.Err
}

func (m *MockRunner) RunSeparate(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	resp := m.record(name, args, dir)
	return resp.Stdout, resp.Stderr, resp.Err
}

func (m *MockRunner) Interactive(ctx context.Context, dir, name string, args ...string) error {
	resp := m.record(name, args, dir)
	return resp.Err
}
