package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/grahamg/ai-git/internal/config"
	"github.com/grahamg/ai-git/internal/docs"
	"github.com/grahamg/ai-git/internal/exec"
	"github.com/grahamg/ai-git/internal/git"
	"github.com/grahamg/ai-git/internal/lifecycle"
	"github.com/grahamg/ai-git/internal/parse"
	"github.com/grahamg/ai-git/internal/render"
	"github.com/grahamg/ai-git/internal/session"
)

// repl is the thin interactive front-end over the lifecycle controller.
type repl struct {
	ctl    *lifecycle.Controller
	out    *render.Renderer
	runner exec.Runner
	root   string
	in     *bufio.Reader

	// pending links the last applied prompt to the next commit.
	pendingPrompt  string
	pendingChanges []session.FileChange
}

func runREPL(path string, backend lifecycle.Generator, pretty bool) error {
	ctx := context.Background()

	root, err := git.New(path).RepoRoot(ctx)
	if err != nil {
		return fmt.Errorf("not a git repository: %s", path)
	}

	store, err := session.Open(root)
	if err != nil {
		return err
	}
	defer store.Close()

	ctl := lifecycle.New(root, git.New(root), store, config.NewStore(root), docs.NewLog(root), backend)

	r := &repl{
		ctl:    ctl,
		out:    render.New(pretty),
		runner: exec.NewOSRunner(),
		root:   root,
		in:     bufio.NewReader(os.Stdin),
	}

	fmt.Println("Welcome to AI Git Tool")
	fmt.Printf("Repository: %s\n", root)
	if sess := ctl.Session(); sess != nil {
		fmt.Printf("Resumed session on branch %s (%d change(s) recorded)\n",
			sess.Branch, len(sess.ChangeHistory))
	}
	r.showHelp()

	return r.loop(ctx)
}

func (r *repl) loop(ctx context.Context) error {
	for {
		fmt.Print("\nai-git> ")
		line, err := r.in.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		cmd := parts[0]
		args := ""
		if len(parts) > 1 {
			args = strings.TrimSpace(parts[1])
		}

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			r.showHelp()
		case "new-branch":
			r.cmdNewBranch(ctx, args)
		case "prompt":
			r.cmdPrompt(ctx, args)
		case "review":
			r.cmdReview(ctx)
		case "commit":
			r.cmdCommit(ctx, args)
		case "rollback":
			r.cmdRollback(ctx)
		case "merge":
			r.cmdMerge(ctx)
		case "add-context":
			r.cmdAddContext(args)
		case "rm-context":
			r.cmdRmContext(args)
		case "clear-context":
			r.cmdClearContext()
		case "show-context":
			r.cmdShowContext()
		case "history":
			r.cmdHistory()
		case "patterns":
			r.cmdPatterns(args)
		case "clear-session":
			r.cmdClearSession()
		case "shell":
			r.cmdShell(ctx)
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func (r *repl) showHelp() {
	fmt.Println(`
Commands:
  new-branch <name>  - Create new feature branch and start a session
  prompt <text>      - Submit prompt for code changes
  review             - Review pending changes
  commit <msg>       - Commit current changes
  rollback           - Rollback last commit
  merge              - Merge current branch to main
  add-context <file> - Add file to context
  rm-context <file>  - Remove file from context
  clear-context      - Clear current context
  show-context       - Show current context files
  history            - Show session change history
  patterns [p ...]   - Show or replace structural file patterns
  clear-session      - End the session and delete its state
  shell              - Open OS shell in repository
  exit | quit        - Exit
  help               - Show this message`)
}

func (r *repl) fail(err error) {
	fmt.Println(r.out.Fail(err.Error()))
}

func (r *repl) requireSession() bool {
	if !r.ctl.Active() {
		fmt.Println("Error: No active session. Use 'new-branch' first")
		return false
	}
	return true
}

func (r *repl) cmdNewBranch(ctx context.Context, name string) {
	if name == "" {
		fmt.Println("Error: Branch name required")
		return
	}
	if err := r.ctl.CreateBranch(ctx, name); err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Created and switched to branch: " + name))
}

func (r *repl) cmdPrompt(ctx context.Context, text string) {
	if !r.requireSession() {
		return
	}
	if text == "" {
		fmt.Println("Error: Prompt required")
		return
	}

	fmt.Println("Generating...")
	res, err := r.ctl.Generate(ctx, text)
	if err != nil {
		if errors.Is(err, parse.ErrNoChanges) {
			fmt.Println("The response contained no valid file changes.")
			return
		}
		r.fail(err)
		return
	}

	if res.Explanation != "" {
		fmt.Printf("\n%s\n\n", res.Explanation)
	}
	for _, w := range res.Warnings {
		fmt.Println(r.out.Fail("skipped section: " + w))
	}
	fmt.Println(r.out.Edits(res.Edits))

	changes, err := r.ctl.Apply(ctx, res.Edits)
	if err != nil {
		r.fail(err)
		return
	}

	r.pendingPrompt = text
	r.pendingChanges = changes
	fmt.Println(r.out.OK("Changes applied. Use 'review' to inspect changes."))
}

func (r *repl) cmdReview(ctx context.Context) {
	if !r.requireSession() {
		return
	}
	diff, err := r.ctl.Diff(ctx)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.Diff(diff))
	if diff != "" {
		fmt.Println("\nUse 'commit' to save changes or 'rollback' to discard")
	}
}

func (r *repl) cmdCommit(ctx context.Context, message string) {
	if !r.requireSession() {
		return
	}
	if message == "" {
		fmt.Println("Error: Commit message required")
		return
	}

	hash, err := r.ctl.Commit(ctx, message)
	if errors.Is(err, lifecycle.ErrNothingToCommit) {
		fmt.Println("No changes to commit")
		return
	}
	if err != nil {
		r.fail(err)
		return
	}

	// Tie the applied prompt to this commit for provenance.
	if r.pendingPrompt != "" {
		if err := r.ctl.RecordChange(r.pendingPrompt, r.pendingChanges, hash); err != nil {
			r.fail(err)
		}
		r.pendingPrompt = ""
		r.pendingChanges = nil
	}

	fmt.Println(r.out.OK("Changes committed: " + hash))
	fmt.Println("Use 'review' to verify the commit or 'rollback' to undo")
}

func (r *repl) cmdRollback(ctx context.Context) {
	if !r.requireSession() {
		return
	}
	if err := r.ctl.Rollback(ctx); err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Last commit rolled back"))
}

func (r *repl) cmdMerge(ctx context.Context) {
	if !r.requireSession() {
		return
	}

	fmt.Println("\nWARNING: This will merge the current branch to main.")
	if !r.confirm("Are you sure? (yes/no): ") {
		fmt.Println("Merge cancelled")
		return
	}

	err := r.ctl.MergeToMain(ctx)
	if err != nil {
		var conflict *lifecycle.MergeConflictError
		if errors.As(err, &conflict) {
			r.fail(conflict)
			fmt.Println(conflict.Guidance())
			return
		}
		r.fail(err)
		return
	}

	fmt.Println(r.out.OK("Branch " + r.ctl.Session().Branch + " merged to main"))
	fmt.Println("Use 'clear-session' to finish the session")
}

func (r *repl) cmdAddContext(path string) {
	if !r.requireSession() {
		return
	}
	if path == "" {
		fmt.Println("Error: File path required")
		return
	}
	if err := r.ctl.AddContextFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("File not found: %s\n", path)
			return
		}
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Added to context: " + path))
}

func (r *repl) cmdRmContext(path string) {
	if !r.requireSession() {
		return
	}
	if path == "" {
		fmt.Println("Error: File path required")
		return
	}
	removed, err := r.ctl.RemoveContextFile(path)
	if err != nil {
		r.fail(err)
		return
	}
	if !removed {
		fmt.Println("File is not in context")
		fmt.Println("Use 'show-context' to see current context files")
		return
	}
	fmt.Println(r.out.OK("Removed from context: " + path))
}

func (r *repl) cmdClearContext() {
	if !r.requireSession() {
		return
	}
	if err := r.ctl.ClearContext(); err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Context cleared"))
}

func (r *repl) cmdShowContext() {
	if !r.requireSession() {
		return
	}
	fmt.Println(r.out.Context(r.ctl.Patterns(), r.ctl.Session().ContextFiles))
}

func (r *repl) cmdHistory() {
	if !r.requireSession() {
		return
	}
	fmt.Println(r.out.History(r.ctl.History()))
}

func (r *repl) cmdPatterns(args string) {
	if args == "" {
		for _, p := range r.ctl.Patterns() {
			fmt.Printf("  - %s\n", p)
		}
		return
	}
	if err := r.ctl.UpdatePatterns(strings.Fields(args)); err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Structural patterns updated"))
}

func (r *repl) cmdClearSession() {
	if !r.requireSession() {
		return
	}
	if !r.confirm("End the session and delete its state? (yes/no): ") {
		fmt.Println("Cancelled")
		return
	}
	if err := r.ctl.ClearSession(); err != nil {
		r.fail(err)
		return
	}
	fmt.Println(r.out.OK("Session cleared"))
}

func (r *repl) cmdShell(ctx context.Context) {
	if !r.requireSession() {
		return
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "bash"
	}

	fmt.Println("\nEntering shell... (exit or Ctrl-D to return to ai-git)")
	fmt.Printf("Current branch: %s\n", r.ctl.Session().Branch)

	if err := r.runner.Interactive(ctx, r.root, shell); err != nil {
		r.fail(err)
		return
	}
	fmt.Println("\nReturning to ai-git...")
}

// confirm asks a yes/no question. Without a terminal on stdin the answer
// still comes from the input stream, so piped scripts can drive it.
func (r *repl) confirm(prompt string) bool {
	fmt.Print(prompt)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println()
	}
	line, err := r.in.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.ToLower(line)) == "yes"
}
