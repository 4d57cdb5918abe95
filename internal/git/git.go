// Package git wraps the version-control operations the lifecycle depends on.
// Only the git binary's success/failure and text output are consumed; the
// capability is driven through an exec.Runner so it can be mocked in tests.
package git

import (
	"context"
	"strings"

	"github.com/grahamg/ai-git/internal/exec"
)

// Git provides repository operations for a single working tree.
type Git struct {
	dir    string
	runner exec.Runner
}

// New creates a capability bound to a repository directory.
func New(dir string) *Git {
	return NewWithRunner(dir, exec.NewOSRunner())
}

// NewWithRunner creates a capability with an injected runner (for tests).
func NewWithRunner(dir string, r exec.Runner) *Git {
	return &Git{dir: dir, runner: r}
}

// Dir returns the working tree path the capability is bound to.
func (g *Git) Dir() string {
	return g.dir
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, g.dir, "git", args...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, &CommandError{Args: args, Output: text, Err: err}
	}
	return text, nil
}

// RepoRoot resolves the top-level directory of the repository.
func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--show-toplevel")
}

// CurrentBranch returns the name of the checked-out branch.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists reports whether a local branch with the given name exists.
func (g *Git) BranchExists(ctx context.Context, name string) bool {
	_, err := g.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// CreateBranch creates and checks out a new branch.
// Fails with ErrBranchExists if the name is already taken.
func (g *Git) CreateBranch(ctx context.Context, name string) error {
	if g.BranchExists(ctx, name) {
		return ErrBranchExists
	}
	_, err := g.run(ctx, "checkout", "-b", name)
	return err
}

// DeleteBranch force-deletes a local branch. Used to undo a branch
// creation whose session initialization failed.
func (g *Git) DeleteBranch(ctx context.Context, name string) error {
	_, err := g.run(ctx, "branch", "-D", name)
	return err
}

// Checkout switches the working tree to an existing branch.
func (g *Git) Checkout(ctx context.Context, name string) error {
	_, err := g.run(ctx, "checkout", name)
	return err
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func (g *Git) IsDirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Diff returns the working-tree diff against HEAD.
func (g *Git) Diff(ctx context.Context) (string, error) {
	return g.run(ctx, "diff", "HEAD")
}

// StageAll stages every working-tree change, including untracked files.
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// Commit records the staged changes and returns the new commit hash.
func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	return g.run(ctx, "rev-parse", "HEAD")
}

// HasParent reports whether HEAD has a parent commit.
func (g *Git) HasParent(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD^")
	return err == nil
}

// ResetHardParent discards the last commit by resetting to HEAD^.
// Fails with ErrNoParentCommit on an unborn or root commit.
func (g *Git) ResetHardParent(ctx context.Context) error {
	if !g.HasParent(ctx) {
		return ErrNoParentCommit
	}
	_, err := g.run(ctx, "reset", "--hard", "HEAD^")
	return err
}

// UnmergedFiles lists paths left unmerged by a stopped merge.
func (g *Git) UnmergedFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Merge merges a branch into the current one. A merge stopped on
// conflicting changes is reported as a ConflictError carrying the
// unmerged paths; the conflict signal comes from the index, not from
// matching the tool's error text.
func (g *Git) Merge(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "merge", branch)
	if err == nil {
		return nil
	}
	if files, uerr := g.UnmergedFiles(ctx); uerr == nil && len(files) > 0 {
		return &ConflictError{Branch: branch, Files: files}
	}
	return err
}

// MergeAbort abandons an in-progress merge and restores the pre-merge state.
func (g *Git) MergeAbort(ctx context.Context) error {
	_, err := g.run(ctx, "merge", "--abort")
	return err
}
