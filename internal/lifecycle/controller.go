// Package lifecycle implements the session/change state machine: branch
// creation, context management, generation, apply, commit, rollback and
// merge, with the session persisted across process restarts.
//
// Every operation is all-or-nothing from the repository's perspective:
// preconditions are checked before any mutating action, and a failed
// merge is aborted and the original branch restored. Failures are
// returned as typed errors; nothing here exits the process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grahamg/ai-git/internal/config"
	"github.com/grahamg/ai-git/internal/docs"
	"github.com/grahamg/ai-git/internal/git"
	"github.com/grahamg/ai-git/internal/logging"
	"github.com/grahamg/ai-git/internal/parse"
	"github.com/grahamg/ai-git/internal/session"
	"github.com/grahamg/ai-git/internal/workspace"
)

// mainBranch is the merge target.
const mainBranch = "main"

// promptTemplate frames the user request with the context files and the
// response format the parser understands.
const promptTemplate = `
Based on the following context and request, provide code changes in a structured format.
Each change should be in the format:
FILE: <filepath>
` + "```" + `
<entire file content with changes>
` + "```" + `

Context files:
%s

User request: %s

Respond only with the file changes, using the format specified above.
`

// Generator is the generation backend capability: one prompt in, one
// free-form completion out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Controller owns the session and drives every lifecycle transition.
type Controller struct {
	root    string
	git     *git.Git
	store   *session.Store
	cfg     *config.Store
	docs    *docs.Log
	backend Generator
	log     *logging.Logger

	sess *session.Session
}

// New creates a controller for a repository and restores any persisted
// session.
func New(root string, g *git.Git, store *session.Store, cfg *config.Store, docsLog *docs.Log, backend Generator) *Controller {
	c := &Controller{
		root:    root,
		git:     g,
		store:   store,
		cfg:     cfg,
		docs:    docsLog,
		backend: backend,
		log:     logging.New("lifecycle").WithRepo(root),
	}
	c.sess = store.Load()
	if c.sess != nil {
		c.log = c.log.WithBranch(c.sess.Branch)
	}
	return c
}

// Session returns the active session, or nil.
func (c *Controller) Session() *session.Session {
	return c.sess
}

// Active reports whether a session exists.
func (c *Controller) Active() bool {
	return c.sess != nil
}

// Patterns returns the structural patterns in effect.
func (c *Controller) Patterns() []string {
	return c.cfg.Load().StructuralPatterns
}

// UpdatePatterns replaces the structural pattern list.
func (c *Controller) UpdatePatterns(patterns []string) error {
	return c.cfg.UpdatePatterns(patterns)
}

// CreateBranch creates and checks out a new branch and starts a fresh
// session bound to it. Any step failing leaves the repository on its
// original branch with no session persisted.
func (c *Controller) CreateBranch(ctx context.Context, name string) error {
	if c.git.BranchExists(ctx, name) {
		return fmt.Errorf("create branch %s: %w", name, git.ErrBranchExists)
	}

	original, err := c.git.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("resolve current branch: %w", err)
	}

	if err := c.git.CreateBranch(ctx, name); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}

	undo := func() {
		if err := c.git.Checkout(ctx, original); err != nil {
			c.log.Error("create_branch_restore_failed", map[string]interface{}{"branch": original}, err)
			return
		}
		if err := c.git.DeleteBranch(ctx, name); err != nil {
			c.log.Error("create_branch_cleanup_failed", map[string]interface{}{"branch": name}, err)
		}
	}

	sess := session.New(name)
	if err := c.store.Save(sess); err != nil {
		undo()
		return fmt.Errorf("persist session: %w", err)
	}

	if err := c.docs.Init(name); err != nil {
		if cerr := c.store.Clear(); cerr != nil {
			c.log.Error("create_branch_session_cleanup_failed", nil, cerr)
		}
		undo()
		return fmt.Errorf("init documentation: %w", err)
	}

	c.sess = sess
	c.log = logging.New("lifecycle").WithRepo(c.root).WithBranch(name)
	c.log.Info("session_created", map[string]interface{}{"session_id": sess.ID})
	return nil
}

// ClearSession deletes the persisted session and associated scratch
// storage. Idempotent.
func (c *Controller) ClearSession() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.sess = nil
	return nil
}

// AddContextFile adds a repository-relative path to the session context.
// The file must exist on disk.
func (c *Controller) AddContextFile(path string) error {
	if c.sess == nil {
		return ErrNoSession
	}
	if _, err := os.Stat(filepath.Join(c.root, path)); err != nil {
		return fmt.Errorf("context file %s: %w", path, err)
	}
	if !c.sess.AddContextFile(path) {
		return nil // already present
	}
	return c.store.Save(c.sess)
}

// RemoveContextFile removes a path from the session context. Returns
// false if the path was not in the context.
func (c *Controller) RemoveContextFile(path string) (bool, error) {
	if c.sess == nil {
		return false, ErrNoSession
	}
	if !c.sess.RemoveContextFile(path) {
		return false, nil
	}
	return true, c.store.Save(c.sess)
}

// ClearContext drops the whole context set.
func (c *Controller) ClearContext() error {
	if c.sess == nil {
		return ErrNoSession
	}
	c.sess.ClearContext()
	return c.store.Save(c.sess)
}

// BuildContext assembles the text context for the backend.
func (c *Controller) BuildContext() (string, error) {
	return workspace.BuildContext(c.sess, c.root, c.Patterns())
}

// Generate builds the context, sends the framed prompt to the backend
// and parses the response into file edits. Nothing is applied here.
func (c *Controller) Generate(ctx context.Context, prompt string) (*parse.Result, error) {
	text, err := c.BuildContext()
	if err != nil {
		return nil, err
	}

	raw, err := c.backend.Generate(ctx, fmt.Sprintf(promptTemplate, text, prompt))
	if err != nil {
		return nil, err
	}

	res, err := parse.Parse(raw)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		c.log.Warn("response_section_skipped", map[string]interface{}{"detail": w}, nil)
	}
	return res, nil
}

// Apply writes parsed edits to the working tree. Partially applied
// batches are not reverted; rollback goes through version control.
func (c *Controller) Apply(ctx context.Context, edits map[string]string) ([]session.FileChange, error) {
	if err := c.ensureOnSessionBranch(ctx); err != nil {
		return nil, err
	}
	return workspace.Apply(c.root, edits)
}

// RecordChange appends a provenance entry to the session history and the
// documentation log. A documentation write failure is logged, never
// propagated: losing an audit row must not block the workflow.
func (c *Controller) RecordChange(prompt string, files []session.FileChange, commitID string) error {
	if c.sess == nil {
		return ErrNoSession
	}

	rec := session.NewChangeRecord(prompt, files, commitID)
	c.sess.AppendChange(rec)
	if err := c.store.Save(c.sess); err != nil {
		return fmt.Errorf("persist change record: %w", err)
	}

	if err := c.docs.Append(c.sess.Branch, rec); err != nil {
		c.log.Warn("documentation_write_failed", map[string]interface{}{"record": rec.ID}, err)
	}
	return nil
}

// History returns the session's change records in chronological order.
func (c *Controller) History() []session.ChangeRecord {
	if c.sess == nil {
		return nil
	}
	return c.sess.ChangeHistory
}

// HasChanges reports whether the working tree has uncommitted changes.
func (c *Controller) HasChanges(ctx context.Context) (bool, error) {
	return c.git.IsDirty(ctx)
}

// Diff returns the pending working-tree diff for review.
func (c *Controller) Diff(ctx context.Context) (string, error) {
	return c.git.Diff(ctx)
}

// Commit stages all working-tree changes and commits them, returning
// the new commit hash. A clean tree yields ErrNothingToCommit.
func (c *Controller) Commit(ctx context.Context, message string) (string, error) {
	if err := c.ensureOnSessionBranch(ctx); err != nil {
		return "", err
	}

	dirty, err := c.git.IsDirty(ctx)
	if err != nil {
		return "", &CommitError{Err: err}
	}
	if !dirty {
		return "", ErrNothingToCommit
	}

	if err := c.git.StageAll(ctx); err != nil {
		return "", &CommitError{Err: err}
	}
	hash, err := c.git.Commit(ctx, message)
	if err != nil {
		return "", &CommitError{Err: err}
	}

	c.log.Info("committed", map[string]interface{}{"commit": hash})
	return hash, nil
}

// Rollback discards the last commit by hard-resetting to its parent.
// HEAD is left unchanged on failure.
func (c *Controller) Rollback(ctx context.Context) error {
	if err := c.ensureOnSessionBranch(ctx); err != nil {
		return err
	}
	if err := c.git.ResetHardParent(ctx); err != nil {
		return &RollbackError{Err: err}
	}
	c.log.Info("rolled_back", nil)
	return nil
}

// MergeToMain merges the session branch into main. On conflict or any
// other merge failure the merge is aborted and the repository returned
// to the session branch; main is left unchanged. On success the
// repository stays on main and the session remains active until
// explicitly cleared.
func (c *Controller) MergeToMain(ctx context.Context) error {
	if c.sess == nil {
		return ErrNoSession
	}
	if !c.git.BranchExists(ctx, mainBranch) {
		return &MergeError{Err: fmt.Errorf("%s branch does not exist", mainBranch)}
	}

	dirty, err := c.git.IsDirty(ctx)
	if err != nil {
		return &MergeError{Err: err}
	}
	if dirty {
		return &MergeError{Err: fmt.Errorf("working tree is not clean; commit or stash changes first")}
	}

	original, err := c.git.CurrentBranch(ctx)
	if err != nil {
		return &MergeError{Err: err}
	}

	if err := c.git.Checkout(ctx, mainBranch); err != nil {
		return &MergeError{Err: err}
	}

	err = c.git.Merge(ctx, c.sess.Branch)
	if err == nil {
		c.log.Info("merged_to_main", map[string]interface{}{"branch": c.sess.Branch})
		return nil
	}

	// Abort and restore, then classify.
	if aerr := c.git.MergeAbort(ctx); aerr != nil {
		c.log.Error("merge_abort_failed", nil, aerr)
	}
	if cerr := c.git.Checkout(ctx, original); cerr != nil {
		c.log.Error("merge_restore_failed", map[string]interface{}{"branch": original}, cerr)
	}

	var conflict *git.ConflictError
	if errors.As(err, &conflict) {
		return &MergeConflictError{Branch: conflict.Branch, Files: conflict.Files}
	}
	return &MergeError{Err: err}
}

// ensureOnSessionBranch guards mutating operations: the session's branch
// must be the checked-out branch.
func (c *Controller) ensureOnSessionBranch(ctx context.Context) error {
	if c.sess == nil {
		return ErrNoSession
	}
	current, err := c.git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current != c.sess.Branch {
		return fmt.Errorf("%w: on %s, session is %s", ErrBranchMismatch, current, c.sess.Branch)
	}
	return nil
}
