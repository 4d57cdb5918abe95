package lifecycle

import (
	"errors"
	"fmt"
)

// Expected conditions surfaced as typed results, never as panics or
// process exits.
var (
	// ErrNoSession indicates an operation that requires an active session.
	ErrNoSession = errors.New("no active session")

	// ErrNothingToCommit indicates a clean working tree. This is a normal
	// result, not a failure.
	ErrNothingToCommit = errors.New("no changes to commit")

	// ErrBranchMismatch indicates the checked-out branch is not the
	// session's branch.
	ErrBranchMismatch = errors.New("checked-out branch is not the session branch")
)

// CommitError wraps a failed commit.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// RollbackError wraps a failed hard reset.
type RollbackError struct {
	Err error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v", e.Err)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// MergeError wraps a non-conflict merge failure. The repository is
// restored to the session branch before it is returned.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed: %v", e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// MergeConflictError reports a merge stopped on conflicts. The merge has
// been aborted and the repository returned to the session branch; the
// branch and its history are intact for manual resolution.
type MergeConflictError struct {
	Branch string
	Files  []string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge of %s conflicts on %d file(s)", e.Branch, len(e.Files))
}

// Guidance returns the manual resolution steps to show the user.
func (e *MergeConflictError) Guidance() string {
	return "To resolve conflicts:\n" +
		"1. Check status with 'git status'\n" +
		"2. Resolve conflicts in the marked files\n" +
		"3. Add resolved files with 'git add'\n" +
		"4. Complete merge with 'git commit'"
}
