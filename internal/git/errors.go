package git

import (
	"errors"
	"fmt"
)

// Common capability errors.
var (
	// ErrBranchExists indicates the target branch name is already taken.
	ErrBranchExists = errors.New("branch already exists")

	// ErrNoParentCommit indicates HEAD has no parent to reset to.
	ErrNoParentCommit = errors.New("no parent commit")

	// ErrConflict indicates a merge stopped on conflicting changes.
	ErrConflict = errors.New("merge conflict")
)

// CommandError wraps a failed git invocation with its output.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git %v: %s", e.Args, e.Output)
	}
	return fmt.Sprintf("git %v: %v", e.Args, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ConflictError reports the files left unmerged by a conflicted merge.
type ConflictError struct {
	Branch string
	Files  []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge of %s stopped on %d conflicted file(s)", e.Branch, len(e.Files))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// IsConflict checks if an error signals a merge conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
