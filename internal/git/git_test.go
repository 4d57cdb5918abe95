package git

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahamg/ai-git/internal/exec"
)

var errExit = errors.New("exit status 1")

func TestCreateBranchRejectsExisting(t *testing.T) {
	m := exec.NewMockRunner()
	// show-ref succeeds => branch exists
	g := NewWithRunner("/repo", m)

	err := g.CreateBranch(context.Background(), "feat-x")
	assert.ErrorIs(t, err, ErrBranchExists)
	assert.Equal(t, []string{"git show-ref --verify --quiet refs/heads/feat-x"}, m.CallStrings())
}

func TestCreateBranchChecksOut(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git show-ref --verify --quiet refs/heads/feat-x", exec.MockResponse{Err: errExit})
	g := NewWithRunner("/repo", m)

	require.NoError(t, g.CreateBranch(context.Background(), "feat-x"))
	assert.Equal(t, "git checkout -b feat-x", m.Calls[len(m.Calls)-1].String())
}

func TestCommitReturnsHash(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git rev-parse HEAD", exec.MockResponse{Stdout: []byte("deadbeef\n")})
	g := NewWithRunner("/repo", m)

	hash, err := g.Commit(context.Background(), "add a")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)
}

func TestCommitFailure(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git commit -m add a", exec.MockResponse{Stderr: []byte("nothing to commit"), Err: errExit})
	g := NewWithRunner("/repo", m)

	_, err := g.Commit(context.Background(), "add a")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Error(), "nothing to commit")
}

func TestIsDirty(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"clean tree", "", false},
		{"modified file", " M main.go\n", true},
		{"untracked file", "?? new.go\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := exec.NewMockRunner()
			m.AddResponse("git status --porcelain", exec.MockResponse{Stdout: []byte(tt.output)})
			g := NewWithRunner("/repo", m)

			dirty, err := g.IsDirty(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, dirty)
		})
	}
}

func TestResetHardParentRequiresParent(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git rev-parse --verify --quiet HEAD^", exec.MockResponse{Err: errExit})
	g := NewWithRunner("/repo", m)

	err := g.ResetHardParent(context.Background())
	assert.ErrorIs(t, err, ErrNoParentCommit)

	// HEAD must not have been touched.
	for _, call := range m.CallStrings() {
		assert.NotContains(t, call, "reset")
	}
}

func TestResetHardParent(t *testing.T) {
	m := exec.NewMockRunner()
	g := NewWithRunner("/repo", m)

	require.NoError(t, g.ResetHardParent(context.Background()))
	assert.Contains(t, m.CallStrings(), "git reset --hard HEAD^")
}

func TestMergeConflictSignal(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git merge feat-x", exec.MockResponse{Stdout: []byte("Auto-merging a.go\nCONFLICT (content)\n"), Err: errExit})
	m.AddResponse("git diff --name-only --diff-filter=U", exec.MockResponse{Stdout: []byte("a.go\nb.go\n")})
	g := NewWithRunner("/repo", m)

	err := g.Merge(context.Background(), "feat-x")
	require.True(t, IsConflict(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"a.go", "b.go"}, conflict.Files)
	assert.Equal(t, "feat-x", conflict.Branch)
}

func TestMergeNonConflictFailure(t *testing.T) {
	m := exec.NewMockRunner()
	m.AddResponse("git merge feat-x", exec.MockResponse{Stderr: []byte("fatal: refusing to merge unrelated histories"), Err: errExit})
	g := NewWithRunner("/repo", m)

	err := g.Merge(context.Background(), "feat-x")
	require.Error(t, err)
	assert.False(t, IsConflict(err))
}

func TestUnmergedFilesEmpty(t *testing.T) {
	m := exec.NewMockRunner()
	g := NewWithRunner("/repo", m)

	files, err := g.UnmergedFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}
