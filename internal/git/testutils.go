package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// TestRepo is a local repository used as a remote in tests
type TestRepo struct {
	Dir  string
	repo *git.Repository
	t    *testing.T
}

// NewTestRepo initializes an empty repository in a temporary directory
func NewTestRepo(t *testing.T) *TestRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &TestRepo{Dir: dir, repo: repo, t: t}
}

// Commit writes files into the worktree and commits them, returning the hash
func (r *TestRepo) Commit(files map[string]string) string {
	r.t.Helper()

	workTree, err := r.repo.Worktree()
	require.NoError(r.t, err)

	for name, content := range files {
		path := filepath.Join(r.Dir, name)
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(r.t, os.WriteFile(path, []byte(content), 0o600))
		_, err := workTree.Add(name)
		require.NoError(r.t, err)
	}

	hash, err := workTree.Commit("update", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(r.t, err)
	return hash.String()
}

// Branch creates a branch at the current HEAD and checks it out
func (r *TestRepo) Branch(name string) {
	r.t.Helper()

	workTree, err := r.repo.Worktree()
	require.NoError(r.t, err)
	require.NoError(r.t, workTree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}))
}
