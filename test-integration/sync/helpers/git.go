package helpers

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/onsi/gomega"
)

// GitRepository is a local repository served through the file transport
type GitRepository struct {
	Path string
	repo *git.Repository
}

// NewGitRepository initializes a repository under dir
func NewGitRepository(dir string) *GitRepository {
	repo, err := git.PlainInit(dir, false)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return &GitRepository{Path: dir, repo: repo}
}

// URL returns the git+file URL of the repository
func (g *GitRepository) URL() string {
	return "git+file://" + g.Path
}

// CommitFile writes content to name and commits it, returning the commit hash
func (g *GitRepository) CommitFile(name, content string) string {
	path := filepath.Join(g.Path, name)
	gomega.Expect(os.MkdirAll(filepath.Dir(path), 0750)).To(gomega.Succeed())
	gomega.Expect(os.WriteFile(path, []byte(content), 0600)).To(gomega.Succeed())

	workTree, err := g.repo.Worktree()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	_, err = workTree.Add(name)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	hash, err := workTree.Commit("Update "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return hash.String()
}
