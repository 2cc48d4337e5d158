// Package git reads files from remote Git repositories without touching the
// local filesystem.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"
)

// ErrRefNotFound is returned when the requested branch does not exist on the remote
var ErrRefNotFound = errors.New("reference not found")

// maxSymbolicDepth bounds how many symbolic references are followed
const maxSymbolicDepth = 5

// Ref identifies a branch of a remote repository
type Ref struct {
	// URL is the repository URL (https, http, file or a local path)
	URL string

	// Branch is the branch to read. Empty selects the remote HEAD.
	Branch string
}

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client defines the Git operations used by sources
type Client interface {
	// Head returns the commit hash ref currently points to, without cloning
	Head(ctx context.Context, ref Ref) (string, error)

	// ReadFile clones ref into memory and returns the content of path
	// together with the commit hash it was read at
	ReadFile(ctx context.Context, ref Ref, path string) ([]byte, string, error)
}

// defaultClient implements Client using go-git
type defaultClient struct{}

// NewDefaultClient creates a new go-git backed client
func NewDefaultClient() Client {
	return &defaultClient{}
}

// Head lists the remote references and resolves ref
func (*defaultClient) Head(ctx context.Context, ref Ref) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{ref.URL},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list remote references: %w", err)
	}

	return resolve(refs, ref.Branch)
}

// ReadFile clones ref without a worktree and reads path from its head commit
func (*defaultClient) ReadFile(ctx context.Context, ref Ref, path string) ([]byte, string, error) {
	cloneOptions := &git.CloneOptions{
		URL:          ref.URL,
		SingleBranch: true,
		NoCheckout:   true,
		Tags:         git.NoTags,
	}
	if ref.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
	}
	// go-git cannot negotiate shallow clones over the local transport
	if !isLocal(ref.URL) {
		cloneOptions.Depth = 1
	}

	startTime := time.Now()
	// A nil worktree yields a bare in-memory repository
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, cloneOptions)
	if err != nil {
		return nil, "", fmt.Errorf("failed to clone repository: %w", err)
	}
	zap.S().Debugw("Git clone completed",
		"repository", ref.URL,
		"branch", ref.Branch,
		"duration", time.Since(startTime))

	head, err := repo.Head()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, "", fmt.Errorf("failed to get commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file %s: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file contents: %w", err)
	}

	return []byte(content), head.Hash().String(), nil
}

// resolve finds the commit hash of branch, or of HEAD when branch is empty,
// following symbolic references such as HEAD -> refs/heads/main
func resolve(refs []*plumbing.Reference, branch string) (string, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	name := plumbing.HEAD
	if branch != "" {
		name = plumbing.NewBranchReferenceName(branch)
	}

	for range maxSymbolicDepth {
		r, ok := byName[name]
		if !ok {
			break
		}
		if r.Type() == plumbing.HashReference {
			return r.Hash().String(), nil
		}
		name = r.Target()
	}
	return "", fmt.Errorf("%w: %s", ErrRefNotFound, name)
}

func isLocal(url string) bool {
	return strings.HasPrefix(url, "file://") || filepath.IsAbs(url)
}
