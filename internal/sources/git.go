package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/git"
)

// gitSourceHandler handles mime.types documents committed to a Git repository.
// The version token is the commit hash of the tracked branch.
type gitSourceHandler struct {
	src    config.SourceConfig
	ref    git.Ref
	client git.Client
	parser Parser
}

// NewGitSourceHandler creates a handler for a git+https, git+http or git+file source
func NewGitSourceHandler(src config.SourceConfig, client git.Client) (SourceHandler, error) {
	parser, err := NewParser(src.Format)
	if err != nil {
		return nil, err
	}
	if src.Path == "" {
		return nil, fmt.Errorf("git source %s requires a path", src.Name)
	}
	return &gitSourceHandler{
		src: src,
		ref: git.Ref{
			URL:    strings.TrimPrefix(src.URL, "git+"),
			Branch: src.Branch,
		},
		client: client,
		parser: parser,
	}, nil
}

// Name returns the source identifier
func (h *gitSourceHandler) Name() string {
	return h.src.Name
}

// CurrentVersion resolves the branch head without cloning
func (h *gitSourceHandler) CurrentVersion(ctx context.Context) (string, error) {
	commit, err := h.client.Head(ctx, h.ref)
	if err != nil {
		return "", fmt.Errorf("probe of %s failed: %w", h.src.Name, err)
	}
	return commit, nil
}

// FetchRegistry clones the branch and parses the document at the configured path
func (h *gitSourceHandler) FetchRegistry(ctx context.Context) (*FetchResult, error) {
	body, commit, err := h.client.ReadFile(ctx, h.ref, h.src.Path)
	if err != nil {
		return nil, fmt.Errorf("fetch of %s failed: %w", h.src.Name, err)
	}

	content, err := h.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", h.src.Name, err)
	}

	zap.S().Debugw("Fetched source document from repository",
		"source", h.src.Name,
		"commit", commit,
		"path", h.src.Path,
		"extensions", content.Len())

	return NewFetchResult(h.src.Name, commit, h.src.Format, content), nil
}
