package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
)

// fileSourceHandler handles mime.types documents on the local filesystem
type fileSourceHandler struct {
	name   string
	format string
	path   string
	parser Parser
}

// NewFileSourceHandler creates a handler for a file source
func NewFileSourceHandler(src config.SourceConfig) (SourceHandler, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url for source %s: %w", src.Name, err)
	}
	if u.Path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	parser, err := NewParser(src.Format)
	if err != nil {
		return nil, err
	}

	return &fileSourceHandler{
		name:   src.Name,
		format: src.Format,
		path:   u.Path,
		parser: parser,
	}, nil
}

// Name returns the source identifier
func (h *fileSourceHandler) Name() string {
	return h.name
}

// CurrentVersion returns the SHA256 of the file without parsing it
func (h *fileSourceHandler) CurrentVersion(ctx context.Context) (string, error) {
	_, hash, err := h.readFile(ctx)
	if err != nil {
		return "", err
	}
	return hash, nil
}

// FetchRegistry reads and parses the file
func (h *fileSourceHandler) FetchRegistry(ctx context.Context) (*FetchResult, error) {
	data, hash, err := h.readFile(ctx)
	if err != nil {
		return nil, err
	}

	content, err := h.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", h.name, err)
	}

	return NewFetchResult(h.name, hash, h.format, content), nil
}

// readFile reads the file and calculates its hash
func (h *fileSourceHandler) readFile(_ context.Context) ([]byte, string, error) {
	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", h.path)
		}
		return nil, "", fmt.Errorf("failed to read file %s: %w", h.path, err)
	}

	return data, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}
