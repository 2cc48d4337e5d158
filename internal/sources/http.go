package sources

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/httpclient"
)

// lastModifiedHeader is used when the configured version header is absent
const lastModifiedHeader = "Last-Modified"

// httpSourceHandler handles mime.types documents served over HTTP
type httpSourceHandler struct {
	src    config.SourceConfig
	client httpclient.Client
	parser Parser
}

// NewHTTPSourceHandler creates a handler for an http or https source
func NewHTTPSourceHandler(src config.SourceConfig, client httpclient.Client) (SourceHandler, error) {
	parser, err := NewParser(src.Format)
	if err != nil {
		return nil, err
	}
	if src.VersionHeader == "" {
		src.VersionHeader = config.DefaultVersionHeader
	}
	return &httpSourceHandler{
		src:    src,
		client: client,
		parser: parser,
	}, nil
}

// Name returns the source identifier
func (h *httpSourceHandler) Name() string {
	return h.src.Name
}

// CurrentVersion issues a HEAD request and returns the version token
func (h *httpSourceHandler) CurrentVersion(ctx context.Context) (string, error) {
	resp, err := h.client.Head(ctx, h.src.URL)
	if err != nil {
		return "", fmt.Errorf("probe of %s failed: %w", h.src.Name, err)
	}
	return h.versionFrom(resp.Header), nil
}

// FetchRegistry issues a GET request and parses the document
func (h *httpSourceHandler) FetchRegistry(ctx context.Context) (*FetchResult, error) {
	resp, err := h.client.Get(ctx, h.src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch of %s failed: %w", h.src.Name, err)
	}

	content, err := h.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", h.src.Name, err)
	}

	version := h.versionFrom(resp.Header)
	zap.S().Debugw("Fetched source document",
		"source", h.src.Name,
		"version", version,
		"bytes", len(resp.Body),
		"extensions", content.Len())

	return NewFetchResult(h.src.Name, version, h.src.Format, content), nil
}

func (h *httpSourceHandler) versionFrom(header http.Header) string {
	if v := header.Get(h.src.VersionHeader); v != "" {
		return v
	}
	return header.Get(lastModifiedHeader)
}
