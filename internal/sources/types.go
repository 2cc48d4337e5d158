package sources

import (
	"context"
	"errors"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
)

// ErrNoAssociations is returned when a document holds no valid association
var ErrNoAssociations = errors.New("document contains no valid associations")

//go:generate mockgen -destination=mocks/mock_source_handler.go -package=mocks -source=types.go SourceHandler,SourceHandlerFactory

// SourceHandler is an interface with methods to fetch data from an upstream source
type SourceHandler interface {
	// Name returns the source identifier
	Name() string

	// CurrentVersion returns the current version token of the source without
	// fetching the document. An empty token means the source exposes none.
	CurrentVersion(ctx context.Context) (string, error)

	// FetchRegistry retrieves and parses the source document
	FetchRegistry(ctx context.Context) (*FetchResult, error)
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Source is the identifier of the source the data came from
	Source string

	// Version is the version token returned with the document
	Version string

	// Content maps extensions to media types parsed from the document
	Content registry.Registry

	// AssociationCount is the number of extension/media type pairs in Content
	AssociationCount int

	// Format indicates the format of the source document
	Format string
}

// NewFetchResult creates a new FetchResult from parsed content
func NewFetchResult(source, version, format string, content registry.Registry) *FetchResult {
	return &FetchResult{
		Source:           source,
		Version:          version,
		Content:          content,
		AssociationCount: content.Associations(),
		Format:           format,
	}
}

// IsUsable reports whether the result carries both a version token and content
func (r *FetchResult) IsUsable() bool {
	return r != nil && r.Version != "" && r.Content.Len() > 0
}

// SourceHandlerFactory creates source handlers from source configuration
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source
	CreateHandler(src config.SourceConfig) (SourceHandler, error)
}
