package sources

import (
	"fmt"
	"net/url"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/git"
	"github.com/stacklok/toolhive-mime-registry/internal/httpclient"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct {
	client    httpclient.Client
	gitClient git.Client
}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// FactoryOption configures the source handler factory
type FactoryOption func(*defaultSourceHandlerFactory)

// WithGitClient sets the client used by git sources
func WithGitClient(client git.Client) FactoryOption {
	return func(f *defaultSourceHandlerFactory) {
		f.gitClient = client
	}
}

// NewSourceHandlerFactory creates a new source handler factory.
// HTTP sources share client.
func NewSourceHandlerFactory(client httpclient.Client, opts ...FactoryOption) SourceHandlerFactory {
	f := &defaultSourceHandlerFactory{
		client:    client,
		gitClient: git.NewDefaultClient(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateHandler creates a source handler based on the URL scheme of src
func (f *defaultSourceHandlerFactory) CreateHandler(src config.SourceConfig) (SourceHandler, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url for source %s: %w", src.Name, err)
	}

	switch u.Scheme {
	case config.SchemeHTTP, config.SchemeHTTPS:
		return NewHTTPSourceHandler(src, f.client)
	case config.SchemeFile:
		return NewFileSourceHandler(src)
	case config.SchemeGitHTTP, config.SchemeGitHTTPS, config.SchemeGitFile:
		return NewGitSourceHandler(src, f.gitClient)
	default:
		return nil, fmt.Errorf("unsupported url scheme: %s", u.Scheme)
	}
}
