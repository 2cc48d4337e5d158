package registry

// TestRegistryOption configures a test registry
type TestRegistryOption func(Registry)

// NewTestRegistry creates a registry for tests
func NewTestRegistry(opts ...TestRegistryOption) Registry {
	reg := New()
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// WithEntry associates extension with mediaTypes
func WithEntry(extension string, mediaTypes ...string) TestRegistryOption {
	return func(r Registry) {
		r.Merge(extension, mediaTypes)
	}
}
