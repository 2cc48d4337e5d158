// Package config provides configuration loading and management for the media type registry.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-mime-registry/internal/telemetry"
)

const (
	// EnvPrefix is the prefix for environment variables overriding configuration
	EnvPrefix = "THV_MIME"

	// DefaultDataDir is the default directory holding the snapshot
	DefaultDataDir = "./data"

	// DefaultSnapshotName is the default name of the snapshot blob
	DefaultSnapshotName = "registry.json"

	// DefaultSyncInterval is the default interval between scheduled synchronizations
	DefaultSyncInterval = 24 * time.Hour

	// DefaultHTTPTimeout is the default per-request timeout
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultVersionHeader is the response header used as version token
	DefaultVersionHeader = "ETag"

	// IntervalDisabled is the interval value that disables scheduled synchronization
	IntervalDisabled time.Duration = -1
)

const (
	// SourceApache identifies the Apache httpd mime.types source
	SourceApache = "apache"

	// SourceDebian identifies the Debian media-types source
	SourceDebian = "debian"

	// SourceNginx identifies the NGINX mime.types source
	SourceNginx = "nginx"
)

const (
	// FormatApache is the whitespace table format used by Apache httpd
	FormatApache = "apache"

	// FormatDebian is the whitespace table format used by Debian
	FormatDebian = "debian"

	// FormatNginx is the NGINX "types { ... }" block format
	FormatNginx = "nginx"
)

const (
	// SchemeHTTP is the URL scheme for plain HTTP sources
	SchemeHTTP = "http"

	// SchemeHTTPS is the URL scheme for HTTPS sources
	SchemeHTTPS = "https"

	// SchemeFile is the URL scheme for sources read from the local filesystem
	SchemeFile = "file"

	// SchemeGitHTTPS selects a file inside a Git repository cloned over HTTPS
	SchemeGitHTTPS = "git+https"

	// SchemeGitHTTP selects a file inside a Git repository cloned over HTTP
	SchemeGitHTTP = "git+http"

	// SchemeGitFile selects a file inside a local Git repository
	SchemeGitFile = "git+file"
)

// ErrInvalidConfig is wrapped by every configuration error
var ErrInvalidConfig = errors.New("invalid configuration")

// Error is a configuration error. It wraps ErrInvalidConfig.
type Error struct {
	Field   string
	Message string
}

// Error returns the error message
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns ErrInvalidConfig
func (*Error) Unwrap() error {
	return ErrInvalidConfig
}

func newError(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// DataDir is the directory where the snapshot is stored
	DataDir string `yaml:"dataDir,omitempty"`

	// SnapshotName is the name of the snapshot blob inside DataDir
	SnapshotName string `yaml:"snapshotName,omitempty"`

	// SyncInterval is the interval between scheduled synchronizations.
	// Accepts a Go duration ("30m", "24h"), an integer number of milliseconds,
	// or "disabled". Negative values disable scheduling.
	SyncInterval string `yaml:"syncInterval,omitempty"`

	// HTTP configures the transport used to reach the sources
	HTTP *HTTPConfig `yaml:"http,omitempty"`

	// Sources lists the upstream registries. Defaults to Apache, Debian and NGINX.
	Sources []SourceConfig `yaml:"sources,omitempty"`

	// Telemetry configures OpenTelemetry export. Disabled when omitted.
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// HTTPConfig defines transport settings
type HTTPConfig struct {
	// Timeout is the per-request timeout (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries is how many times a failed request is retried
	MaxRetries uint `yaml:"maxRetries,omitempty"`
}

// SourceConfig defines a single upstream source
type SourceConfig struct {
	// Name is the identifier for this source, used as key of the version map
	Name string `yaml:"name"`

	// URL is the address of the mime.types document.
	// http, https and file URLs are supported, as are git+https, git+http
	// and git+file URLs naming a repository.
	URL string `yaml:"url"`

	// Branch is the repository branch read by git sources.
	// Defaults to the remote HEAD.
	Branch string `yaml:"branch,omitempty"`

	// Path is the document path inside the repository. Required for git sources.
	Path string `yaml:"path,omitempty"`

	// Format is the document format (apache, debian or nginx).
	// Defaults to Name when Name is one of the known formats.
	Format string `yaml:"format,omitempty"`

	// VersionHeader is the response header holding the version token.
	// Defaults to ETag.
	VersionHeader string `yaml:"versionHeader,omitempty"`

	// Disabled excludes the source from synchronization
	Disabled bool `yaml:"disabled,omitempty"`
}

// DefaultSources returns the well-known upstream registries
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:   SourceApache,
			URL:    "https://svn.apache.org/repos/asf/httpd/httpd/trunk/docs/conf/mime.types",
			Format: FormatApache,
		},
		{
			Name:   SourceDebian,
			URL:    "https://salsa.debian.org/debian/media-types/-/raw/master/mime.types",
			Format: FormatDebian,
		},
		{
			Name:   SourceNginx,
			URL:    "https://raw.githubusercontent.com/nginx/nginx/master/conf/mime.types",
			Format: FormatNginx,
		},
	}
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads and parses configuration from a YAML file.
// Without WithConfigPath the default configuration is returned.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return Default(), nil
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	// Validate the config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.SnapshotName == "" {
		c.SnapshotName = DefaultSnapshotName
	}
	if c.HTTP == nil {
		c.HTTP = &HTTPConfig{}
	}
	if len(c.Sources) == 0 {
		c.Sources = DefaultSources()
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Format == "" && isKnownFormat(src.Name) {
			src.Format = src.Name
		}
		if src.VersionHeader == "" {
			src.VersionHeader = DefaultVersionHeader
		}
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if strings.ContainsAny(c.SnapshotName, `/\`) {
		return newError("snapshotName", "must be a plain name, got %q", c.SnapshotName)
	}

	if _, err := ParseInterval(c.SyncInterval); err != nil {
		return err
	}

	if _, err := c.GetHTTPTimeout(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return newError("telemetry", "%v", err)
	}

	// Validate each source configuration
	sourceNames := make(map[string]bool)
	for i, src := range c.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)

		if src.Name == "" {
			return newError(prefix, "name is required")
		}
		if sourceNames[src.Name] {
			return newError(prefix, "duplicate source name '%s'", src.Name)
		}
		sourceNames[src.Name] = true

		if err := validateSourceConfig(&src, prefix); err != nil {
			return err
		}
	}

	return nil
}

// validateSourceConfig validates a single source configuration
func validateSourceConfig(src *SourceConfig, prefix string) error {
	prefix = fmt.Sprintf("%s (%s)", prefix, src.Name)

	if src.URL == "" {
		return newError(prefix, "url is required")
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return newError(prefix, "url is invalid: %v", err)
	}
	switch u.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return newError(prefix, "url must include a host")
		}
	case SchemeFile:
		if u.Path == "" {
			return newError(prefix, "file url must include a path")
		}
	case SchemeGitHTTP, SchemeGitHTTPS, SchemeGitFile:
		if u.Scheme != SchemeGitFile && u.Host == "" {
			return newError(prefix, "url must include a host")
		}
		if src.Path == "" {
			return newError(prefix, "path is required for git sources")
		}
	default:
		return newError(prefix, "url scheme must be http, https, file or git, got '%s'", u.Scheme)
	}
	if src.Path != "" && !IsGitSource(src) {
		return newError(prefix, "path is only supported by git sources")
	}

	if !isKnownFormat(src.Format) {
		return newError(prefix, "format must be one of %s, %s or %s, got '%s'",
			FormatApache, FormatDebian, FormatNginx, src.Format)
	}

	return nil
}

// GetSyncInterval returns the parsed sync interval.
// IntervalDisabled is returned when scheduling is disabled.
func (c *Config) GetSyncInterval() (time.Duration, error) {
	return ParseInterval(c.SyncInterval)
}

// GetHTTPTimeout returns the parsed transport timeout
func (c *Config) GetHTTPTimeout() (time.Duration, error) {
	if c.HTTP == nil || c.HTTP.Timeout == "" {
		return DefaultHTTPTimeout, nil
	}
	timeout, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 0, newError("http.timeout", "must be a valid duration (e.g., '30s'): %v", err)
	}
	if timeout <= 0 {
		return 0, newError("http.timeout", "must be positive, got '%s'", c.HTTP.Timeout)
	}
	return timeout, nil
}

// EnabledSources returns the sources that are not disabled, in configured order
func (c *Config) EnabledSources() []SourceConfig {
	enabled := make([]SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		if !src.Disabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// SnapshotPath returns the full path of the snapshot file
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, c.SnapshotName)
}

// ParseInterval parses a sync interval.
//
// An empty value yields DefaultSyncInterval. "disabled", "off" and any
// negative value yield IntervalDisabled. Plain numbers, fractional ones
// included, are milliseconds; other values must be Go durations. Non-finite and malformed values are errors.
func ParseInterval(value string) (time.Duration, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	switch v {
	case "":
		return DefaultSyncInterval, nil
	case "disabled", "off":
		return IntervalDisabled, nil
	}

	if ms, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return 0, newError("syncInterval", "value %q is not finite", value)
		}
		if ms < 0 {
			return IntervalDisabled, nil
		}
		if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
			return 0, newError("syncInterval", "value %q overflows", value)
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, newError("syncInterval",
			"must be a duration (e.g., '30m'), milliseconds or 'disabled', got %q", value)
	}
	if d < 0 {
		return IntervalDisabled, nil
	}
	return d, nil
}

// IsGitSource reports whether src reads from a Git repository
func IsGitSource(src *SourceConfig) bool {
	scheme, _, ok := strings.Cut(src.URL, "://")
	if !ok {
		return false
	}
	switch scheme {
	case SchemeGitHTTP, SchemeGitHTTPS, SchemeGitFile:
		return true
	default:
		return false
	}
}

func isKnownFormat(format string) bool {
	switch format {
	case FormatApache, FormatDebian, FormatNginx:
		return true
	default:
		return false
	}
}
