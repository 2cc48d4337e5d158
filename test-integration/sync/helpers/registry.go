package helpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/httpclient"
	"github.com/stacklok/toolhive-mime-registry/internal/notify"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/sources"
	"github.com/stacklok/toolhive-mime-registry/internal/storage"
	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/coordinator"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/state"
)

// WriteConfigYAML writes cfg as config.yaml in dir and returns its path
func WriteConfigYAML(dir string, cfg *config.Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// RegistryTestHelper wires a registry from a configuration file and records
// the notifications it emits
type RegistryTestHelper struct {
	Config      *config.Config
	Manager     pkgsync.Manager
	Notifier    *notify.Notifier
	Coordinator coordinator.Coordinator

	mu       sync.Mutex
	changes  []registry.Delta
	failures []error
}

// NewRegistryTestHelper loads configPath and builds a manager backed by a file store
func NewRegistryTestHelper(ctx context.Context, configPath string) (*RegistryTestHelper, error) {
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetHTTPTimeout()
	if err != nil {
		return nil, err
	}

	h := &RegistryTestHelper{
		Config:   cfg,
		Notifier: notify.New(),
	}
	h.Notifier.OnChange(func(delta registry.Delta) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.changes = append(h.changes, delta)
	})
	h.Notifier.OnFailure(func(err error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.failures = append(h.failures, err)
	})

	client := httpclient.NewDefaultClient(timeout, httpclient.WithMaxRetries(cfg.HTTP.MaxRetries))
	stateService := state.NewSnapshotService(storage.NewFileStore(cfg.DataDir), cfg.SnapshotName)

	h.Manager, err = pkgsync.NewDefaultSyncManager(ctx,
		sources.NewSourceHandlerFactory(client),
		cfg.EnabledSources(),
		stateService,
		pkgsync.WithNotifier(h.Notifier),
	)
	if err != nil {
		return nil, err
	}
	h.Coordinator = coordinator.New(h.Manager, coordinator.WithNotifier(h.Notifier))
	return h, nil
}

// StartScheduler starts periodic synchronization at the configured interval
func (h *RegistryTestHelper) StartScheduler(ctx context.Context) error {
	interval, err := h.Config.GetSyncInterval()
	if err != nil {
		return err
	}
	h.Coordinator.Configure(ctx, interval)
	return nil
}

// Stop halts the scheduler and waits for running cycles
func (h *RegistryTestHelper) Stop() {
	h.Coordinator.Stop()
}

// Changes returns the deltas notified so far
func (h *RegistryTestHelper) Changes() []registry.Delta {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]registry.Delta(nil), h.changes...)
}

// Failures returns the cycle failures notified so far
func (h *RegistryTestHelper) Failures() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.failures...)
}

// Lookup returns the media types of path, or nil on error
func (h *RegistryTestHelper) Lookup(path string) []string {
	types, err := h.Manager.Lookup(path)
	if err != nil {
		return nil
	}
	return types
}

// WaitForLookup polls until path resolves to a non-empty list or timeout expires
func (h *RegistryTestHelper) WaitForLookup(path string, timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)
	for {
		if types := h.Lookup(path); len(types) > 0 || time.Now().After(deadline) {
			return types
		}
		time.Sleep(10 * time.Millisecond)
	}
}
