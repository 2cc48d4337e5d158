package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/httpclient"
	"github.com/stacklok/toolhive-mime-registry/internal/notify"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/sources"
	"github.com/stacklok/toolhive-mime-registry/internal/storage"
	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/state"
	"github.com/stacklok/toolhive-mime-registry/internal/telemetry"
)

// components holds everything a command needs to talk to the registry
type components struct {
	config    *config.Config
	manager   pkgsync.Manager
	notifier  *notify.Notifier
	telemetry *telemetry.Telemetry
}

// loadConfig reads the configuration file, if any, and applies flag and
// environment overrides
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString(flagConfig); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dataDir := viper.GetString(flagDataDir); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if interval := viper.GetString(flagSyncInterval); interval != "" {
		cfg.SyncInterval = interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildComponents wires the manager and its collaborators from configuration.
// The caller must call close.
func buildComponents(ctx context.Context) (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tel.TracerProvider())
	otel.SetMeterProvider(tel.MeterProvider())

	c := &components{
		config:    cfg,
		notifier:  notify.New(),
		telemetry: tel,
	}

	manager, err := c.newManager(ctx)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	c.manager = manager

	c.notifier.OnChange(func(delta registry.Delta) {
		zap.S().Infow("Registry changed",
			"extensions", delta.Extensions(),
			"added", delta.Count())
	})

	return c, nil
}

func (c *components) newManager(ctx context.Context) (pkgsync.Manager, error) {
	timeout, err := c.config.GetHTTPTimeout()
	if err != nil {
		return nil, err
	}
	client := httpclient.NewDefaultClient(timeout, httpclient.WithMaxRetries(c.config.HTTP.MaxRetries))

	syncMetrics, err := telemetry.NewSyncMetrics(c.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	registryMetrics, err := telemetry.NewRegistryMetrics(c.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create registry metrics: %w", err)
	}

	stateService := state.NewSnapshotService(storage.NewFileStore(c.config.DataDir), c.config.SnapshotName)

	return pkgsync.NewDefaultSyncManager(ctx,
		sources.NewSourceHandlerFactory(client),
		c.config.EnabledSources(),
		stateService,
		pkgsync.WithNotifier(c.notifier),
		pkgsync.WithSyncMetrics(syncMetrics),
		pkgsync.WithRegistryMetrics(registryMetrics),
		pkgsync.WithTracer(c.telemetry.TracerProvider().Tracer(telemetry.TracerName)),
	)
}

// close flushes telemetry
func (c *components) close(ctx context.Context) {
	if err := c.telemetry.Shutdown(ctx); err != nil {
		zap.S().Warnw("Failed to shut down telemetry", "error", err)
	}
}

// withComponents builds the components, runs fn and closes them
func withComponents(ctx context.Context, fn func(*components) error) error {
	c, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer c.close(context.WithoutCancel(ctx))
	return fn(c)
}
