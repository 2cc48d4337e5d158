package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/notify"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/sources"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/state"
	"github.com/stacklok/toolhive-mime-registry/internal/telemetry"
	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

// ErrMissingVersion is recorded when a fetched document carries no version token
var ErrMissingVersion = errors.New("response carries no version token")

// Manager synchronizes the registry with its sources and applies manual edits
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks -source=manager.go Manager
type Manager interface {
	// Synchronize runs one synchronization cycle and returns the associations
	// it added. Per-source failures are recorded in the cycle report; only a
	// persistence failure is returned as an error.
	Synchronize(ctx context.Context, force bool) (registry.Delta, error)

	// SetOne adds a single association and reports whether it was new
	SetOne(ctx context.Context, extension, mediaType string) (bool, error)

	// DeleteOne removes a single association and reports whether it existed
	DeleteOne(ctx context.Context, extension, mediaType string) (bool, error)

	// Lookup returns the media types associated with the extension of path
	Lookup(path string) ([]string, error)

	// Snapshot returns a copy of the current registry and version tokens
	Snapshot() *state.Snapshot

	// LastReport returns the report of the last completed cycle, or nil
	LastReport() *CycleReport
}

// Option configures the default manager
type Option func(*defaultSyncManager)

// WithNotifier publishes change notifications to n
func WithNotifier(n *notify.Notifier) Option {
	return func(s *defaultSyncManager) {
		s.notifier = n
	}
}

// WithSyncMetrics records per-source metrics
func WithSyncMetrics(m *telemetry.SyncMetrics) Option {
	return func(s *defaultSyncManager) {
		s.syncMetrics = m
	}
}

// WithRegistryMetrics records the registry size after each change
func WithRegistryMetrics(m *telemetry.RegistryMetrics) Option {
	return func(s *defaultSyncManager) {
		s.registryMetrics = m
	}
}

// WithTracer traces cycles and sources with tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(s *defaultSyncManager) {
		s.tracer = tracer
	}
}

// WithVersionChangeDetector replaces the default detector
func WithVersionChangeDetector(d VersionChangeDetector) Option {
	return func(s *defaultSyncManager) {
		s.detector = d
	}
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	handlers     []sources.SourceHandler
	stateService state.Service
	detector     VersionChangeDetector

	notifier        *notify.Notifier
	syncMetrics     *telemetry.SyncMetrics
	registryMetrics *telemetry.RegistryMetrics
	tracer          trace.Tracer

	// mu guards state and lastReport. Every mutation and its persistence
	// happen while holding it.
	mu         gosync.RWMutex
	state      *state.Snapshot
	lastReport *CycleReport
}

// sourceResult is the settled outcome of one source
type sourceResult struct {
	source  string
	outcome Outcome
	version string
	result  *sources.FetchResult
	err     error
}

// NewDefaultSyncManager creates a manager for srcs and loads the persisted snapshot
func NewDefaultSyncManager(
	ctx context.Context,
	factory sources.SourceHandlerFactory,
	srcs []config.SourceConfig,
	stateService state.Service,
	opts ...Option,
) (Manager, error) {
	handlers := make([]sources.SourceHandler, 0, len(srcs))
	for _, src := range srcs {
		handler, err := factory.CreateHandler(src)
		if err != nil {
			return nil, fmt.Errorf("failed to create handler for source %s: %w", src.Name, err)
		}
		handlers = append(handlers, handler)
	}

	s := &defaultSyncManager{
		handlers:     handlers,
		stateService: stateService,
		detector:     defaultVersionChangeDetector{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state = stateService.Load(ctx)
	s.registryMetrics.RecordRegistrySize(ctx, s.state.Registry.Len(), s.state.Registry.Associations())

	return s, nil
}

// Synchronize runs one synchronization cycle
func (s *defaultSyncManager) Synchronize(ctx context.Context, force bool) (registry.Delta, error) {
	ctx, span := telemetry.StartSpan(ctx, s.tracer, "sync.Synchronize",
		trace.WithAttributes(telemetry.AttrSyncForce.Bool(force)))
	defer span.End()

	started := time.Now()
	report := newCycleReport(force, started)

	results := s.fetchAll(ctx, s.versions(), force)
	delta, err := s.merge(ctx, results, report)

	report.Duration = time.Since(started)
	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		zap.S().Errorw("Synchronization failed", "error", err)
		return nil, err
	}

	span.SetAttributes(telemetry.AttrDeltaCount.Int(delta.Count()))
	zap.S().Infow("Synchronization completed",
		"force", force,
		"added", delta.Count(),
		"persisted", report.Persisted,
		"failedSources", report.Failed(),
		"duration", report.Duration)

	s.notifier.NotifyChange(delta)
	return delta, nil
}

// versions returns a copy of the accepted version tokens
func (s *defaultSyncManager) versions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Versions
}

// fetchAll probes and fetches every source concurrently. Tasks never fail
// the group, so every source settles independently.
func (s *defaultSyncManager) fetchAll(ctx context.Context, versions map[string]string, force bool) []sourceResult {
	results := make([]sourceResult, len(s.handlers))

	var g errgroup.Group
	for i, handler := range s.handlers {
		g.Go(func() error {
			results[i] = s.syncSource(ctx, handler, versions[handler.Name()], force)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *defaultSyncManager) syncSource(
	ctx context.Context, handler sources.SourceHandler, lastVersion string, force bool,
) (res sourceResult) {
	name := handler.Name()
	ctx, span := telemetry.StartSpan(ctx, s.tracer, "sync.source",
		trace.WithAttributes(telemetry.AttrSourceName.String(name)))
	started := time.Now()
	defer func() {
		span.SetAttributes(telemetry.AttrSyncOutcome.String(string(res.outcome)))
		telemetry.RecordError(span, res.err)
		span.End()
		s.syncMetrics.RecordSourceSync(ctx, name, string(res.outcome), time.Since(started))
	}()

	changed, current, err := s.detector.IsVersionChanged(ctx, handler, lastVersion)
	if err != nil {
		return failedSource(name, OutcomeProbeFailed, err)
	}
	if !force && !changed {
		zap.S().Debugw("Source unchanged", "source", name, "version", current)
		return sourceResult{source: name, outcome: OutcomeUnchanged, version: current}
	}

	result, err := handler.FetchRegistry(ctx)
	if err != nil {
		if errors.Is(err, sources.ErrNoAssociations) {
			return failedSource(name, OutcomeParseFailed, err)
		}
		return failedSource(name, OutcomeFetchFailed, err)
	}
	if result.Version == "" {
		return failedSource(name, OutcomeNoVersion, ErrMissingVersion)
	}
	if result.Content.Len() == 0 {
		return failedSource(name, OutcomeParseFailed, sources.ErrNoAssociations)
	}

	return sourceResult{
		source:  name,
		outcome: OutcomeMerged,
		version: result.Version,
		result:  result,
	}
}

func failedSource(name string, outcome Outcome, err error) sourceResult {
	return sourceResult{
		source:  name,
		outcome: outcome,
		err:     &Error{Err: err, Source: name, Outcome: outcome},
	}
}

// merge folds the accepted fragments into a copy of the state, in source
// order, and commits the copy when anything changed
func (s *defaultSyncManager) merge(ctx context.Context, results []sourceResult, report *CycleReport) (registry.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	delta := registry.NewDelta()
	versionsChanged := false

	for _, res := range results {
		entry := SourceReport{Outcome: res.outcome, Version: res.version}

		if res.err != nil {
			entry.Error = res.err.Error()
			zap.S().Warnw("Source skipped for this cycle",
				"source", res.source,
				"outcome", res.outcome,
				"error", res.err)
		}

		if res.result != nil {
			added := next.Registry.MergeFragment(res.result.Content)
			for ext, types := range added {
				delta.Add(ext, types)
			}
			if next.Versions[res.source] != res.result.Version {
				next.Versions[res.source] = res.result.Version
				versionsChanged = true
			}
			entry.Added = added.Count()
			s.syncMetrics.RecordAssociationsAdded(ctx, res.source, entry.Added)
			zap.S().Infow("Merged source",
				"source", res.source,
				"version", res.result.Version,
				"associations", res.result.AssociationCount,
				"added", entry.Added)
		}

		report.Sources[res.source] = entry
	}
	report.Added = delta.Count()

	if delta.IsEmpty() && !versionsChanged {
		return delta, nil
	}

	if err := s.commit(ctx, next); err != nil {
		report.Error = err.Error()
		return nil, err
	}
	report.Persisted = true
	return delta, nil
}

// commit persists next and makes it the live state. Callers hold mu.
func (s *defaultSyncManager) commit(ctx context.Context, next *state.Snapshot) error {
	if err := s.stateService.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist registry: %w", err)
	}
	s.state = next
	s.registryMetrics.RecordRegistrySize(ctx, next.Registry.Len(), next.Registry.Associations())
	return nil
}

// mutate applies fn to a copy of the state and commits it when fn reports a change
func (s *defaultSyncManager) mutate(ctx context.Context, fn func(next *state.Snapshot) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if !fn(next) {
		return false, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// SetOne adds a single association
func (s *defaultSyncManager) SetOne(ctx context.Context, extension, mediaType string) (bool, error) {
	ext, mt, err := validators.ValidatePair(extension, mediaType)
	if err != nil {
		return false, err
	}

	added, err := s.mutate(ctx, func(next *state.Snapshot) bool {
		return next.Registry.Set(ext, mt.String())
	})
	if added {
		zap.S().Infow("Association added", "extension", ext, "mediaType", mt.String())
	}
	return added, err
}

// DeleteOne removes a single association, matching the media type by essence
func (s *defaultSyncManager) DeleteOne(ctx context.Context, extension, mediaType string) (bool, error) {
	ext, mt, err := validators.ValidatePair(extension, mediaType)
	if err != nil {
		return false, err
	}

	removed, err := s.mutate(ctx, func(next *state.Snapshot) bool {
		return next.Registry.Delete(ext, mt.Essence())
	})
	if removed {
		zap.S().Infow("Association removed", "extension", ext, "mediaType", mt.Essence())
	}
	return removed, err
}

// Lookup returns the media types associated with the extension of path.
// The result is empty when the extension is unknown.
func (s *defaultSyncManager) Lookup(path string) ([]string, error) {
	ext, err := validators.ExtensionFromPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Registry.Lookup(ext), nil
}

// Snapshot returns a copy of the current state
func (s *defaultSyncManager) Snapshot() *state.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// LastReport returns a copy of the last cycle report
func (s *defaultSyncManager) LastReport() *CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport.clone()
}
