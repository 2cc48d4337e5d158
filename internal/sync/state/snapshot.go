// Package state persists the registry snapshot: the extension to media type
// registry together with the version token last accepted from each source.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/storage"
	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

// Snapshot is the persisted state of the registry
type Snapshot struct {
	// Registry maps extensions to media types
	Registry registry.Registry `json:"registry"`

	// Versions maps source names to the last accepted version token
	Versions map[string]string `json:"versions"`
}

// Empty returns a snapshot with an empty registry and no version tokens
func Empty() *Snapshot {
	return &Snapshot{
		Registry: registry.New(),
		Versions: make(map[string]string),
	}
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	versions := maps.Clone(s.Versions)
	if versions == nil {
		versions = make(map[string]string)
	}
	return &Snapshot{
		Registry: s.Registry.Clone(),
		Versions: versions,
	}
}

// Equal reports whether both snapshots hold the same registry and versions
func (s *Snapshot) Equal(other *Snapshot) bool {
	return s.Registry.Equal(other.Registry) && maps.Equal(s.Versions, other.Versions)
}

// Version returns the token last accepted from source, or "" when the
// source was never synchronized
func (s *Snapshot) Version(source string) string {
	return s.Versions[source]
}

// Service loads and saves snapshots
type Service interface {
	// Load returns the persisted snapshot. A missing or unreadable snapshot
	// yields an empty one; Load never fails.
	Load(ctx context.Context) *Snapshot

	// Save persists the snapshot
	Save(ctx context.Context, snapshot *Snapshot) error
}

type snapshotService struct {
	store storage.Store
	name  string
}

// NewSnapshotService creates a snapshot service storing the snapshot as the
// blob called name
func NewSnapshotService(store storage.Store, name string) Service {
	return &snapshotService{
		store: store,
		name:  name,
	}
}

func (s *snapshotService) Load(ctx context.Context) *Snapshot {
	data, err := s.store.Read(ctx, s.name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			zap.S().Infow("No snapshot found, starting with an empty registry", "snapshot", s.name)
		} else {
			zap.S().Warnw("Failed to read snapshot, starting with an empty registry",
				"snapshot", s.name, "error", err)
		}
		return Empty()
	}

	snapshot, err := decode(data)
	if err != nil {
		zap.S().Warnw("Snapshot is corrupt, starting with an empty registry",
			"snapshot", s.name, "error", err)
		return Empty()
	}

	zap.S().Infow("Loaded snapshot",
		"snapshot", s.name,
		"extensions", snapshot.Registry.Len(),
		"sources", len(snapshot.Versions))
	return snapshot
}

func (s *snapshotService) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.store.Write(ctx, s.name, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// decode parses a snapshot and drops entries that fail validation
func decode(data []byte) (*Snapshot, error) {
	var raw struct {
		Registry map[string][]string `json:"registry"`
		Versions map[string]string   `json:"versions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	snapshot := Empty()
	dropped := 0
	for ext, types := range raw.Registry {
		key, err := validators.ValidateExtension(ext)
		if err != nil {
			dropped += len(types)
			continue
		}
		for _, mt := range types {
			parsed, err := validators.ParseMediaType(mt)
			if err != nil {
				dropped++
				continue
			}
			snapshot.Registry.Merge(key, []string{parsed.String()})
		}
	}
	for source, version := range raw.Versions {
		if version != "" {
			snapshot.Versions[source] = version
		}
	}

	if dropped > 0 {
		zap.S().Warnw("Dropped invalid snapshot entries", "count", dropped)
	}
	return snapshot, nil
}
