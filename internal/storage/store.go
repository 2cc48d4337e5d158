// Package storage provides named blob persistence for registry snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

const lockRetryDelay = 50 * time.Millisecond

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store defines the interface for reading and writing named byte blobs
type Store interface {
	// Read returns the content of the named blob, or ErrNotFound
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the content of the named blob
	Write(ctx context.Context, name string, data []byte) error
}

// fileStore implements Store using local filesystem
type fileStore struct {
	basePath string
}

// NewFileStore creates a new file-based store rooted at basePath
func NewFileStore(basePath string) Store {
	return &fileStore{
		basePath: basePath,
	}
}

// Read reads the named blob from disk
func (f *fileStore) Read(_ context.Context, name string) ([]byte, error) {
	filePath, err := f.path(name)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // File path is internally managed by the store, not user input
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}

	return data, nil
}

// Write writes the named blob atomically while holding an exclusive file lock
func (f *fileStore) Write(ctx context.Context, name string, data []byte) error {
	filePath, err := f.path(name)
	if err != nil {
		return err
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	fileLock := flock.New(filePath + ".lock")
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock blob %s: %w", name, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock blob %s", name)
	}
	defer func() {
		_ = fileLock.Unlock()
	}()

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary blob file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, filePath); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename blob file: %w", err)
	}

	return nil
}

func (f *fileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(f.basePath, name), nil
}

// memoryStore implements Store in memory
type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		blobs: make(map[string][]byte),
	}
}

// Read returns a copy of the named blob
func (m *memoryStore) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data under name
func (m *memoryStore) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte(nil), data...)
	return nil
}
