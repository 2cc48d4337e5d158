package sync

import (
	"context"

	"github.com/stacklok/toolhive-mime-registry/internal/sources"
)

// VersionChangeDetector decides whether a source needs a full fetch
type VersionChangeDetector interface {
	// IsVersionChanged probes handler and compares its version token with
	// lastVersion. It returns the probed token.
	IsVersionChanged(ctx context.Context, handler sources.SourceHandler, lastVersion string) (bool, string, error)
}

// defaultVersionChangeDetector implements VersionChangeDetector
type defaultVersionChangeDetector struct{}

// IsVersionChanged reports a change when no token was accepted before, when
// the source exposes no token, or when the tokens differ
func (defaultVersionChangeDetector) IsVersionChanged(
	ctx context.Context, handler sources.SourceHandler, lastVersion string,
) (bool, string, error) {
	current, err := handler.CurrentVersion(ctx)
	if err != nil {
		return false, "", err
	}

	if lastVersion == "" || current == "" {
		return true, current, nil
	}
	return current != lastVersion, current, nil
}
