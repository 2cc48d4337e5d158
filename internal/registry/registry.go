package registry

import (
	"maps"
	"slices"
	"strings"

	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

// Registry maps a lowercase extension to its media types
type Registry map[string][]string

// New creates an empty registry
func New() Registry {
	return make(Registry)
}

// Merge adds mediaTypes to extension and returns only the media types that
// were not already present by essence. Duplicates within mediaTypes are
// skipped as well.
func (r Registry) Merge(extension string, mediaTypes []string) []string {
	ext := strings.ToLower(extension)
	current := r[ext]

	seen := make(map[string]struct{}, len(current)+len(mediaTypes))
	for _, mt := range current {
		seen[validators.Essence(mt)] = struct{}{}
	}

	var added []string
	for _, mt := range mediaTypes {
		normalized := normalize(mt)
		if normalized == "" {
			continue
		}
		essence := validators.Essence(normalized)
		if _, exists := seen[essence]; exists {
			continue
		}
		seen[essence] = struct{}{}
		added = append(added, normalized)
	}

	if len(added) == 0 {
		return nil
	}

	updated := make([]string, 0, len(current)+len(added))
	updated = append(updated, current...)
	updated = append(updated, added...)
	slices.Sort(updated)
	r[ext] = updated

	return added
}

// Set adds a single association and reports whether it was new
func (r Registry) Set(extension, mediaType string) bool {
	return len(r.Merge(extension, []string{mediaType})) > 0
}

// Delete removes the media type sharing the essence of mediaType from
// extension. The extension is removed when its set becomes empty.
// It reports whether anything was removed.
func (r Registry) Delete(extension, mediaType string) bool {
	ext := strings.ToLower(extension)
	current, ok := r[ext]
	if !ok {
		return false
	}

	essence := validators.Essence(mediaType)
	idx := slices.IndexFunc(current, func(mt string) bool {
		return validators.Essence(mt) == essence
	})
	if idx < 0 {
		return false
	}

	updated := slices.Delete(slices.Clone(current), idx, idx+1)
	if len(updated) == 0 {
		delete(r, ext)
	} else {
		r[ext] = updated
	}
	return true
}

// Lookup returns a copy of the media types associated with extension.
// The result is empty, not nil, when the extension is unknown.
func (r Registry) Lookup(extension string) []string {
	current, ok := r[strings.ToLower(extension)]
	if !ok {
		return []string{}
	}
	return slices.Clone(current)
}

// Contains reports whether extension is associated with a media type
// sharing the essence of mediaType
func (r Registry) Contains(extension, mediaType string) bool {
	essence := validators.Essence(mediaType)
	return slices.ContainsFunc(r[strings.ToLower(extension)], func(mt string) bool {
		return validators.Essence(mt) == essence
	})
}

// Extensions returns the sorted list of known extensions
func (r Registry) Extensions() []string {
	return slices.Sorted(maps.Keys(r))
}

// Len returns the number of extensions
func (r Registry) Len() int {
	return len(r)
}

// Associations returns the total number of extension/media type pairs
func (r Registry) Associations() int {
	total := 0
	for _, types := range r {
		total += len(types)
	}
	return total
}

// Clone returns a deep copy of the registry
func (r Registry) Clone() Registry {
	clone := make(Registry, len(r))
	for ext, types := range r {
		clone[ext] = slices.Clone(types)
	}
	return clone
}

// Equal reports whether both registries hold the same associations in the same order
func (r Registry) Equal(other Registry) bool {
	return maps.EqualFunc(r, other, func(a, b []string) bool {
		return slices.Equal(a, b)
	})
}

func normalize(mediaType string) string {
	mt, err := validators.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt.String()
}
