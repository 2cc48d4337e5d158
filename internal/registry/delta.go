package registry

import (
	"maps"
	"slices"
)

// Delta maps an extension to the media types newly added to it during one
// synchronization cycle. It never contains media types that already existed.
type Delta map[string][]string

// NewDelta creates an empty delta
func NewDelta() Delta {
	return make(Delta)
}

// Add records newly added media types for extension. Empty input is ignored.
func (d Delta) Add(extension string, added []string) {
	if len(added) == 0 {
		return
	}
	d[extension] = append(d[extension], added...)
}

// IsEmpty reports whether the delta holds no additions
func (d Delta) IsEmpty() bool {
	return len(d) == 0
}

// Count returns the total number of added associations
func (d Delta) Count() int {
	total := 0
	for _, added := range d {
		total += len(added)
	}
	return total
}

// Extensions returns the sorted list of extensions in the delta
func (d Delta) Extensions() []string {
	return slices.Sorted(maps.Keys(d))
}

// MergeFragment merges every association of content into r and returns the
// associations that were new
func (r Registry) MergeFragment(content map[string][]string) Delta {
	delta := NewDelta()
	// Sorted iteration keeps merge order deterministic
	for _, ext := range slices.Sorted(maps.Keys(content)) {
		delta.Add(ext, r.Merge(ext, content[ext]))
	}
	return delta
}
