// Package registry provides the in-memory data model for the extension to
// media type mapping.
//
// # Core Types
//
//   - Registry: maps a lowercase extension to an ordered set of media types
//   - Delta: the associations newly added during one synchronization cycle
//
// # Set Semantics
//
// Media types within an extension are compared by their essence, the
// lowercase type/subtype without parameters. An extension never holds two
// media types sharing an essence. After every mutation the set is sorted so
// that serialized output is deterministic:
//
//	reg := registry.New()
//	reg.Merge("jpg", []string{"image/jpeg", "IMAGE/JPEG"}) // returns ["image/jpeg"]
//	reg.Merge("jpg", []string{"image/pjpeg"})              // returns ["image/pjpeg"]
//	reg.Lookup("jpg")                                      // ["image/jpeg", "image/pjpeg"]
//
// Registry methods do not validate grammar; callers validate extensions and
// media types with the validators package before mutating.
//
// # Test Utilities
//
// NewTestRegistry builds registries for tests using the options pattern:
//
//	reg := registry.NewTestRegistry(
//	    registry.WithEntry("jpg", "image/jpeg"),
//	    registry.WithEntry("html", "text/html"),
//	)
package registry
