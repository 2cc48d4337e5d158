// Package sources provides interfaces and implementations for retrieving
// media type mappings from upstream registries.
//
// The package defines the SourceHandler interface which abstracts the
// process of probing an upstream document for its current version and
// fetching and parsing the full document.
//
// Architecture:
//   - SourceHandler: probes (CurrentVersion) and fetches (FetchRegistry) one source
//   - Parser: turns a document body into an extension to media type fragment
//   - FetchResult: the parsed fragment plus its version token
//
// Current implementations:
//   - httpSourceHandler: probes with HEAD and fetches with GET; the version
//     token is read from a cache validator header (ETag by default, falling
//     back to Last-Modified)
//   - fileSourceHandler: reads a local document; the version token is the
//     SHA256 of its content
//
// Parsers:
//   - TableParser: "type ext1 ext2" lines used by Apache httpd and Debian
//   - NginxParser: the "types { type ext1 ext2; }" block used by NGINX
//
// Every media type and extension is checked with the validators package.
// Lines and tokens failing validation are dropped without aborting the
// parse; a document yielding no association at all is an error.
package sources
