package validators

import (
	"regexp"
	"strings"
)

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9!#$&^_+-]+$`)

// ValidateExtension checks that token is a well-formed file extension and
// returns it lowercased.
//
// An extension is a non-empty run of [A-Za-z0-9!#$&^_+-]. Dots and path
// separators are not allowed.
func ValidateExtension(token string) (string, error) {
	if token == "" {
		return "", malformed("extension", token, "extension cannot be empty")
	}
	if !extensionPattern.MatchString(token) {
		return "", malformed("extension", token, "extension may only contain [A-Za-z0-9!#$&^_+-]")
	}
	return strings.ToLower(token), nil
}

// IsValidExtension reports whether token is a well-formed file extension
func IsValidExtension(token string) bool {
	_, err := ValidateExtension(token)
	return err == nil
}

// ExtensionFromPath derives the extension of the file named by path.
//
// The extension is the text after the last dot of the final path element.
// A final element without any dot is taken as a bare extension, so "jpg"
// and "photo.jpg" resolve to the same key. A trailing dot ("fileName.")
// yields an empty extension, which is malformed.
func ExtensionFromPath(path string) (string, error) {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	ext := base
	if i := strings.LastIndex(base, "."); i >= 0 {
		ext = base[i+1:]
	}

	if ext == "" {
		return "", malformed("path", path, "path has no extension")
	}
	if !extensionPattern.MatchString(ext) {
		return "", malformed("path", path, "path extension may only contain [A-Za-z0-9!#$&^_+-]")
	}
	return strings.ToLower(ext), nil
}
