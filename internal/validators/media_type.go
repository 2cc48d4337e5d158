package validators

import (
	"regexp"
	"strings"
)

const maxRestrictedNameLength = 127

var (
	// restricted-name from RFC 6838 section 4.2
	restrictedNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*$`)

	parameterNamePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*$`)
	parameterValuePattern = regexp.MustCompile(`^(?:"(?:[^"\\]|\\.)*"|[^\s;"]+)$`)
)

// MediaType is a parsed media type
type MediaType struct {
	// Type is the lowercase top-level type (e.g. "image")
	Type string

	// Subtype is the lowercase subtype including facets and suffix (e.g. "vnd.api+json")
	Subtype string

	// Params holds the parameters in their original order, without surrounding whitespace
	Params []string
}

// Essence returns type/subtype without parameters
func (m MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

// String returns the normalized form of the media type.
// Parameters are kept, separated by "; ".
func (m MediaType) String() string {
	if len(m.Params) == 0 {
		return m.Essence()
	}
	return m.Essence() + "; " + strings.Join(m.Params, "; ")
}

// ParseMediaType parses a media type of the form type "/" subtype [";" params].
//
// Both type and subtype must be RFC 6838 restricted names. Facet prefixes
// (vnd., prs., x.) and structured syntax suffixes (+xml) are part of the
// subtype grammar. Parameters must be name=value pairs. Matching is
// case-insensitive and the result is lowercased.
func ParseMediaType(token string) (MediaType, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return MediaType{}, malformed("mediaType", token, "media type cannot be empty")
	}

	parts := strings.Split(raw, ";")
	essence := strings.ToLower(strings.TrimSpace(parts[0]))

	typ, subtype, found := strings.Cut(essence, "/")
	if !found {
		return MediaType{}, malformed("mediaType", token, "media type must be in format 'type/subtype'")
	}
	if !isRestrictedName(typ) {
		return MediaType{}, malformed("mediaType", token, "invalid type '"+typ+"'")
	}
	if !isRestrictedName(subtype) {
		return MediaType{}, malformed("mediaType", token, "invalid subtype '"+subtype+"'")
	}
	if strings.HasSuffix(subtype, "+") || strings.HasSuffix(subtype, ".") {
		return MediaType{}, malformed("mediaType", token, "subtype cannot end with a facet or suffix separator")
	}

	var params []string
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			// tolerate a trailing ";"
			continue
		}
		name, value, ok := strings.Cut(p, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if !ok || !parameterNamePattern.MatchString(name) || !parameterValuePattern.MatchString(value) {
			return MediaType{}, malformed("mediaType", token, "invalid parameter '"+p+"'")
		}
		params = append(params, name+"="+value)
	}

	return MediaType{Type: typ, Subtype: subtype, Params: params}, nil
}

// IsValidMediaType reports whether token is a well-formed media type
func IsValidMediaType(token string) bool {
	_, err := ParseMediaType(token)
	return err == nil
}

// Essence returns the lowercase type/subtype of a media type, or the
// lowercased input when it cannot be parsed.
func Essence(mediaType string) string {
	mt, err := ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt.Essence()
}

func isRestrictedName(name string) bool {
	return len(name) > 0 && len(name) <= maxRestrictedNameLength && restrictedNamePattern.MatchString(name)
}
