package sources

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

// Parser turns a source document into extension to media type associations
type Parser interface {
	// Parse parses body. It fails with ErrNoAssociations when no valid
	// association is found.
	Parse(body []byte) (registry.Registry, error)
}

// NewParser returns the parser for a source format
func NewParser(format string) (Parser, error) {
	switch format {
	case config.FormatApache, config.FormatDebian:
		return TableParser{}, nil
	case config.FormatNginx:
		return NginxParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// TableParser parses documents made of "mediaType ext1 ext2 ..." lines.
// Blank lines and lines starting with '#' are skipped.
type TableParser struct{}

// Parse parses a table document
func (TableParser) Parse(body []byte) (registry.Registry, error) {
	content := registry.New()

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addEntry(content, strings.Fields(line))
	}

	if content.Len() == 0 {
		return nil, ErrNoAssociations
	}
	return content, nil
}

var nginxBlockStart = regexp.MustCompile(`^\s*types\s*\{`)

// NginxParser parses the NGINX "types { ... }" block.
//
// Comments run from '#' to the end of the line. Statements end with ';'
// and may span lines: a line of extensions continues an entry that has a
// media type but no extensions yet. Any other line starts a new entry, so
// documents without terminators are read line by line like a table and a
// malformed line is discarded on its own.
type NginxParser struct{}

// Parse parses an NGINX types document
func (NginxParser) Parse(body []byte) (registry.Registry, error) {
	text := stripLineComments(string(body))

	if loc := nginxBlockStart.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
		if end := strings.LastIndex(text, "}"); end >= 0 && strings.TrimSpace(text[end+1:]) == "" {
			text = text[:end]
		}
	}

	content := registry.New()
	for _, statement := range strings.Split(text, ";") {
		var entry []string
		for _, line := range strings.Split(statement, "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if len(entry) == 1 && !strings.Contains(fields[0], "/") && allExtensions(fields) {
				entry = append(entry, fields...)
				continue
			}
			addEntry(content, entry)
			entry = fields
		}
		addEntry(content, entry)
	}

	if content.Len() == 0 {
		return nil, ErrNoAssociations
	}
	return content, nil
}

// addEntry validates one "mediaType ext..." entry and merges it into content.
// An invalid media type discards the whole entry; invalid extensions are
// dropped individually.
func addEntry(content registry.Registry, fields []string) {
	if len(fields) < 2 {
		return
	}

	mediaType, err := validators.ParseMediaType(fields[0])
	if err != nil {
		return
	}

	for _, candidate := range fields[1:] {
		ext, err := validators.ValidateExtension(candidate)
		if err != nil {
			continue
		}
		content.Merge(ext, []string{mediaType.String()})
	}
}

func allExtensions(fields []string) bool {
	for _, f := range fields {
		if !validators.IsValidExtension(f) {
			return false
		}
	}
	return true
}

func stripLineComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}
