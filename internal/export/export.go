// Package export renders recipes and collections as JSON, Markdown, and HTML.
package export

import (
	"strings"

	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
)

// Format selects an export representation.
type Format string

const (
	// FormatJSON exports the stable document schema.
	FormatJSON Format = "json"
	// FormatMarkdown exports a human-readable Markdown rendering.
	FormatMarkdown Format = "markdown"
	// FormatHTML exports the Markdown rendering converted to HTML.
	FormatHTML Format = "html"
)

// ErrUnknownFormat indicates an unsupported export format.
var ErrUnknownFormat = apperrors.New(apperrors.CodeExportUnknownFormat, "export format must be json, markdown, or html")

// ParseFormat resolves a format string, defaulting to JSON.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", ErrUnknownFormat
	}
}

// ContentType returns the response content type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}
