// Package extract provides text extraction from uploaded document payloads.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat indicates a file extension the extractor does not handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor extracts plain text from uploaded file payloads. It is stateless:
// payloads are processed in memory and never written to disk.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether filename has an extension the extractor handles.
// Callers use it to reject uploads before any extraction work is done.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// Extract returns the text content of the payload. The format is chosen by the
// filename extension: .txt and .md are decoded as UTF-8 with a permissive
// fallback for invalid sequences, .pdf is extracted page by page. Any other
// extension returns ErrUnsupportedFormat.
func (e *Extractor) Extract(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md":
		return extractPlain(content)
	case ".pdf":
		return extractPDF(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
