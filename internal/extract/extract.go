// Package extract converts uploaded transcript payloads into plain text.
// Plain text (.txt, .md) and DOCX are supported; anything else is rejected
// so garbage never reaches the chunking and embedding stages.
package extract

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for payload formats the service cannot
// convert to text.
var ErrUnsupportedType = errors.New("unsupported document type")

// Extractor extracts plain text from uploaded transcript files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of payload, dispatching on the
// lowercased extension of fileName. A missing extension is treated as
// plain text, matching how transcript exports usually arrive.
func (e *Extractor) Extract(payload []byte, fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", "":
		return extractPlain(payload)
	case ".docx":
		return extractDOCX(payload)
	default:
		return "", ErrUnsupportedType
	}
}
