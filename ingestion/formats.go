// Package ingestion turns uploaded DOCX and PDF files into normalized, chunked
// content and hands the results to a document store.
package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates supported document payload formats.
type DocumentFormat string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown DocumentFormat = ""
	// FormatDOCX represents Office Open XML word processing documents.
	FormatDOCX DocumentFormat = "docx"
	// FormatPDF represents PDF documents.
	FormatPDF DocumentFormat = "pdf"
)

// DetectFormat infers a document format from the lower-cased extension of name.
func DetectFormat(name string) DocumentFormat {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".docx":
		return FormatDOCX
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// ParseFormat is DetectFormat with an ErrUnsupportedFormat error for unknown extensions.
func ParseFormat(name string) (DocumentFormat, error) {
	format := DetectFormat(name)
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, strings.ToLower(filepath.Ext(name)))
	}
	return format, nil
}
