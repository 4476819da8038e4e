package ingestion

import (
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates supported document payload formats.
type DocumentFormat string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown DocumentFormat = ""
	// FormatPDF represents PDF documents.
	FormatPDF DocumentFormat = "pdf"
	// FormatDocx represents Word documents (.docx/.doc).
	FormatDocx DocumentFormat = "docx"
	// FormatCSV represents comma separated values documents.
	FormatCSV DocumentFormat = "csv"
	// FormatHTML represents HTML documents.
	FormatHTML DocumentFormat = "html"
	// FormatText represents plain text and Markdown documents.
	FormatText DocumentFormat = "text"
)

// DetectFormat infers a document format from the provided path's extension.
// The match is case-insensitive; anything outside the fixed table maps to
// FormatUnknown and is skipped by the loader rather than treated as an error.
func DetectFormat(path string) DocumentFormat {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDocx
	case ".csv":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	case ".txt", ".md":
		return FormatText
	default:
		return FormatUnknown
	}
}
