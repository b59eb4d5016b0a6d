// Package extract turns uploaded PDF, DOCX and Markdown documents into plain text.
package extract

import (
	"path/filepath"
	"strings"

	"doc-qa/internal/apperr"
)

// Format identifies a supported document type.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
)

var extensions = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".md":   FormatMarkdown,
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".md"}
}

func unsupported(filename string) error {
	return &apperr.UnsupportedFormatError{
		Filename:  filename,
		Extension: strings.ToLower(filepath.Ext(filename)),
		Supported: SupportedExtensions(),
	}
}

// ParseFormat selects a format from the filename's extension, case-insensitively.
func ParseFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", unsupported(filename)
}

// Extract returns the plain-text content of data, dispatching on the extension of filename.
func Extract(data []byte, filename string) (string, error) {
	format, err := ParseFormat(filename)
	if err != nil {
		return "", err
	}
	return ExtractFormat(data, filename, format)
}

// ExtractFormat extracts data with an already parsed format.
func ExtractFormat(data []byte, filename string, format Format) (string, error) {
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatMarkdown:
		text, err = extractMarkdown(data)
	default:
		return "", unsupported(filename)
	}
	if err != nil {
		return "", &apperr.ExtractionFailedError{Filename: filename, Cause: err}
	}
	return text, nil
}
