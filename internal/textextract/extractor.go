// Package textextract provides the text-extraction service the pipeline
// consumes. OCR quality is out of scope: an empty result is legitimate.
package textextract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor turns a file into its plain text. Implementations may return
// an empty string for files they cannot read.
type Extractor interface {
	Extract(path string) (string, error)
}

// plainTextExtensions are read as-is without any decoding step.
var plainTextExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
	".log": true,
}

// Service is the default Extractor: PDF text via the pdf reader, plain
// text files verbatim, everything else empty.
type Service struct{}

// NewService creates the default extraction service.
func NewService() *Service {
	return &Service{}
}

// Extract returns the plain text of the file at path.
func (s *Service) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case ext == ".pdf":
		return extractPDF(path)
	case plainTextExtensions[ext]:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", nil
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		// Unreadable PDFs yield empty text rather than failing the file.
		return "", nil
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	r, err := reader.GetPlainText()
	if err != nil {
		return "", nil
	}
	if _, err := buf.ReadFrom(r); err != nil {
		return "", nil
	}
	return buf.String(), nil
}
