package textract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"claimflow/internal/domain"
	"claimflow/internal/port"
)

// Extractor implements port.TextExtractor for PDF and plain-text payloads.
type Extractor struct{}

// NewExtractor creates the default text extractor.
func NewExtractor() port.TextExtractor {
	return &Extractor{}
}

// ExtractText pulls the plain text out of a document payload. Any failure is
// returned as an error; the orchestrator degrades it to empty text.
func (e *Extractor) ExtractText(ctx context.Context, doc domain.DocumentInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(doc.Content) == 0 {
		return "", fmt.Errorf("extracting %s: empty payload", doc.Filename)
	}

	switch doc.ContentType {
	case "application/pdf":
		return extractPDF(doc)
	case "text/plain", "":
		return strings.TrimSpace(string(doc.Content)), nil
	default:
		return "", fmt.Errorf("extracting %s: %w: %s", doc.Filename, domain.ErrUnsupportedFileType, doc.ContentType)
	}
}

func extractPDF(doc domain.DocumentInput) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", doc.Filename, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text %s: %w", doc.Filename, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text %s: %w", doc.Filename, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
