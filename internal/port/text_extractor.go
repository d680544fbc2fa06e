package port

import (
	"context"

	"claimflow/internal/domain"
)

// TextExtractor abstracts raw text extraction from document payloads.
// An error means the payload is unusable; callers treat that as empty text.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc domain.DocumentInput) (string, error)
}
