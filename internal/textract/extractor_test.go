package textract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/domain"
	"claimflow/internal/textract"
)

func TestExtractText_PlainText(t *testing.T) {
	e := textract.NewExtractor()

	text, err := e.ExtractText(context.Background(), domain.DocumentInput{
		Filename:    "bill.txt",
		Content:     []byte("  HOSPITAL BILL\ntotal 500  \n"),
		ContentType: "text/plain",
	})

	require.NoError(t, err)
	assert.Equal(t, "HOSPITAL BILL\ntotal 500", text)
}

func TestExtractText_MissingContentTypeTreatedAsText(t *testing.T) {
	e := textract.NewExtractor()

	text, err := e.ExtractText(context.Background(), domain.DocumentInput{
		Filename: "notes",
		Content:  []byte("plain content"),
	})

	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestExtractText_EmptyPayload(t *testing.T) {
	e := textract.NewExtractor()

	_, err := e.ExtractText(context.Background(), domain.DocumentInput{
		Filename:    "empty.txt",
		ContentType: "text/plain",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty payload")
}

func TestExtractText_UnsupportedContentType(t *testing.T) {
	e := textract.NewExtractor()

	_, err := e.ExtractText(context.Background(), domain.DocumentInput{
		Filename:    "scan.tiff",
		Content:     []byte{0x49, 0x49, 0x2a},
		ContentType: "image/tiff",
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestExtractText_CorruptPDF(t *testing.T) {
	e := textract.NewExtractor()

	_, err := e.ExtractText(context.Background(), domain.DocumentInput{
		Filename:    "broken.pdf",
		Content:     []byte("definitely not a pdf"),
		ContentType: "application/pdf",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestExtractText_CanceledContext(t *testing.T) {
	e := textract.NewExtractor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractText(ctx, domain.DocumentInput{
		Filename:    "bill.txt",
		Content:     []byte("text"),
		ContentType: "text/plain",
	})

	assert.ErrorIs(t, err, context.Canceled)
}
