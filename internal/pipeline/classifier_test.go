package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"claimflow/internal/domain"
	"claimflow/internal/pipeline"
	"claimflow/internal/reasoner"
	"claimflow/mocks"
)

const (
	testCallTimeout  = time.Second
	testRetryBackoff = time.Millisecond
)

func TestClassify_Success(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"type": "bill", "confidence": 0.93, "reasoning": "itemized charges with totals"}`), nil).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "bill.pdf", "HOSPITAL BILL Total: $1,200")

	assert.Equal(t, domain.DocTypeBill, got.Type)
	assert.InDelta(t, 0.93, got.Confidence, 1e-9)
	assert.Equal(t, "itemized charges with totals", got.Reasoning)
	r.AssertExpectations(t)
}

func TestClassify_EmptyTextSkipsReasoner(t *testing.T) {
	r := new(mocks.MockReasoner)

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "blank.pdf", "   \n\t ")

	assert.Equal(t, domain.DocTypeUnknown, got.Type)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "document text is empty", got.Reasoning)
	r.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestClassify_ProviderFailureDegradesToUnknown(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &reasoner.UnavailableError{Provider: "gemini", Err: assert.AnError}).
		Twice() // one retry

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "bill.pdf", "some text")

	assert.Equal(t, domain.DocTypeUnknown, got.Type)
	assert.Zero(t, got.Confidence)
	assert.Contains(t, got.Reasoning, "classification failed")
	r.AssertExpectations(t)
}

func TestClassify_RetrySucceedsAfterTransientFailure(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, &reasoner.UnavailableError{Provider: "gemini", Err: assert.AnError}).
		Once()
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"type": "id_card", "confidence": 0.8}`), nil).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "card.pdf", "MEMBER ID INS-123")

	assert.Equal(t, domain.DocTypeIDCard, got.Type)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	r.AssertExpectations(t)
}

func TestClassify_MalformedAnswerNotRetried(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(json.RawMessage(`this is not json at all`), nil).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "bill.pdf", "some text")

	assert.Equal(t, domain.DocTypeUnknown, got.Type)
	assert.Contains(t, got.Reasoning, "classification failed")
	r.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestClassify_OutOfRangeConfidenceRejected(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"type": "bill", "confidence": 1.7}`), nil).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "bill.pdf", "some text")

	// Schema validation treats an impossible confidence as a malformed answer.
	assert.Equal(t, domain.DocTypeUnknown, got.Type)
	assert.Zero(t, got.Confidence)
}

func TestClassify_FencedAnswerAccepted(t *testing.T) {
	r := new(mocks.MockReasoner)
	fenced := "```json\n{\"type\": \"discharge_summary\", \"confidence\": 0.88}\n```"
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(json.RawMessage(fenced), nil).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "summary.pdf", "DISCHARGE SUMMARY")

	assert.Equal(t, domain.DocTypeDischargeSummary, got.Type)
}

func TestClassify_CanceledContextNotRetried(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).
		Return(nil, context.Canceled).
		Once()

	c := pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff)
	got := c.Classify(context.Background(), "bill.pdf", "some text")

	assert.Equal(t, domain.DocTypeUnknown, got.Type)
	r.AssertNumberOfCalls(t, "Invoke", 1)
}
