package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claimflow/internal/decision"
	"claimflow/internal/domain"
	"claimflow/internal/pipeline"
	"claimflow/internal/port"
	"claimflow/internal/textract"
	"claimflow/internal/validator/claim"
	"claimflow/mocks"
)

func newOrchestrator(r port.Reasoner) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		textract.NewExtractor(),
		pipeline.NewClassifier(r, testCallTimeout, testRetryBackoff),
		pipeline.NewExtractor(r, testCallTimeout, testRetryBackoff),
		claim.NewEngine(nil),
		decision.NewEngine(nil, 0.7, nil),
		4,
	)
}

func textInput(filename, text string) domain.DocumentInput {
	return domain.DocumentInput{
		Filename:    filename,
		Content:     []byte(text),
		ContentType: "text/plain",
	}
}

// stubAnswers wires a MockReasoner with classification answers keyed by
// filename and canned extraction answers per template.
func stubAnswers(r *mocks.MockReasoner, classifications map[string]string) {
	for filename, docType := range classifications {
		filename := filename
		r.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
			return in.Template == port.TemplateClassification && in.Variables["filename"] == filename
		})).Return(json.RawMessage(fmt.Sprintf(`{"type": %q, "confidence": 0.9}`, docType)), nil)
	}
	// Anything not listed classifies as unknown.
	r.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
		_, listed := classifications[in.Variables["filename"]]
		return in.Template == port.TemplateClassification && !listed
	})).Return(json.RawMessage(`{"type": "unknown", "confidence": 0.2}`), nil)

	r.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
		return in.Template == port.TemplateBillExtraction
	})).Return(json.RawMessage(`{"patient_name": "John Doe", "insurance_id": "INS-123", "total_amount": 500.0}`), nil)

	r.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
		return in.Template == port.TemplateDischargeExtraction
	})).Return(json.RawMessage(`{"patient_name": "John Doe", "diagnosis": "Appendicitis"}`), nil)

	r.On("Invoke", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
		return in.Template == port.TemplateIDCardExtraction
	})).Return(json.RawMessage(`{"patient_name": "John Doe", "insurance_id": "INS-123"}`), nil)
}

func TestRun_HappyPath(t *testing.T) {
	r := new(mocks.MockReasoner)
	stubAnswers(r, map[string]string{
		"bill.txt":    "bill",
		"summary.txt": "discharge_summary",
		"card.txt":    "id_card",
	})

	o := newOrchestrator(r)
	report, err := o.Run(context.Background(), []domain.DocumentInput{
		textInput("bill.txt", "HOSPITAL BILL total 500"),
		textInput("summary.txt", "DISCHARGE SUMMARY"),
		textInput("card.txt", "MEMBER CARD INS-123"),
	})

	require.NoError(t, err)
	require.NotNil(t, report)

	require.Len(t, report.Documents, 3)
	assert.Equal(t, "bill.txt", report.Documents[0].Filename)
	assert.Equal(t, "summary.txt", report.Documents[1].Filename)
	assert.Equal(t, "card.txt", report.Documents[2].Filename)
	assert.Equal(t, domain.DocTypeBill, report.Documents[0].Type)
	assert.Equal(t, domain.DocTypeDischargeSummary, report.Documents[1].Type)
	assert.Equal(t, domain.DocTypeIDCard, report.Documents[2].Type)

	assert.Len(t, report.StructuredData, 3)
	assert.True(t, report.Validation.Passed)
	assert.Equal(t, domain.ClaimStatusApproved, report.Decision.Status)
	assert.False(t, report.ProcessedAt.IsZero())
	assert.GreaterOrEqual(t, report.ProcessingTime, 0.0)
}

func TestRun_EmptyBatch(t *testing.T) {
	o := newOrchestrator(new(mocks.MockReasoner))

	report, err := o.Run(context.Background(), nil)

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestRun_NoUsableDocuments(t *testing.T) {
	r := new(mocks.MockReasoner)
	o := newOrchestrator(r)

	report, err := o.Run(context.Background(), []domain.DocumentInput{
		textInput("a.txt", "   "),
		textInput("b.txt", "\n\t"),
	})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrNoUsableDocuments)
	r.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestRun_CanceledContext(t *testing.T) {
	r := new(mocks.MockReasoner)
	stubAnswers(r, map[string]string{"bill.txt": "bill"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(r)
	report, err := o.Run(ctx, []domain.DocumentInput{
		textInput("bill.txt", "HOSPITAL BILL"),
	})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PerDocumentFailureDegrades(t *testing.T) {
	r := new(mocks.MockReasoner)
	stubAnswers(r, map[string]string{
		"bill.txt": "bill",
		// unreadable.pdf classifies as unknown via the fallback in stubAnswers
	})

	o := newOrchestrator(r)
	report, err := o.Run(context.Background(), []domain.DocumentInput{
		textInput("bill.txt", "HOSPITAL BILL"),
		{Filename: "unreadable.pdf", Content: []byte("not a real pdf"), ContentType: "application/pdf"},
	})

	require.NoError(t, err)
	require.Len(t, report.Documents, 2)

	broken := report.Documents[1]
	assert.Equal(t, domain.DocTypeUnknown, broken.Type)
	require.NotEmpty(t, broken.ProcessingErrors)
	assert.Contains(t, broken.ProcessingErrors[0], "text extraction failed")

	// The batch still completes with a decision.
	assert.Equal(t, domain.ClaimStatusRejected, report.Decision.Status)
	assert.Contains(t, report.Validation.MissingDocuments, domain.DocTypeDischargeSummary)
	assert.Contains(t, report.Validation.MissingDocuments, domain.DocTypeIDCard)
}

func TestRun_AllReasoningFailuresStillProduceReport(t *testing.T) {
	r := new(mocks.MockReasoner)
	r.On("Invoke", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	o := newOrchestrator(r)
	report, err := o.Run(context.Background(), []domain.DocumentInput{
		textInput("bill.txt", "HOSPITAL BILL"),
		textInput("card.txt", "MEMBER CARD"),
	})

	require.NoError(t, err)
	require.Len(t, report.Documents, 2)
	for _, doc := range report.Documents {
		assert.Equal(t, domain.DocTypeUnknown, doc.Type)
		assert.Zero(t, doc.Confidence)
	}
	assert.Equal(t, domain.ClaimStatusRejected, report.Decision.Status)
	assert.Len(t, report.Validation.MissingDocuments, 3)
}

func TestRun_OrderPreservedUnderConcurrency(t *testing.T) {
	r := new(mocks.MockReasoner)
	classifications := map[string]string{}
	var inputs []domain.DocumentInput
	types := []string{"bill", "discharge_summary", "id_card"}
	for i := 0; i < 9; i++ {
		name := fmt.Sprintf("doc-%d.txt", i)
		classifications[name] = types[i%3]
		inputs = append(inputs, textInput(name, strings.ToUpper(name)+" content"))
	}
	stubAnswers(r, classifications)

	o := newOrchestrator(r)
	report, err := o.Run(context.Background(), inputs)

	require.NoError(t, err)
	require.Len(t, report.Documents, len(inputs))
	for i, doc := range report.Documents {
		assert.Equal(t, fmt.Sprintf("doc-%d.txt", i), doc.Filename)
		assert.Equal(t, domain.DocumentType(types[i%3]), doc.Type)
	}
}
