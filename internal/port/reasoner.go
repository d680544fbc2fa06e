package port

import (
	"context"
	"encoding/json"
)

// PromptTemplate identifies one of the fixed instruction templates sent to
// the reasoning service.
type PromptTemplate string

const (
	TemplateClassification      PromptTemplate = "classification"
	TemplateBillExtraction      PromptTemplate = "bill_extraction"
	TemplateDischargeExtraction PromptTemplate = "discharge_extraction"
	TemplateIDCardExtraction    PromptTemplate = "id_card_extraction"
	TemplateDecisionAssist      PromptTemplate = "decision_assist"
)

// ReasonInput carries one structured prompt invocation.
type ReasonInput struct {
	Template  PromptTemplate
	Variables map[string]string
}

// Reasoner abstracts the external reasoning service. Invoke returns the raw
// JSON-shaped answer; callers are responsible for schema validation.
type Reasoner interface {
	Invoke(ctx context.Context, input ReasonInput) (json.RawMessage, error)
}
