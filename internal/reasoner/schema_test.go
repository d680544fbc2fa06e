package reasoner_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

type classificationAnswer struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func TestDecode_ValidClassification(t *testing.T) {
	var out classificationAnswer
	err := reasoner.Decode(
		json.RawMessage(`{"type": "bill", "confidence": 0.9, "reasoning": "line items"}`),
		port.TemplateClassification, &out)

	require.NoError(t, err)
	assert.Equal(t, "bill", out.Type)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)
}

func TestDecode_FencedAnswer(t *testing.T) {
	var out classificationAnswer
	err := reasoner.Decode(
		json.RawMessage("```json\n{\"type\": \"id_card\", \"confidence\": 0.8}\n```"),
		port.TemplateClassification, &out)

	require.NoError(t, err)
	assert.Equal(t, "id_card", out.Type)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var out classificationAnswer
	err := reasoner.Decode(json.RawMessage(`the document appears to be a bill`), port.TemplateClassification, &out)

	var mErr *reasoner.MalformedError
	require.ErrorAs(t, err, &mErr)
	assert.Contains(t, mErr.Error(), "invalid JSON")
}

func TestDecode_SchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"confidence above one", `{"type": "bill", "confidence": 1.5}`},
		{"confidence below zero", `{"type": "bill", "confidence": -0.1}`},
		{"unknown type value", `{"type": "prescription", "confidence": 0.9}`},
		{"missing confidence", `{"type": "bill"}`},
		{"confidence as string", `{"type": "bill", "confidence": "high"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out classificationAnswer
			err := reasoner.Decode(json.RawMessage(tc.raw), port.TemplateClassification, &out)
			var mErr *reasoner.MalformedError
			assert.ErrorAs(t, err, &mErr)
		})
	}
}

func TestDecode_BillAmountShapes(t *testing.T) {
	var out map[string]interface{}

	assert.NoError(t, reasoner.Decode(
		json.RawMessage(`{"total_amount": 120.5}`), port.TemplateBillExtraction, &out))
	assert.NoError(t, reasoner.Decode(
		json.RawMessage(`{"total_amount": "$120.50"}`), port.TemplateBillExtraction, &out))
	assert.NoError(t, reasoner.Decode(
		json.RawMessage(`{"total_amount": null}`), port.TemplateBillExtraction, &out))

	err := reasoner.Decode(
		json.RawMessage(`{"total_amount": {"value": 120}}`), port.TemplateBillExtraction, &out)
	var mErr *reasoner.MalformedError
	assert.ErrorAs(t, err, &mErr)
}

func TestDecode_DecisionAssistRequiresActions(t *testing.T) {
	var out map[string]interface{}

	err := reasoner.Decode(json.RawMessage(`{}`), port.TemplateDecisionAssist, &out)
	var mErr *reasoner.MalformedError
	assert.ErrorAs(t, err, &mErr)

	assert.NoError(t, reasoner.Decode(
		json.RawMessage(`{"recommended_actions": []}`), port.TemplateDecisionAssist, &out))
}

func TestDecode_UnknownTemplate(t *testing.T) {
	var out map[string]interface{}
	err := reasoner.Decode(json.RawMessage(`{}`), port.PromptTemplate("nonexistent"), &out)

	var mErr *reasoner.MalformedError
	require.ErrorAs(t, err, &mErr)
	assert.Contains(t, mErr.Error(), "no schema registered")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, reasoner.StripCodeFence("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, reasoner.StripCodeFence("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, reasoner.StripCodeFence(`{"a": 1}`))
	assert.Equal(t, `{"a": 1}`, reasoner.StripCodeFence("  {\"a\": 1}  "))
}
