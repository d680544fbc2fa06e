package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"claimflow/internal/port"
)

// answerSchemas holds the JSON Schema for each prompt template's expected
// answer shape. Confidence bounds are enforced here, so an out-of-range score
// fails decoding and triggers the caller's fallback path.
var answerSchemas = map[port.PromptTemplate]string{
	port.TemplateClassification: `{
		"type": "object",
		"required": ["type", "confidence"],
		"properties": {
			"type": {"type": "string", "enum": ["bill", "discharge_summary", "id_card", "unknown"]},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"reasoning": {"type": "string"}
		}
	}`,
	port.TemplateBillExtraction: `{
		"type": "object",
		"properties": {
			"hospital_name": {"type": ["string", "null"]},
			"total_amount": {"type": ["number", "string", "null"]},
			"date_of_service": {"type": ["string", "null"]},
			"patient_name": {"type": ["string", "null"]},
			"services": {"type": ["array", "null"], "items": {"type": "string"}},
			"insurance_id": {"type": ["string", "null"]}
		}
	}`,
	port.TemplateDischargeExtraction: `{
		"type": "object",
		"properties": {
			"patient_name": {"type": ["string", "null"]},
			"diagnosis": {"type": ["string", "null"]},
			"admission_date": {"type": ["string", "null"]},
			"discharge_date": {"type": ["string", "null"]},
			"treating_physician": {"type": ["string", "null"]},
			"hospital_name": {"type": ["string", "null"]},
			"procedures": {"type": ["array", "null"], "items": {"type": "string"}}
		}
	}`,
	port.TemplateIDCardExtraction: `{
		"type": "object",
		"properties": {
			"patient_name": {"type": ["string", "null"]},
			"insurance_id": {"type": ["string", "null"]},
			"policy_number": {"type": ["string", "null"]},
			"group_number": {"type": ["string", "null"]},
			"effective_date": {"type": ["string", "null"]},
			"expiration_date": {"type": ["string", "null"]}
		}
	}`,
	port.TemplateDecisionAssist: `{
		"type": "object",
		"required": ["recommended_actions"],
		"properties": {
			"recommended_actions": {"type": "array", "items": {"type": "string"}}
		}
	}`,
}

var compiledSchemas = compileSchemas()

func compileSchemas() map[port.PromptTemplate]*jsonschema.Schema {
	out := make(map[port.PromptTemplate]*jsonschema.Schema, len(answerSchemas))
	for tmpl, raw := range answerSchemas {
		compiler := jsonschema.NewCompiler()
		name := string(tmpl) + ".json"
		if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
			panic(fmt.Sprintf("adding schema %s: %v", tmpl, err))
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			panic(fmt.Sprintf("compiling schema %s: %v", tmpl, err))
		}
		out[tmpl] = schema
	}
	return out
}

// StripCodeFence removes a surrounding markdown code fence from a reasoning
// answer. Models wrap JSON in fences despite instructions not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// Decode validates a raw reasoning answer against the template's schema and
// unmarshals it into v. Every failure is returned as a *MalformedError; it
// never panics or propagates a raw decode error.
func Decode(raw json.RawMessage, template port.PromptTemplate, v interface{}) error {
	schema, ok := compiledSchemas[template]
	if !ok {
		return NewMalformedError(fmt.Errorf("no schema registered for template %s", template), string(raw))
	}

	cleaned := StripCodeFence(string(raw))

	var generic interface{}
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return NewMalformedError(fmt.Errorf("invalid JSON: %w", err), cleaned)
	}
	if err := schema.Validate(generic); err != nil {
		return NewMalformedError(fmt.Errorf("schema violation: %w", err), cleaned)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return NewMalformedError(fmt.Errorf("decoding answer: %w", err), cleaned)
	}
	return nil
}
