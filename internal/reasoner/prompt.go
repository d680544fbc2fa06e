package reasoner

import (
	"fmt"

	"claimflow/internal/port"
)

const classificationExcerptLimit = 1000

// BuildPrompt renders the instruction template for a reasoning invocation.
func BuildPrompt(input port.ReasonInput) (string, error) {
	switch input.Template {
	case port.TemplateClassification:
		return buildClassificationPrompt(input.Variables["filename"], input.Variables["text"]), nil
	case port.TemplateBillExtraction:
		return buildBillPrompt(input.Variables["text"]), nil
	case port.TemplateDischargeExtraction:
		return buildDischargePrompt(input.Variables["text"]), nil
	case port.TemplateIDCardExtraction:
		return buildIDCardPrompt(input.Variables["text"]), nil
	case port.TemplateDecisionAssist:
		return buildDecisionAssistPrompt(input.Variables["documents"], input.Variables["validation"]), nil
	default:
		return "", fmt.Errorf("unknown prompt template: %s", input.Template)
	}
}

func buildClassificationPrompt(filename, text string) string {
	if len(text) > classificationExcerptLimit {
		text = text[:classificationExcerptLimit]
	}
	return `Analyze the following document text and filename to classify the document type.

Filename: ` + filename + `

Document Text (first 1000 chars):
` + text + `

Classify this document as one of:
- bill: Medical bill or invoice
- discharge_summary: Hospital discharge summary
- id_card: Insurance ID card
- unknown: Cannot determine type

Return a JSON response with:
{
  "type": "document_type",
  "confidence": 0.95,
  "reasoning": "Brief explanation of classification"
}

IMPORTANT: Return ONLY valid JSON, no other text.`
}

func buildBillPrompt(text string) string {
	return `Extract key information from this medical bill document:

` + text + `

Extract the following information and return as JSON:
{
  "hospital_name": "Name of hospital/provider",
  "total_amount": 12500.00,
  "date_of_service": "2024-04-10",
  "patient_name": "Patient Name",
  "services": ["Service 1", "Service 2"],
  "insurance_id": "Insurance ID if present"
}

If information is not found, use null for that field.
IMPORTANT: Return ONLY valid JSON, no other text.`
}

func buildDischargePrompt(text string) string {
	return `Extract key information from this discharge summary document:

` + text + `

Extract the following information and return as JSON:
{
  "patient_name": "Patient Name",
  "diagnosis": "Primary diagnosis",
  "admission_date": "2024-04-01",
  "discharge_date": "2024-04-10",
  "treating_physician": "Doctor Name",
  "hospital_name": "Hospital Name",
  "procedures": ["Procedure 1", "Procedure 2"]
}

If information is not found, use null for that field.
IMPORTANT: Return ONLY valid JSON, no other text.`
}

func buildIDCardPrompt(text string) string {
	return `Extract key information from this insurance ID card document:

` + text + `

Extract the following information and return as JSON:
{
  "patient_name": "Patient Name",
  "insurance_id": "Member ID",
  "policy_number": "Policy Number",
  "group_number": "Group Number",
  "effective_date": "2024-01-01",
  "expiration_date": "2024-12-31"
}

If information is not found, use null for that field.
IMPORTANT: Return ONLY valid JSON, no other text.`
}

func buildDecisionAssistPrompt(documents, validation string) string {
	return `Review this claim decision context and suggest follow-up actions:

Documents:
` + documents + `

Validation Results:
` + validation + `

Return suggestions as JSON:
{
  "recommended_actions": ["Action 1", "Action 2"]
}

IMPORTANT: Return ONLY valid JSON, no other text.`
}
