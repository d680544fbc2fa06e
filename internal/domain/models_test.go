package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/domain"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, domain.ClampConfidence(-0.3))
	assert.Equal(t, 1.0, domain.ClampConfidence(1.7))
	assert.Equal(t, 0.42, domain.ClampConfidence(0.42))
}

func TestExtractedRecord_MarshalFlat(t *testing.T) {
	record := domain.ExtractedRecord{
		Type: domain.DocTypeBill,
		Bill: &domain.BillRecord{
			PatientName: strPtr("John Doe"),
			TotalAmount: f64Ptr(500),
		},
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"patient_name": "John Doe", "total_amount": 500}`, string(raw))
}

func TestExtractedRecord_MarshalEmpty(t *testing.T) {
	raw, err := json.Marshal(domain.ExtractedRecord{Type: domain.DocTypeUnknown})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestExtractedRecord_FieldCount(t *testing.T) {
	assert.Zero(t, domain.ExtractedRecord{}.FieldCount())
	assert.Zero(t, domain.ExtractedRecord{
		Type: domain.DocTypeIDCard, IDCard: &domain.IDCardRecord{},
	}.FieldCount())

	record := domain.ExtractedRecord{
		Type: domain.DocTypeDischargeSummary,
		Discharge: &domain.DischargeRecord{
			PatientName: strPtr("John Doe"),
			Procedures:  []string{"Appendectomy"},
		},
	}
	assert.Equal(t, 2, record.FieldCount())
}

func TestExtractedRecord_Accessors(t *testing.T) {
	bill := domain.ExtractedRecord{
		Type: domain.DocTypeBill,
		Bill: &domain.BillRecord{
			PatientName:   strPtr("John Doe"),
			InsuranceID:   strPtr("INS-123"),
			DateOfService: strPtr("2025-04-10"),
		},
	}

	name, ok := bill.PatientName()
	assert.True(t, ok)
	assert.Equal(t, "John Doe", name)

	id, ok := bill.InsuranceID()
	assert.True(t, ok)
	assert.Equal(t, "INS-123", id)

	date, ok := bill.DateOfService()
	assert.True(t, ok)
	assert.Equal(t, "2025-04-10", date)

	empty := domain.ExtractedRecord{Type: domain.DocTypeUnknown}
	_, ok = empty.PatientName()
	assert.False(t, ok)
	_, ok = empty.InsuranceID()
	assert.False(t, ok)
	_, ok = empty.DateOfService()
	assert.False(t, ok)
}

func TestClaimReport_JSONRoundTrip(t *testing.T) {
	report := domain.ClaimReport{
		Documents: []domain.ProcessedDocument{
			{
				Filename:   "bill.pdf",
				Type:       domain.DocTypeBill,
				Confidence: 0.92,
				ExtractedData: domain.ExtractedRecord{
					Type: domain.DocTypeBill,
					Bill: &domain.BillRecord{
						PatientName: strPtr("John Doe"),
						TotalAmount: f64Ptr(500),
					},
				},
				ProcessingErrors: []string{},
			},
			{
				Filename:         "blurry.pdf",
				Type:             domain.DocTypeUnknown,
				ProcessingErrors: []string{"text extraction failed"},
			},
		},
		StructuredData: map[domain.DocumentType]domain.ExtractedRecord{
			domain.DocTypeBill: {
				Type: domain.DocTypeBill,
				Bill: &domain.BillRecord{PatientName: strPtr("John Doe"), TotalAmount: f64Ptr(500)},
			},
		},
		Validation: domain.ValidationResult{
			MissingDocuments: []domain.DocumentType{domain.DocTypeIDCard},
			Discrepancies:    []domain.Discrepancy{},
		},
		Decision: domain.ClaimDecision{
			Status:             domain.ClaimStatusRejected,
			Reason:             "required documents missing",
			Confidence:         0.67,
			RecommendedActions: []string{"resubmit id card"},
		},
		ProcessingTime: 1.5,
		ProcessedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var restored domain.ClaimReport
	require.NoError(t, json.Unmarshal(raw, &restored))

	require.Len(t, restored.Documents, 2)
	require.NotNil(t, restored.Documents[0].ExtractedData.Bill)
	assert.Equal(t, "John Doe", *restored.Documents[0].ExtractedData.Bill.PatientName)
	assert.Equal(t, 2, restored.Documents[0].ExtractedData.FieldCount())
	assert.Zero(t, restored.Documents[1].ExtractedData.FieldCount())

	billRecord, ok := restored.StructuredData[domain.DocTypeBill]
	require.True(t, ok)
	assert.Equal(t, 2, billRecord.FieldCount())

	assert.Equal(t, report.Decision, restored.Decision)
	assert.Equal(t, report.Validation, restored.Validation)
}

func TestClaimReport_WireFieldNames(t *testing.T) {
	report := domain.ClaimReport{
		Documents:      []domain.ProcessedDocument{},
		StructuredData: map[domain.DocumentType]domain.ExtractedRecord{},
		Validation: domain.ValidationResult{
			MissingDocuments: []domain.DocumentType{},
			Discrepancies:    []domain.Discrepancy{},
			Passed:           true,
		},
	}

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "documents")
	assert.Contains(t, generic, "structured_data")
	assert.Contains(t, generic, "validation")
	assert.Contains(t, generic, "claim_decision")
	assert.Contains(t, generic, "processing_time")
	assert.Contains(t, generic, "processed_at")

	validation := generic["validation"].(map[string]interface{})
	assert.Contains(t, validation, "missing_documents")
	assert.Contains(t, validation, "discrepancies")
	assert.Contains(t, validation, "validation_passed")
}
