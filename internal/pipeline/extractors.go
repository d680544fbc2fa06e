package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"claimflow/internal/domain"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

// extractionTemplates selects the prompt template for each extractable type.
var extractionTemplates = map[domain.DocumentType]port.PromptTemplate{
	domain.DocTypeBill:             port.TemplateBillExtraction,
	domain.DocTypeDischargeSummary: port.TemplateDischargeExtraction,
	domain.DocTypeIDCard:           port.TemplateIDCardExtraction,
}

// Extractor maps classified text to a typed structured record. Behavior
// differs per type only in prompt template and answer schema, so a single
// strategy dispatch replaces per-type extractor objects.
type Extractor struct {
	reasoner port.Reasoner
	policy   callPolicy
}

// NewExtractor creates an Extractor with the given call policy.
func NewExtractor(r port.Reasoner, callTimeout, retryBackoff time.Duration) *Extractor {
	return &Extractor{
		reasoner: r,
		policy:   callPolicy{timeout: callTimeout, backoff: retryBackoff},
	}
}

// Extract produces the typed record for a classified document, plus any error
// markers accumulated along the way. Unknown documents short-circuit to an
// empty record without a reasoning call. A reasoning failure yields a record
// with all fields absent; it never fails the batch.
func (e *Extractor) Extract(ctx context.Context, docType domain.DocumentType, filename, text string) (domain.ExtractedRecord, []string) {
	record := emptyRecord(docType)

	template, ok := extractionTemplates[docType]
	if !ok {
		return record, nil
	}

	raw, err := e.policy.invoke(ctx, e.reasoner, port.ReasonInput{
		Template:  template,
		Variables: map[string]string{"text": text},
	})
	if err != nil {
		log.Printf("pipeline.Extractor: %s %s extraction failed: %v", filename, docType, err)
		return record, []string{fmt.Sprintf("extraction failed: %v", err)}
	}

	switch docType {
	case domain.DocTypeBill:
		return decodeBill(raw, filename)
	case domain.DocTypeDischargeSummary:
		return decodeDischarge(raw, filename)
	case domain.DocTypeIDCard:
		return decodeIDCard(raw, filename)
	}
	return record, nil
}

func emptyRecord(docType domain.DocumentType) domain.ExtractedRecord {
	record := domain.ExtractedRecord{Type: docType}
	switch docType {
	case domain.DocTypeBill:
		record.Bill = &domain.BillRecord{}
	case domain.DocTypeDischargeSummary:
		record.Discharge = &domain.DischargeRecord{}
	case domain.DocTypeIDCard:
		record.IDCard = &domain.IDCardRecord{}
	}
	return record
}

type billAnswer struct {
	HospitalName  *string     `json:"hospital_name"`
	TotalAmount   interface{} `json:"total_amount"`
	DateOfService *string     `json:"date_of_service"`
	PatientName   *string     `json:"patient_name"`
	Services      []string    `json:"services"`
	InsuranceID   *string     `json:"insurance_id"`
}

func decodeBill(raw []byte, filename string) (domain.ExtractedRecord, []string) {
	record := emptyRecord(domain.DocTypeBill)

	var answer billAnswer
	if err := reasoner.Decode(raw, port.TemplateBillExtraction, &answer); err != nil {
		log.Printf("pipeline.Extractor: %s bill answer unusable: %v", filename, err)
		return record, []string{fmt.Sprintf("extraction failed: %v", err)}
	}

	record.Bill = &domain.BillRecord{
		HospitalName:  presentString(answer.HospitalName),
		TotalAmount:   parseAmount(answer.TotalAmount),
		DateOfService: presentString(answer.DateOfService),
		PatientName:   presentString(answer.PatientName),
		Services:      answer.Services,
		InsuranceID:   presentString(answer.InsuranceID),
	}
	return record, nil
}

type dischargeAnswer struct {
	PatientName       *string  `json:"patient_name"`
	Diagnosis         *string  `json:"diagnosis"`
	AdmissionDate     *string  `json:"admission_date"`
	DischargeDate     *string  `json:"discharge_date"`
	TreatingPhysician *string  `json:"treating_physician"`
	HospitalName      *string  `json:"hospital_name"`
	Procedures        []string `json:"procedures"`
}

func decodeDischarge(raw []byte, filename string) (domain.ExtractedRecord, []string) {
	record := emptyRecord(domain.DocTypeDischargeSummary)

	var answer dischargeAnswer
	if err := reasoner.Decode(raw, port.TemplateDischargeExtraction, &answer); err != nil {
		log.Printf("pipeline.Extractor: %s discharge answer unusable: %v", filename, err)
		return record, []string{fmt.Sprintf("extraction failed: %v", err)}
	}

	record.Discharge = &domain.DischargeRecord{
		PatientName:       presentString(answer.PatientName),
		Diagnosis:         presentString(answer.Diagnosis),
		AdmissionDate:     presentString(answer.AdmissionDate),
		DischargeDate:     presentString(answer.DischargeDate),
		TreatingPhysician: presentString(answer.TreatingPhysician),
		HospitalName:      presentString(answer.HospitalName),
		Procedures:        answer.Procedures,
	}
	return record, nil
}

type idCardAnswer struct {
	PatientName    *string `json:"patient_name"`
	InsuranceID    *string `json:"insurance_id"`
	PolicyNumber   *string `json:"policy_number"`
	GroupNumber    *string `json:"group_number"`
	EffectiveDate  *string `json:"effective_date"`
	ExpirationDate *string `json:"expiration_date"`
}

func decodeIDCard(raw []byte, filename string) (domain.ExtractedRecord, []string) {
	record := emptyRecord(domain.DocTypeIDCard)

	var answer idCardAnswer
	if err := reasoner.Decode(raw, port.TemplateIDCardExtraction, &answer); err != nil {
		log.Printf("pipeline.Extractor: %s id card answer unusable: %v", filename, err)
		return record, []string{fmt.Sprintf("extraction failed: %v", err)}
	}

	record.IDCard = &domain.IDCardRecord{
		PatientName:    presentString(answer.PatientName),
		InsuranceID:    presentString(answer.InsuranceID),
		PolicyNumber:   presentString(answer.PolicyNumber),
		GroupNumber:    presentString(answer.GroupNumber),
		EffectiveDate:  presentString(answer.EffectiveDate),
		ExpirationDate: presentString(answer.ExpirationDate),
	}
	return record, nil
}

// presentString drops null and blank values so absent fields stay absent
// instead of becoming placeholder strings.
func presentString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// parseAmount accepts the number-or-string shapes models produce for money
// fields. Unparseable or negative values are treated as absent, never zero.
func parseAmount(v interface{}) *float64 {
	switch val := v.(type) {
	case float64:
		if val < 0 {
			return nil
		}
		return &val
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		cleaned = strings.TrimPrefix(cleaned, "$")
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || parsed < 0 {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
