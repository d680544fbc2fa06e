package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentInput is one raw document submitted as part of a claim batch.
// It is immutable once ingested.
type DocumentInput struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Classification is the per-document output of the classifier.
type Classification struct {
	Type       DocumentType `json:"type"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
}

// ClampConfidence forces a confidence score into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BillRecord holds fields extracted from a medical bill. Nil means the field
// was not found in the source text.
type BillRecord struct {
	HospitalName  *string  `json:"hospital_name,omitempty"`
	TotalAmount   *float64 `json:"total_amount,omitempty"`
	DateOfService *string  `json:"date_of_service,omitempty"`
	PatientName   *string  `json:"patient_name,omitempty"`
	Services      []string `json:"services,omitempty"`
	InsuranceID   *string  `json:"insurance_id,omitempty"`
}

// DischargeRecord holds fields extracted from a hospital discharge summary.
type DischargeRecord struct {
	PatientName       *string  `json:"patient_name,omitempty"`
	Diagnosis         *string  `json:"diagnosis,omitempty"`
	AdmissionDate     *string  `json:"admission_date,omitempty"`
	DischargeDate     *string  `json:"discharge_date,omitempty"`
	TreatingPhysician *string  `json:"treating_physician,omitempty"`
	HospitalName      *string  `json:"hospital_name,omitempty"`
	Procedures        []string `json:"procedures,omitempty"`
}

// IDCardRecord holds fields extracted from an insurance ID card.
type IDCardRecord struct {
	PatientName    *string `json:"patient_name,omitempty"`
	InsuranceID    *string `json:"insurance_id,omitempty"`
	PolicyNumber   *string `json:"policy_number,omitempty"`
	GroupNumber    *string `json:"group_number,omitempty"`
	EffectiveDate  *string `json:"effective_date,omitempty"`
	ExpirationDate *string `json:"expiration_date,omitempty"`
}

// ExtractedRecord is the tagged variant produced by the type extractors.
// Exactly one of the variant pointers is set for a recognized type; all are
// nil for unknown documents. The declared Type always matches the
// classification that produced the record.
type ExtractedRecord struct {
	Type      DocumentType     `json:"-"`
	Bill      *BillRecord      `json:"-"`
	Discharge *DischargeRecord `json:"-"`
	IDCard    *IDCardRecord    `json:"-"`
}

// MarshalJSON renders the active variant as a flat field object, or {} when
// nothing was extracted.
func (r ExtractedRecord) MarshalJSON() ([]byte, error) {
	switch {
	case r.Bill != nil:
		return json.Marshal(r.Bill)
	case r.Discharge != nil:
		return json.Marshal(r.Discharge)
	case r.IDCard != nil:
		return json.Marshal(r.IDCard)
	default:
		return []byte("{}"), nil
	}
}

// FieldCount returns the number of fields that were actually extracted.
func (r ExtractedRecord) FieldCount() int {
	n := 0
	count := func(ok bool) {
		if ok {
			n++
		}
	}
	switch {
	case r.Bill != nil:
		b := r.Bill
		count(b.HospitalName != nil)
		count(b.TotalAmount != nil)
		count(b.DateOfService != nil)
		count(b.PatientName != nil)
		count(len(b.Services) > 0)
		count(b.InsuranceID != nil)
	case r.Discharge != nil:
		d := r.Discharge
		count(d.PatientName != nil)
		count(d.Diagnosis != nil)
		count(d.AdmissionDate != nil)
		count(d.DischargeDate != nil)
		count(d.TreatingPhysician != nil)
		count(d.HospitalName != nil)
		count(len(d.Procedures) > 0)
	case r.IDCard != nil:
		c := r.IDCard
		count(c.PatientName != nil)
		count(c.InsuranceID != nil)
		count(c.PolicyNumber != nil)
		count(c.GroupNumber != nil)
		count(c.EffectiveDate != nil)
		count(c.ExpirationDate != nil)
	}
	return n
}

// PatientName returns the patient name field of whichever variant carries one.
func (r ExtractedRecord) PatientName() (string, bool) {
	switch {
	case r.Bill != nil && r.Bill.PatientName != nil:
		return *r.Bill.PatientName, true
	case r.Discharge != nil && r.Discharge.PatientName != nil:
		return *r.Discharge.PatientName, true
	case r.IDCard != nil && r.IDCard.PatientName != nil:
		return *r.IDCard.PatientName, true
	}
	return "", false
}

// InsuranceID returns the insurance ID for record types that carry one.
func (r ExtractedRecord) InsuranceID() (string, bool) {
	switch {
	case r.Bill != nil && r.Bill.InsuranceID != nil:
		return *r.Bill.InsuranceID, true
	case r.IDCard != nil && r.IDCard.InsuranceID != nil:
		return *r.IDCard.InsuranceID, true
	}
	return "", false
}

// DateOfService returns the bill's date of service, if extracted.
func (r ExtractedRecord) DateOfService() (string, bool) {
	if r.Bill != nil && r.Bill.DateOfService != nil {
		return *r.Bill.DateOfService, true
	}
	return "", false
}

// DocumentResult pairs one input document with everything the pipeline
// produced for it. Results are written into order-indexed slots, so the slice
// of results always preserves submission order.
type DocumentResult struct {
	Input          DocumentInput
	Text           string
	Classification Classification
	Record         ExtractedRecord
	Errors         []string
}

// Discrepancy records a field that disagrees between two document records.
// DocumentA/DocumentB are ordered lexically so the identity of a discrepancy
// does not depend on submission order.
type Discrepancy struct {
	Field       string       `json:"field"`
	DocumentA   DocumentType `json:"document_a"`
	ValueA      string       `json:"value_a"`
	DocumentB   DocumentType `json:"document_b"`
	ValueB      string       `json:"value_b"`
	Description string       `json:"description"`
}

// ValidationResult is the outcome of cross-document validation for one batch.
type ValidationResult struct {
	MissingDocuments []DocumentType `json:"missing_documents"`
	Discrepancies    []Discrepancy  `json:"discrepancies"`
	Passed           bool           `json:"validation_passed"`
}

// ClaimDecision is the terminal artifact of one pipeline run.
type ClaimDecision struct {
	Status             ClaimStatus `json:"status"`
	Reason             string      `json:"reason"`
	Confidence         float64     `json:"confidence"`
	RecommendedActions []string    `json:"recommended_actions"`
}

// ProcessedDocument is the externally visible view of one document's results.
type ProcessedDocument struct {
	Filename         string          `json:"filename"`
	Type             DocumentType    `json:"type"`
	Confidence       float64         `json:"confidence"`
	Reasoning        string          `json:"reasoning,omitempty"`
	ExtractedData    ExtractedRecord `json:"extracted_data"`
	ProcessingErrors []string        `json:"processing_errors"`
}

// UnmarshalJSON restores the extracted record variant from the sibling type
// field, since the record itself serializes flat.
func (p *ProcessedDocument) UnmarshalJSON(data []byte) error {
	var wire struct {
		Filename         string          `json:"filename"`
		Type             DocumentType    `json:"type"`
		Confidence       float64         `json:"confidence"`
		Reasoning        string          `json:"reasoning"`
		ExtractedData    json.RawMessage `json:"extracted_data"`
		ProcessingErrors []string        `json:"processing_errors"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Filename = wire.Filename
	p.Type = wire.Type
	p.Confidence = wire.Confidence
	p.Reasoning = wire.Reasoning
	p.ProcessingErrors = wire.ProcessingErrors
	return p.ExtractedData.decodeAs(wire.Type, wire.ExtractedData)
}

// decodeAs fills the variant matching docType from flat record JSON.
func (r *ExtractedRecord) decodeAs(docType DocumentType, raw json.RawMessage) error {
	*r = ExtractedRecord{Type: docType}
	if len(raw) == 0 {
		return nil
	}
	switch docType {
	case DocTypeBill:
		r.Bill = &BillRecord{}
		return json.Unmarshal(raw, r.Bill)
	case DocTypeDischargeSummary:
		r.Discharge = &DischargeRecord{}
		return json.Unmarshal(raw, r.Discharge)
	case DocTypeIDCard:
		r.IDCard = &IDCardRecord{}
		return json.Unmarshal(raw, r.IDCard)
	}
	return nil
}

// ClaimReport is the sole output of a completed claim run. Assembled once,
// then immutable.
type ClaimReport struct {
	Documents      []ProcessedDocument              `json:"documents"`
	StructuredData map[DocumentType]ExtractedRecord `json:"structured_data"`
	Validation     ValidationResult                 `json:"validation"`
	Decision       ClaimDecision                    `json:"claim_decision"`
	ProcessingTime float64                          `json:"processing_time"`
	ProcessedAt    time.Time                        `json:"processed_at"`
}

// UnmarshalJSON restores the structured_data variants from their map keys,
// since extracted records serialize flat.
func (r *ClaimReport) UnmarshalJSON(data []byte) error {
	type alias ClaimReport
	var wire struct {
		alias
		StructuredData map[DocumentType]json.RawMessage `json:"structured_data"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = ClaimReport(wire.alias)
	r.StructuredData = make(map[DocumentType]ExtractedRecord, len(wire.StructuredData))
	for docType, raw := range wire.StructuredData {
		var record ExtractedRecord
		if err := record.decodeAs(docType, raw); err != nil {
			return err
		}
		r.StructuredData[docType] = record
	}
	return nil
}

// ClaimRun is the persisted record of one orchestration run.
type ClaimRun struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Status        RunState        `db:"status" json:"status"`
	DocumentCount int             `db:"document_count" json:"document_count"`
	Report        json.RawMessage `db:"report" json:"report,omitempty"`
	FailureReason string          `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
