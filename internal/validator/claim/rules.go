package claim

import (
	"fmt"
	"strings"
	"time"

	"claimflow/internal/domain"
)

// consistencyRule checks agreement of one overlapping field across records.
type consistencyRule struct {
	ruleKey string
	field   string
	check   func(docs []domain.DocumentResult, now time.Time) []domain.Discrepancy
}

func (r *consistencyRule) RuleKey() string { return r.ruleKey }
func (r *consistencyRule) Field() string   { return r.field }

func (r *consistencyRule) Check(docs []domain.DocumentResult, now time.Time) []domain.Discrepancy {
	return r.check(docs, now)
}

// ConsistencyRules returns all cross-document consistency rules.
func ConsistencyRules() []*consistencyRule {
	return []*consistencyRule{
		{
			ruleKey: "xd.patient_name", field: "patient_name",
			check: func(docs []domain.DocumentResult, _ time.Time) []domain.Discrepancy {
				values := fieldValues(docs, func(r domain.ExtractedRecord) (string, bool) {
					return r.PatientName()
				})
				return pairwiseMismatches("patient_name", values, normalizeName,
					"patient name differs between %s and %s")
			},
		},
		{
			ruleKey: "xd.insurance_id", field: "insurance_id",
			check: func(docs []domain.DocumentResult, _ time.Time) []domain.Discrepancy {
				values := fieldValues(docs, func(r domain.ExtractedRecord) (string, bool) {
					return r.InsuranceID()
				})
				return pairwiseMismatches("insurance_id", values, normalizeID,
					"insurance ID differs between %s and %s")
			},
		},
		{
			ruleKey: "xd.date_of_service", field: "date_of_service",
			check: func(docs []domain.DocumentResult, now time.Time) []domain.Discrepancy {
				var out []domain.Discrepancy
				for _, doc := range docs {
					date, ok := doc.Record.DateOfService()
					if !ok {
						continue
					}
					parsed, err := parseServiceDate(date)
					if err != nil {
						// Unparseable dates are a data quality concern, not a
						// mismatch; skip rather than guess.
						continue
					}
					if parsed.After(now) {
						out = append(out, newDiscrepancy("date_of_service",
							doc.Classification.Type, date,
							doc.Classification.Type, now.Format("2006-01-02"),
							"date of service is in the future"))
					}
				}
				return out
			},
		},
	}
}

// typedValue is one occurrence of a field in a record of a given type.
type typedValue struct {
	docType domain.DocumentType
	value   string
}

func fieldValues(docs []domain.DocumentResult, get func(domain.ExtractedRecord) (string, bool)) []typedValue {
	var out []typedValue
	for _, doc := range docs {
		if doc.Classification.Type == domain.DocTypeUnknown {
			continue
		}
		if v, ok := get(doc.Record); ok {
			out = append(out, typedValue{docType: doc.Classification.Type, value: v})
		}
	}
	return out
}

func pairwiseMismatches(field string, values []typedValue, normalize func(string) string, descFormat string) []domain.Discrepancy {
	var out []domain.Discrepancy
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			a, b := values[i], values[j]
			if normalize(a.value) == normalize(b.value) {
				continue
			}
			first, second := orderedPair(a.docType, b.docType)
			out = append(out, newDiscrepancy(field,
				a.docType, a.value, b.docType, b.value,
				fmt.Sprintf(descFormat, first, second)))
		}
	}
	return out
}

// newDiscrepancy orders the document pair lexically so a discrepancy's
// identity is independent of submission order.
func newDiscrepancy(field string, typeA domain.DocumentType, valueA string, typeB domain.DocumentType, valueB, description string) domain.Discrepancy {
	if typeB < typeA {
		typeA, typeB = typeB, typeA
		valueA, valueB = valueB, valueA
	}
	return domain.Discrepancy{
		Field:       field,
		DocumentA:   typeA,
		ValueA:      valueA,
		DocumentB:   typeB,
		ValueB:      valueB,
		Description: description,
	}
}

func orderedPair(a, b domain.DocumentType) (domain.DocumentType, domain.DocumentType) {
	if b < a {
		return b, a
	}
	return a, b
}

// normalizeName lowercases and collapses whitespace for name comparison.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var serviceDateLayouts = []string{"2006-01-02", "01/02/2006", "02-01-2006"}

func parseServiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range serviceDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
