// Package claim validates the full record set of one claim batch: required
// document presence and cross-document field consistency. Validation is a
// pure function of the records; for the same input set the result is
// identical regardless of submission order.
package claim

import (
	"sort"
	"time"

	"claimflow/internal/domain"
)

// Engine runs the required-document check and all consistency rules.
type Engine struct {
	required []domain.DocumentType
	rules    []*consistencyRule
}

// NewEngine creates a validation engine for the given required document set.
func NewEngine(required []domain.DocumentType) *Engine {
	if len(required) == 0 {
		required = domain.RequiredDocumentTypes
	}
	return &Engine{
		required: required,
		rules:    ConsistencyRules(),
	}
}

// Validate derives the ValidationResult for a closed batch. now anchors the
// date-plausibility check so the engine stays deterministic under test.
func (e *Engine) Validate(docs []domain.DocumentResult, now time.Time) domain.ValidationResult {
	missing := e.missingDocuments(docs)

	discrepancies := make([]domain.Discrepancy, 0)
	seen := map[string]bool{}
	for _, rule := range e.rules {
		for _, d := range rule.Check(docs, now) {
			key := d.Field + "|" + string(d.DocumentA) + "|" + string(d.DocumentB)
			if seen[key] {
				continue
			}
			seen[key] = true
			discrepancies = append(discrepancies, d)
		}
	}
	sort.Slice(discrepancies, func(i, j int) bool {
		a, b := discrepancies[i], discrepancies[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.DocumentA != b.DocumentA {
			return a.DocumentA < b.DocumentA
		}
		return a.DocumentB < b.DocumentB
	})

	return domain.ValidationResult{
		MissingDocuments: missing,
		Discrepancies:    discrepancies,
		Passed:           len(missing) == 0 && len(discrepancies) == 0,
	}
}

// missingDocuments returns the required types absent from the classified set.
// A document classified as unknown never satisfies a requirement.
func (e *Engine) missingDocuments(docs []domain.DocumentResult) []domain.DocumentType {
	present := map[domain.DocumentType]bool{}
	for _, doc := range docs {
		if doc.Classification.Type != domain.DocTypeUnknown {
			present[doc.Classification.Type] = true
		}
	}

	missing := make([]domain.DocumentType, 0)
	for _, t := range e.required {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
