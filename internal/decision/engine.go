// Package decision turns classification confidences and validation output
// into the final claim decision. The policy is an ordered rule list; the
// first matching rule wins.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"claimflow/internal/domain"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

// Engine evaluates the decision policy. An optional advisor reasoner can
// contribute extra recommended actions; it never changes the status.
type Engine struct {
	required        []domain.DocumentType
	reviewThreshold float64
	advisor         port.Reasoner
}

// NewEngine creates a decision engine. advisor may be nil.
func NewEngine(required []domain.DocumentType, reviewThreshold float64, advisor port.Reasoner) *Engine {
	if len(required) == 0 {
		required = domain.RequiredDocumentTypes
	}
	if reviewThreshold <= 0 {
		reviewThreshold = 0.7
	}
	return &Engine{
		required:        required,
		reviewThreshold: reviewThreshold,
		advisor:         advisor,
	}
}

// Decide applies the policy rules in order. A required type that was
// classified but whose extraction produced zero fields is treated as missing:
// the conservative reading keeps unverifiable claims out of auto-approval.
func (e *Engine) Decide(ctx context.Context, docs []domain.DocumentResult, validation domain.ValidationResult) domain.ClaimDecision {
	decision := e.decideStatus(docs, validation)
	if decision.Status != domain.ClaimStatusApproved && e.advisor != nil {
		decision.RecommendedActions = e.appendAdvisory(ctx, docs, validation, decision.RecommendedActions)
	}
	return decision
}

func (e *Engine) decideStatus(docs []domain.DocumentResult, validation domain.ValidationResult) domain.ClaimDecision {
	missing := e.effectiveMissing(docs, validation)

	// Rule 1: incomplete claims are rejected outright.
	if len(missing) > 0 {
		fraction := float64(len(missing)) / float64(len(e.required))
		actions := make([]string, 0, len(missing))
		for _, t := range missing {
			actions = append(actions, fmt.Sprintf("resubmit %s", displayType(t)))
		}
		return domain.ClaimDecision{
			Status:             domain.ClaimStatusRejected,
			Reason:             fmt.Sprintf("required documents missing or unreadable: %s", joinTypes(missing)),
			Confidence:         domain.ClampConfidence(1 - fraction),
			RecommendedActions: actions,
		}
	}

	// Rule 2: cross-document discrepancies need a human.
	if len(validation.Discrepancies) > 0 {
		actions := make([]string, 0, len(validation.Discrepancies))
		fields := make([]string, 0, len(validation.Discrepancies))
		for _, d := range validation.Discrepancies {
			fields = append(fields, d.Field)
			actions = append(actions, fmt.Sprintf("clarify %s discrepancy between %s and %s",
				d.Field, displayType(d.DocumentA), displayType(d.DocumentB)))
		}
		return domain.ClaimDecision{
			Status:             domain.ClaimStatusRequiresReview,
			Reason:             fmt.Sprintf("data discrepancies found across documents: %s", strings.Join(fields, ", ")),
			Confidence:         e.discrepancyConfidence(docs, validation.Discrepancies),
			RecommendedActions: actions,
		}
	}

	minConf := e.minRequiredConfidence(docs)

	// Rule 3: weak classification signals need a human even when consistent.
	if minConf < e.reviewThreshold {
		return domain.ClaimDecision{
			Status:     domain.ClaimStatusRequiresReview,
			Reason:     fmt.Sprintf("lowest document classification confidence %.2f is below the review threshold %.2f", minConf, e.reviewThreshold),
			Confidence: minConf,
			RecommendedActions: []string{
				"manually verify document classification",
			},
		}
	}

	// Rule 4: complete, consistent, confidently classified.
	return domain.ClaimDecision{
		Status:             domain.ClaimStatusApproved,
		Reason:             "all required documents present, cross-document checks passed, classification confidence above threshold",
		Confidence:         minConf,
		RecommendedActions: []string{},
	}
}

// effectiveMissing unions the validator's missing set with required types
// whose every record came back with zero extracted fields.
func (e *Engine) effectiveMissing(docs []domain.DocumentResult, validation domain.ValidationResult) []domain.DocumentType {
	missing := map[domain.DocumentType]bool{}
	for _, t := range validation.MissingDocuments {
		missing[t] = true
	}

	extracted := map[domain.DocumentType]bool{}
	classified := map[domain.DocumentType]bool{}
	for _, doc := range docs {
		t := doc.Classification.Type
		if t == domain.DocTypeUnknown {
			continue
		}
		classified[t] = true
		if doc.Record.FieldCount() > 0 {
			extracted[t] = true
		}
	}
	for _, t := range e.required {
		if classified[t] && !extracted[t] {
			missing[t] = true
		}
	}

	out := make([]domain.DocumentType, 0, len(missing))
	for t := range missing {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// discrepancyConfidence averages the two lowest classification confidences
// among documents involved in at least one discrepancy.
func (e *Engine) discrepancyConfidence(docs []domain.DocumentResult, discrepancies []domain.Discrepancy) float64 {
	involved := map[domain.DocumentType]bool{}
	for _, d := range discrepancies {
		involved[d.DocumentA] = true
		involved[d.DocumentB] = true
	}

	var confidences []float64
	for _, doc := range docs {
		if involved[doc.Classification.Type] {
			confidences = append(confidences, doc.Classification.Confidence)
		}
	}
	if len(confidences) == 0 {
		return 0
	}
	sort.Float64s(confidences)
	if len(confidences) == 1 {
		return confidences[0]
	}
	return (confidences[0] + confidences[1]) / 2
}

// minRequiredConfidence is the lowest classification confidence across
// documents of a required type.
func (e *Engine) minRequiredConfidence(docs []domain.DocumentResult) float64 {
	requiredSet := map[domain.DocumentType]bool{}
	for _, t := range e.required {
		requiredSet[t] = true
	}

	min := 1.0
	for _, doc := range docs {
		if requiredSet[doc.Classification.Type] && doc.Classification.Confidence < min {
			min = doc.Classification.Confidence
		}
	}
	return min
}

// advisoryAnswer is the wire shape of a decision-assist response.
type advisoryAnswer struct {
	RecommendedActions []string `json:"recommended_actions"`
}

// appendAdvisory asks the reasoner for follow-up suggestions and appends any
// new ones. Failures are logged and ignored; the advisory path never affects
// the decision status.
func (e *Engine) appendAdvisory(ctx context.Context, docs []domain.DocumentResult, validation domain.ValidationResult, actions []string) []string {
	summary := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		summary = append(summary, map[string]interface{}{
			"filename":   doc.Input.Filename,
			"type":       doc.Classification.Type,
			"confidence": doc.Classification.Confidence,
			"fields":     doc.Record.FieldCount(),
		})
	}
	docsJSON, err := json.Marshal(summary)
	if err != nil {
		return actions
	}
	validationJSON, err := json.Marshal(validation)
	if err != nil {
		return actions
	}

	raw, err := e.advisor.Invoke(ctx, port.ReasonInput{
		Template: port.TemplateDecisionAssist,
		Variables: map[string]string{
			"documents":  string(docsJSON),
			"validation": string(validationJSON),
		},
	})
	if err != nil {
		log.Printf("decision.Engine: advisory call failed: %v", err)
		return actions
	}

	var answer advisoryAnswer
	if err := reasoner.Decode(raw, port.TemplateDecisionAssist, &answer); err != nil {
		log.Printf("decision.Engine: advisory answer unusable: %v", err)
		return actions
	}

	existing := map[string]bool{}
	for _, a := range actions {
		existing[a] = true
	}
	for _, a := range answer.RecommendedActions {
		a = strings.TrimSpace(a)
		if a != "" && !existing[a] {
			actions = append(actions, a)
			existing[a] = true
		}
	}
	return actions
}

func displayType(t domain.DocumentType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

func joinTypes(types []domain.DocumentType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, displayType(t))
	}
	return strings.Join(names, ", ")
}
