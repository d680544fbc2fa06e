package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"claimflow/internal/domain"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
)

// Classifier maps a document's text to a document type and confidence by
// delegating to the reasoning service. It never returns an error: every
// failure degrades to an unknown classification so a single document can
// never abort the batch.
type Classifier struct {
	reasoner port.Reasoner
	policy   callPolicy
}

// NewClassifier creates a Classifier with the given call policy.
func NewClassifier(r port.Reasoner, callTimeout, retryBackoff time.Duration) *Classifier {
	return &Classifier{
		reasoner: r,
		policy:   callPolicy{timeout: callTimeout, backoff: retryBackoff},
	}
}

// classificationAnswer is the wire shape of a classification response.
type classificationAnswer struct {
	Type       domain.DocumentType `json:"type"`
	Confidence float64             `json:"confidence"`
	Reasoning  string              `json:"reasoning"`
}

// Classify produces exactly one Classification for a document. Empty text
// short-circuits to unknown without spending a reasoning call.
func (c *Classifier) Classify(ctx context.Context, filename, text string) domain.Classification {
	if strings.TrimSpace(text) == "" {
		return domain.Classification{
			Type:       domain.DocTypeUnknown,
			Confidence: 0,
			Reasoning:  "document text is empty",
		}
	}

	raw, err := c.policy.invoke(ctx, c.reasoner, port.ReasonInput{
		Template: port.TemplateClassification,
		Variables: map[string]string{
			"filename": filename,
			"text":     text,
		},
	})
	if err != nil {
		log.Printf("pipeline.Classifier: %s classification failed: %v", filename, err)
		return unknownClassification(err)
	}

	var answer classificationAnswer
	if err := reasoner.Decode(raw, port.TemplateClassification, &answer); err != nil {
		log.Printf("pipeline.Classifier: %s returned unusable answer: %v", filename, err)
		return unknownClassification(err)
	}

	return domain.Classification{
		Type:       answer.Type,
		Confidence: domain.ClampConfidence(answer.Confidence),
		Reasoning:  answer.Reasoning,
	}
}

func unknownClassification(err error) domain.Classification {
	return domain.Classification{
		Type:       domain.DocTypeUnknown,
		Confidence: 0,
		Reasoning:  fmt.Sprintf("classification failed: %v", err),
	}
}
