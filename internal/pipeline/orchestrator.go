// Package pipeline orchestrates a claim batch through text extraction,
// classification, typed extraction, validation, and decision. Per-document
// work fans out concurrently inside each stage; stages are separated by
// barriers so validation always sees the complete record set.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"claimflow/internal/decision"
	"claimflow/internal/domain"
	"claimflow/internal/port"
	"claimflow/internal/validator/claim"
)

// Orchestrator runs the full claim processing pipeline for one batch.
type Orchestrator struct {
	textExtractor  port.TextExtractor
	classifier     *Classifier
	extractor      *Extractor
	validator      *claim.Engine
	decider        *decision.Engine
	maxConcurrency int
	clock          func() time.Time
}

// NewOrchestrator wires the pipeline stages together. maxConcurrency bounds
// the per-stage fan-out.
func NewOrchestrator(
	textExtractor port.TextExtractor,
	classifier *Classifier,
	extractor *Extractor,
	validator *claim.Engine,
	decider *decision.Engine,
	maxConcurrency int,
) *Orchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Orchestrator{
		textExtractor:  textExtractor,
		classifier:     classifier,
		extractor:      extractor,
		validator:      validator,
		decider:        decider,
		maxConcurrency: maxConcurrency,
		clock:          time.Now,
	}
}

// Run processes one closed batch of documents and returns the claim report.
// Run fails (returns an error instead of a report) only when the batch is
// empty, no document yields any text, or the context is canceled. Every other
// failure mode degrades per document and still produces a full report.
func (o *Orchestrator) Run(ctx context.Context, inputs []domain.DocumentInput) (*domain.ClaimReport, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	start := o.clock()
	log.Printf("pipeline.Orchestrator: state=%s documents=%d", domain.RunStateReceived, len(inputs))

	results := make([]domain.DocumentResult, len(inputs))
	for i, input := range inputs {
		results[i].Input = input
	}

	// Stage 1: text extraction + classification, one slot per document.
	log.Printf("pipeline.Orchestrator: state=%s", domain.RunStateClassifying)
	o.fanOut(ctx, len(inputs), func(i int) {
		doc := &results[i]
		text, err := o.textExtractor.ExtractText(ctx, doc.Input)
		if err != nil {
			log.Printf("pipeline.Orchestrator: %s text extraction failed: %v", doc.Input.Filename, err)
			doc.Errors = append(doc.Errors, fmt.Sprintf("text extraction failed: %v", err))
			text = ""
		}
		doc.Text = text
		doc.Classification = o.classifier.Classify(ctx, doc.Input.Filename, text)
	})
	if err := ctx.Err(); err != nil {
		log.Printf("pipeline.Orchestrator: state=%s reason=canceled", domain.RunStateFailed)
		return nil, err
	}
	if !anyText(results) {
		log.Printf("pipeline.Orchestrator: state=%s reason=no usable documents", domain.RunStateFailed)
		return nil, domain.ErrNoUsableDocuments
	}

	// Stage 2: typed extraction over the classified set.
	log.Printf("pipeline.Orchestrator: state=%s", domain.RunStateExtracting)
	o.fanOut(ctx, len(results), func(i int) {
		doc := &results[i]
		record, errs := o.extractor.Extract(ctx, doc.Classification.Type, doc.Input.Filename, doc.Text)
		doc.Record = record
		doc.Errors = append(doc.Errors, errs...)
	})
	if err := ctx.Err(); err != nil {
		log.Printf("pipeline.Orchestrator: state=%s reason=canceled", domain.RunStateFailed)
		return nil, err
	}

	log.Printf("pipeline.Orchestrator: state=%s", domain.RunStateValidating)
	validation := o.validator.Validate(results, o.clock())

	log.Printf("pipeline.Orchestrator: state=%s", domain.RunStateDeciding)
	claimDecision := o.decider.Decide(ctx, results, validation)

	report := o.assembleReport(results, validation, claimDecision, start)
	log.Printf("pipeline.Orchestrator: state=%s status=%s duration=%.2fs",
		domain.RunStateCompleted, claimDecision.Status, report.ProcessingTime)
	return report, nil
}

// fanOut runs fn(i) for i in [0,n) with at most maxConcurrency goroutines in
// flight, and blocks until all finish. Each fn owns its own result slot, so
// no locking is needed.
func (o *Orchestrator) fanOut(ctx context.Context, n int, fn func(i int)) {
	limit := o.maxConcurrency
	if n < limit {
		limit = n
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

func anyText(results []domain.DocumentResult) bool {
	for _, doc := range results {
		if strings.TrimSpace(doc.Text) != "" {
			return true
		}
	}
	return false
}

// assembleReport builds the immutable claim report. Documents keep submission
// order; structured_data indexes the best record per recognized type.
func (o *Orchestrator) assembleReport(results []domain.DocumentResult, validation domain.ValidationResult, claimDecision domain.ClaimDecision, start time.Time) *domain.ClaimReport {
	processed := make([]domain.ProcessedDocument, 0, len(results))
	structured := make(map[domain.DocumentType]domain.ExtractedRecord)
	for _, doc := range results {
		errs := doc.Errors
		if errs == nil {
			errs = []string{}
		}
		processed = append(processed, domain.ProcessedDocument{
			Filename:         doc.Input.Filename,
			Type:             doc.Classification.Type,
			Confidence:       doc.Classification.Confidence,
			Reasoning:        doc.Classification.Reasoning,
			ExtractedData:    doc.Record,
			ProcessingErrors: errs,
		})
		t := doc.Classification.Type
		if t == domain.DocTypeUnknown {
			continue
		}
		if existing, ok := structured[t]; !ok || doc.Record.FieldCount() > existing.FieldCount() {
			structured[t] = doc.Record
		}
	}

	end := o.clock()
	return &domain.ClaimReport{
		Documents:      processed,
		StructuredData: structured,
		Validation:     validation,
		Decision:       claimDecision,
		ProcessingTime: end.Sub(start).Seconds(),
		ProcessedAt:    end.UTC(),
	}
}
