// Package service coordinates the claim pipeline with persistence and
// document archival. The pipeline itself is pure; everything with side
// effects lives here.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"claimflow/internal/domain"
	"claimflow/internal/pipeline"
	"claimflow/internal/port"
)

// ClaimService runs claim batches and records their outcomes. The repository
// and object storage are both optional; a nil repo means runs are not
// persisted, a nil storage (or empty bucket) means originals are not archived.
type ClaimService struct {
	orchestrator *pipeline.Orchestrator
	repo         port.ClaimRunRepository
	storage      port.ObjectStorage
	bucket       string
}

// NewClaimService creates a ClaimService. repo and storage may be nil.
func NewClaimService(orchestrator *pipeline.Orchestrator, repo port.ClaimRunRepository, storage port.ObjectStorage, bucket string) *ClaimService {
	return &ClaimService{
		orchestrator: orchestrator,
		repo:         repo,
		storage:      storage,
		bucket:       bucket,
	}
}

// ProcessClaim runs one claim batch end to end and returns the report along
// with the run record. The run record is persisted best-effort; a persistence
// failure is logged but never hides a completed report.
func (s *ClaimService) ProcessClaim(ctx context.Context, inputs []domain.DocumentInput) (*domain.ClaimReport, *domain.ClaimRun, error) {
	runID := uuid.New()
	log.Printf("service.ClaimService.ProcessClaim: run=%s documents=%d", runID, len(inputs))

	s.archiveDocuments(ctx, runID, inputs)

	run := &domain.ClaimRun{
		ID:            runID,
		DocumentCount: len(inputs),
		CreatedAt:     time.Now().UTC(),
	}

	report, err := s.orchestrator.Run(ctx, inputs)
	if err != nil {
		run.Status = domain.RunStateFailed
		run.FailureReason = err.Error()
		s.persistRun(ctx, run)
		return nil, run, err
	}

	run.Status = domain.RunStateCompleted
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if raw, merr := json.Marshal(report); merr != nil {
		log.Printf("service.ClaimService.ProcessClaim: run=%s report marshal failed: %v", runID, merr)
	} else {
		run.Report = raw
	}
	s.persistRun(ctx, run)
	return report, run, nil
}

// GetRun fetches one persisted claim run.
func (s *ClaimService) GetRun(ctx context.Context, id uuid.UUID) (*domain.ClaimRun, error) {
	if s.repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ListRuns pages through persisted claim runs, newest first.
func (s *ClaimService) ListRuns(ctx context.Context, offset, limit int) ([]domain.ClaimRun, int, error) {
	if s.repo == nil {
		return []domain.ClaimRun{}, 0, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

// archiveDocuments uploads the original payloads for audit. Archival is
// best-effort; a storage failure never blocks processing.
func (s *ClaimService) archiveDocuments(ctx context.Context, runID uuid.UUID, inputs []domain.DocumentInput) {
	if s.storage == nil || s.bucket == "" {
		return
	}
	for _, input := range inputs {
		key := fmt.Sprintf("claims/%s/%s", runID, input.Filename)
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.bucket,
			Key:         key,
			Body:        bytes.NewReader(input.Content),
			ContentType: input.ContentType,
		})
		if err != nil {
			log.Printf("service.ClaimService.archiveDocuments: run=%s key=%s upload failed: %v", runID, key, err)
		}
	}
}

func (s *ClaimService) persistRun(ctx context.Context, run *domain.ClaimRun) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, run); err != nil {
		log.Printf("service.ClaimService.persistRun: run=%s persist failed: %v", run.ID, err)
	}
}
