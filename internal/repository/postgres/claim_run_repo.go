package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"claimflow/internal/domain"
	"claimflow/internal/port"
)

type claimRunRepo struct {
	db *sqlx.DB
}

// NewClaimRunRepo creates a new PostgreSQL-backed ClaimRunRepository.
func NewClaimRunRepo(db *sqlx.DB) port.ClaimRunRepository {
	return &claimRunRepo{db: db}
}

func (r *claimRunRepo) Create(ctx context.Context, run *domain.ClaimRun) error {
	query := `INSERT INTO claim_runs (id, status, document_count, report, failure_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.DocumentCount, run.Report, run.FailureReason, run.CreatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("claimRunRepo.Create: %w", err)
	}
	return nil
}

func (r *claimRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimRun, error) {
	var run domain.ClaimRun
	err := r.db.GetContext(ctx, &run,
		"SELECT * FROM claim_runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("claimRunRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *claimRunRepo) List(ctx context.Context, offset, limit int) ([]domain.ClaimRun, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM claim_runs")
	if err != nil {
		return nil, 0, fmt.Errorf("claimRunRepo.List count: %w", err)
	}

	runs := []domain.ClaimRun{}
	err = r.db.SelectContext(ctx, &runs,
		`SELECT * FROM claim_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("claimRunRepo.List: %w", err)
	}
	return runs, total, nil
}
