package port

import (
	"context"

	"github.com/google/uuid"

	"claimflow/internal/domain"
)

// ClaimRunRepository persists completed claim runs.
type ClaimRunRepository interface {
	Create(ctx context.Context, run *domain.ClaimRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimRun, error)
	List(ctx context.Context, offset, limit int) ([]domain.ClaimRun, int, error)
}
