package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

type DisputeRepository interface {
	Create(ctx context.Context, d *entity.Dispute) error
	Update(ctx context.Context, d *entity.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Dispute, error)
	// ListByStatus без статуса возвращает все споры.
	ListByStatus(ctx context.Context, status *valueobject.DisputeStatus) ([]*entity.Dispute, error)
}

type StrikeRepository interface {
	Create(ctx context.Context, s *entity.Strike) error
	Update(ctx context.Context, s *entity.Strike) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Strike, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Strike, error)
	// SumActive - сумма strike_count по действующим (active, appealed) неистёкшим страйкам.
	SumActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	// ExpireDue переводит истёкшие страйки в expired и возвращает их количество.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
