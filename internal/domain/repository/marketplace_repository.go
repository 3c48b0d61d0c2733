package repository

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

// Cursor - позиция постраничного обхода очереди: строки строго после (At, ID).
// Нулевое значение означает начало очереди.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// After сообщает, лежит ли (at, id) строго после курсора.
func (c Cursor) After(at time.Time, id uuid.UUID) bool {
	if !at.Equal(c.At) {
		return at.After(c.At)
	}
	return bytes.Compare(id[:], c.ID[:]) > 0
}

type FindRepository interface {
	Create(ctx context.Context, find *entity.Find) error
	Update(ctx context.Context, find *entity.Find) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Find, error)
	// FindByIDForUpdate блокирует строку заявки до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Find, error)
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	Update(ctx context.Context, proposal *entity.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	FindByFindAndFinder(ctx context.Context, findID, finderID uuid.UUID) (*entity.Proposal, error)
	HasAccepted(ctx context.Context, findID uuid.UUID) (bool, error)
}

type ContractRepository interface {
	Create(ctx context.Context, contract *entity.Contract) error
	// Update сохраняет контракт, только если его статус эскроу всё ещё равен expected.
	// Иначе возвращает ошибку CONFLICT.
	Update(ctx context.Context, contract *entity.Contract, expected valueobject.EscrowStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Contract, error)
	// ListCompletedAwaitingRelease - завершённые, но не выплаченные контракты с completed_at <= before,
	// по порядку (completed_at, id) после курсора.
	ListCompletedAwaitingRelease(ctx context.Context, before time.Time, after Cursor, limit int) ([]*entity.Contract, error)
}

type SubmissionRepository interface {
	// Upsert создаёт или перезаписывает единственную сдачу по контракту.
	Upsert(ctx context.Context, submission *entity.OrderSubmission) error
	FindByContractID(ctx context.Context, contractID uuid.UUID) (*entity.OrderSubmission, error)
	// ListDueForAutoRelease - сдачи в статусе submitted с истёкшим окном по оплаченным контрактам,
	// по порядку (auto_release_at, contract_id) после курсора.
	ListDueForAutoRelease(ctx context.Context, now time.Time, after Cursor, limit int) ([]*entity.OrderSubmission, error)
}
