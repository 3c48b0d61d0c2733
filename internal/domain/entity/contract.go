package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

// Contract - эскроу-соглашение, создаётся при принятии предложения.
// Сумма фиксируется по цене предложения и больше не меняется.
type Contract struct {
	ID               uuid.UUID
	FindID           uuid.UUID
	ProposalID       uuid.UUID
	ClientID         uuid.UUID
	FinderID         uuid.UUID
	Amount           valueobject.Money
	EscrowStatus     valueobject.EscrowStatus
	IsCompleted      bool
	HasSubmission    bool
	PaymentReference *string
	FundedAt         *time.Time
	CompletedAt      *time.Time
	ReleasedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewContract(find *Find, proposal *Proposal, now time.Time) *Contract {
	return &Contract{
		ID:           uuid.New(),
		FindID:       find.ID,
		ProposalID:   proposal.ID,
		ClientID:     find.ClientID,
		FinderID:     proposal.FinderID,
		Amount:       proposal.Price,
		EscrowStatus: valueobject.EscrowStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (c *Contract) transition(next valueobject.EscrowStatus, now time.Time) error {
	if !c.EscrowStatus.CanTransitionTo(next) {
		return apperror.New(apperror.ErrCodeBadRequest,
			"недопустимый переход эскроу: "+string(c.EscrowStatus)+" -> "+string(next))
	}
	c.EscrowStatus = next
	c.UpdatedAt = now
	return nil
}

func (c *Contract) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.FinderID == userID
}

func (c *Contract) IsFunded() bool {
	return c.EscrowStatus == valueobject.EscrowStatusFunded
}

// AttachPayment запоминает референс платежа, выданный шлюзом.
func (c *Contract) AttachPayment(reference string, now time.Time) error {
	if c.EscrowStatus != valueobject.EscrowStatusPending {
		return apperror.New(apperror.ErrCodeBadRequest, "контракт уже оплачен")
	}
	c.PaymentReference = &reference
	c.UpdatedAt = now
	return nil
}

// Fund отмечает поступление средств в эскроу.
func (c *Contract) Fund(reference string, now time.Time) error {
	if err := c.transition(valueobject.EscrowStatusFunded, now); err != nil {
		return err
	}
	c.PaymentReference = &reference
	c.FundedAt = &now
	return nil
}

// MarkSubmitted фиксирует, что исполнитель сдал работу.
func (c *Contract) MarkSubmitted(now time.Time) error {
	if !c.IsFunded() {
		return apperror.New(apperror.ErrCodeBadRequest, "сдать работу можно только по оплаченному контракту")
	}
	if c.IsCompleted {
		return apperror.New(apperror.ErrCodeBadRequest, "контракт уже завершён")
	}
	c.HasSubmission = true
	c.UpdatedAt = now
	return nil
}

// Complete помечает контракт завершённым без выплаты (ручное завершение администратором).
func (c *Contract) Complete(now time.Time) error {
	if !c.IsFunded() || c.IsCompleted {
		return apperror.New(apperror.ErrCodeBadRequest, "завершить можно только оплаченный незавершённый контракт")
	}
	c.IsCompleted = true
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}

// Release выплачивает средства исполнителю и закрывает контракт.
func (c *Contract) Release(now time.Time) error {
	if err := c.transition(valueobject.EscrowStatusReleased, now); err != nil {
		return err
	}
	c.IsCompleted = true
	if c.CompletedAt == nil {
		c.CompletedAt = &now
	}
	c.ReleasedAt = &now
	return nil
}

// Cancel отменяет оплаченный незавершённый контракт (средства возвращаются клиенту).
func (c *Contract) Cancel(now time.Time) error {
	if c.IsCompleted {
		return apperror.New(apperror.ErrCodeBadRequest, "нельзя отменить завершённый контракт")
	}
	if err := c.transition(valueobject.EscrowStatusCancelled, now); err != nil {
		return err
	}
	c.IsCompleted = true
	c.CompletedAt = &now
	return nil
}

// ReadyForRelease - завершён, но средства не выплачены дольше окна ожидания.
func (c *Contract) ReadyForRelease(now time.Time, window time.Duration) bool {
	return c.IsCompleted && c.IsFunded() && c.CompletedAt != nil && !c.CompletedAt.After(now.Add(-window))
}
