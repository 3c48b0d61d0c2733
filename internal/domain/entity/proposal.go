package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/validation"
)

type Proposal struct {
	ID          uuid.UUID
	FindID      uuid.UUID
	FinderID    uuid.UUID
	Price       valueobject.Money
	CoverLetter string
	Status      valueobject.ProposalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProposal(findID, finderID uuid.UUID, price valueobject.Money, coverLetter string) (*Proposal, error) {
	coverLetter, err := validation.Required("сопроводительное письмо", coverLetter, validation.MaxCoverLetterLength)
	if err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена предложения должна быть положительной")
	}

	now := time.Now().UTC()
	return &Proposal{
		ID:          uuid.New(),
		FindID:      findID,
		FinderID:    finderID,
		Price:       price,
		CoverLetter: coverLetter,
		Status:      valueobject.ProposalStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Proposal) Accept(now time.Time) error {
	if p.Status != valueobject.ProposalStatusPending {
		return apperror.New(apperror.ErrCodeBadRequest, "можно принять только ожидающее предложение")
	}
	p.Status = valueobject.ProposalStatusAccepted
	p.UpdatedAt = now
	return nil
}

func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.FinderID == userID
}

func (p *Proposal) IsAccepted() bool {
	return p.Status == valueobject.ProposalStatusAccepted
}
