package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
)

type SubmitProposalRequest struct {
	Price       string `json:"price" binding:"required"`
	CoverLetter string `json:"coverLetter" binding:"required"`
}

type ProposalResponse struct {
	ID          uuid.UUID `json:"id"`
	FindID      uuid.UUID `json:"findId"`
	FinderID    uuid.UUID `json:"finderId"`
	Price       string    `json:"price"`
	CoverLetter string    `json:"coverLetter"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ToProposalResponse(p *entity.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:          p.ID,
		FindID:      p.FindID,
		FinderID:    p.FinderID,
		Price:       p.Price.String(),
		CoverLetter: p.CoverLetter,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}
