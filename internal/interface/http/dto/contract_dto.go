package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
)

type ContractResponse struct {
	ID            uuid.UUID  `json:"id"`
	FindID        uuid.UUID  `json:"findId"`
	ProposalID    uuid.UUID  `json:"proposalId"`
	ClientID      uuid.UUID  `json:"clientId"`
	FinderID      uuid.UUID  `json:"finderId"`
	Amount        string     `json:"amount"`
	EscrowStatus  string     `json:"escrowStatus"`
	IsCompleted   bool       `json:"isCompleted"`
	HasSubmission bool       `json:"hasSubmission"`
	FundedAt      *time.Time `json:"fundedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	ReleasedAt    *time.Time `json:"releasedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func ToContractResponse(c *entity.Contract) ContractResponse {
	return ContractResponse{
		ID:            c.ID,
		FindID:        c.FindID,
		ProposalID:    c.ProposalID,
		ClientID:      c.ClientID,
		FinderID:      c.FinderID,
		Amount:        c.Amount.String(),
		EscrowStatus:  string(c.EscrowStatus),
		IsCompleted:   c.IsCompleted,
		HasSubmission: c.HasSubmission,
		FundedAt:      c.FundedAt,
		CompletedAt:   c.CompletedAt,
		ReleasedAt:    c.ReleasedAt,
		CreatedAt:     c.CreatedAt,
	}
}

func ToContractList(items []*entity.Contract) []ContractResponse {
	out := make([]ContractResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToContractResponse(c))
	}
	return out
}

type FundingResponse struct {
	ContractID uuid.UUID `json:"contractId"`
	Reference  string    `json:"reference"`
	PaymentURL string    `json:"paymentUrl"`
	Amount     string    `json:"amount"`
}

func ToFundingResponse(s *contract.FundingSession) FundingResponse {
	return FundingResponse{
		ContractID: s.ContractID,
		Reference:  s.Reference,
		PaymentURL: s.PaymentURL,
		Amount:     s.Amount.String(),
	}
}

type SubmitWorkRequest struct {
	SubmissionText  string   `json:"submissionText"`
	AttachmentPaths []string `json:"attachmentPaths"`
}

type ReviewSubmissionRequest struct {
	Action   string `json:"action" binding:"required,oneof=accept reject"`
	Feedback string `json:"feedback"`
}

type SubmissionResponse struct {
	ID              uuid.UUID  `json:"id"`
	ContractID      uuid.UUID  `json:"contractId"`
	FinderID        uuid.UUID  `json:"finderId"`
	SubmissionText  string     `json:"submissionText"`
	AttachmentPaths []string   `json:"attachmentPaths"`
	Status          string     `json:"status"`
	ClientFeedback  *string    `json:"clientFeedback"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ReviewedAt      *time.Time `json:"reviewedAt"`
	AutoReleaseAt   time.Time  `json:"autoReleaseAt"`
}

func ToSubmissionResponse(s *entity.OrderSubmission) SubmissionResponse {
	paths := s.AttachmentPaths
	if paths == nil {
		paths = []string{}
	}
	return SubmissionResponse{
		ID:              s.ID,
		ContractID:      s.ContractID,
		FinderID:        s.FinderID,
		SubmissionText:  s.SubmissionText,
		AttachmentPaths: paths,
		Status:          string(s.Status),
		ClientFeedback:  s.ClientFeedback,
		SubmittedAt:     s.SubmittedAt,
		ReviewedAt:      s.ReviewedAt,
		AutoReleaseAt:   s.AutoReleaseAt,
	}
}

type SettlementResponse struct {
	ContractID      uuid.UUID `json:"contractId"`
	FinderID        uuid.UUID `json:"finderId"`
	Gross           string    `json:"gross"`
	Fee             string    `json:"fee"`
	Net             string    `json:"net"`
	FeePercent      string    `json:"feePercent"`
	AlreadyReleased bool      `json:"alreadyReleased"`
}

func ToSettlementResponse(s *contract.Settlement) *SettlementResponse {
	if s == nil {
		return nil
	}
	return &SettlementResponse{
		ContractID:      s.ContractID,
		FinderID:        s.FinderID,
		Gross:           s.Gross.String(),
		Fee:             s.Fee.String(),
		Net:             s.Net.String(),
		FeePercent:      s.FeePercent.String(),
		AlreadyReleased: s.AlreadyReleased,
	}
}

type ReviewResponse struct {
	Submission SubmissionResponse  `json:"submission"`
	Settlement *SettlementResponse `json:"settlement,omitempty"`
}

type AdminCancelRequest struct {
	Reason string `json:"reason"`
}
