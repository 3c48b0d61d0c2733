package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
)

type BalanceResponse struct {
	Holder           string  `json:"holder"`
	TokenBalance     int64   `json:"tokenBalance"`
	AvailableBalance *string `json:"availableBalance,omitempty"`
	TotalEarned      *string `json:"totalEarned,omitempty"`
	JobsCompleted    *int    `json:"jobsCompleted,omitempty"`
}

func ToFinderBalance(f *entity.Finder) BalanceResponse {
	available := f.AvailableBalance.String()
	earned := f.TotalEarned.String()
	jobs := f.JobsCompleted
	return BalanceResponse{
		Holder:           "finder",
		TokenBalance:     f.FindertokenBalance,
		AvailableBalance: &available,
		TotalEarned:      &earned,
		JobsCompleted:    &jobs,
	}
}

func ToClientBalance(c *entity.Client) BalanceResponse {
	available := c.AvailableBalance.String()
	return BalanceResponse{
		Holder:           "client",
		TokenBalance:     c.FindertokenBalance,
		AvailableBalance: &available,
	}
}

type TransactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	ContractID  *uuid.UUID `json:"contractId"`
	Type        string     `json:"type"`
	Asset       string     `json:"asset"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	Reference   *string    `json:"reference"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func ToTransactionList(items []*entity.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TransactionResponse{
			ID:          t.ID,
			ContractID:  t.ContractID,
			Type:        string(t.Type),
			Asset:       string(t.Asset),
			Amount:      t.Amount,
			Description: t.Description,
			Reference:   t.Reference,
			CreatedAt:   t.CreatedAt,
		})
	}
	return out
}

type GrantResponse struct {
	ID        uuid.UUID  `json:"id"`
	Amount    int64      `json:"amount"`
	Reason    string     `json:"reason"`
	GrantedBy *uuid.UUID `json:"grantedBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

func ToGrantList(items []*entity.TokenGrant) []GrantResponse {
	out := make([]GrantResponse, 0, len(items))
	for _, g := range items {
		out = append(out, GrantResponse{
			ID:        g.ID,
			Amount:    g.Amount,
			Reason:    g.Reason,
			GrantedBy: g.GrantedBy,
			CreatedAt: g.CreatedAt,
		})
	}
	return out
}

type PurchaseTokensRequest struct {
	Tokens int64 `json:"tokens" binding:"required,gt=0,lte=100000"`
}

type GrantTokensRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

type GrantTokensResponse struct {
	UserID     uuid.UUID `json:"userId"`
	Granted    int64     `json:"granted"`
	NewBalance int64     `json:"newBalance"`
}
