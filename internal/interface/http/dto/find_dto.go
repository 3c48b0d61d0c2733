package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
)

// Суммы передаются строками с двумя знаками: "10000.00".
type CreateFindRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	BudgetMin   string `json:"budgetMin" binding:"required"`
	BudgetMax   string `json:"budgetMax" binding:"required"`
	Boost       bool   `json:"boost"`
}

type FindResponse struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"clientId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	BudgetMin    string     `json:"budgetMin"`
	BudgetMax    string     `json:"budgetMax"`
	Status       string     `json:"status"`
	BoostedUntil *time.Time `json:"boostedUntil"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func ToFindResponse(f *entity.Find) FindResponse {
	return FindResponse{
		ID:           f.ID,
		ClientID:     f.ClientID,
		Title:        f.Title,
		Description:  f.Description,
		BudgetMin:    f.BudgetMin.String(),
		BudgetMax:    f.BudgetMax.String(),
		Status:       string(f.Status),
		BoostedUntil: f.BoostedUntil,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
