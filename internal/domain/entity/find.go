package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/validation"
)

// BoostDuration - на сколько поднимается заявка в выдаче.
const BoostDuration = 7 * 24 * time.Hour

// Find - запрос клиента на услугу.
type Find struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	Title        string
	Description  string
	BudgetMin    valueobject.Money
	BudgetMax    valueobject.Money
	Status       valueobject.FindStatus
	BoostedUntil *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewFind(clientID uuid.UUID, title, description string, budgetMin, budgetMax valueobject.Money) (*Find, error) {
	title, err := validation.Required("название заявки", title, validation.MaxFindTitleLength)
	if err != nil {
		return nil, err
	}
	description, err = validation.Optional("описание заявки", description, validation.MaxFindDescriptionLength)
	if err != nil {
		return nil, err
	}
	if budgetMin < 0 || budgetMax <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "бюджет должен быть положительным")
	}
	if budgetMin > budgetMax {
		return nil, apperror.New(apperror.ErrCodeValidation, "минимальный бюджет не может превышать максимальный")
	}

	now := time.Now().UTC()
	return &Find{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		BudgetMin:   budgetMin,
		BudgetMax:   budgetMax,
		Status:      valueobject.FindStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f *Find) IsOwnedBy(userID uuid.UUID) bool {
	return f.ClientID == userID
}

func (f *Find) IsOpen() bool {
	return f.Status == valueobject.FindStatusOpen
}

// Start переводит заявку в работу после найма исполнителя.
func (f *Find) Start(now time.Time) error {
	if f.Status != valueobject.FindStatusOpen {
		return apperror.New(apperror.ErrCodeBadRequest, "заявка уже не принимает предложения")
	}
	f.Status = valueobject.FindStatusInProgress
	f.UpdatedAt = now
	return nil
}

// Boost продлевает продвижение; повторный буст добавляется к текущему сроку.
func (f *Find) Boost(now time.Time) {
	from := now
	if f.BoostedUntil != nil && f.BoostedUntil.After(now) {
		from = *f.BoostedUntil
	}
	until := from.Add(BoostDuration)
	f.BoostedUntil = &until
	f.UpdatedAt = now
}

func (f *Find) IsBoosted(now time.Time) bool {
	return f.BoostedUntil != nil && f.BoostedUntil.After(now)
}

// Close закрывает заявку по итогам контракта: completed после выплаты, cancelled после отмены.
func (f *Find) Close(status valueobject.FindStatus, now time.Time) {
	f.Status = status
	f.UpdatedAt = now
}
