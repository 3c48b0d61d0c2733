package repository

import (
	"context"

	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

const PaymentStatusSuccessful = "successful"

type PaymentInitRequest struct {
	Amount        valueobject.Money
	Reference     string
	CustomerEmail string
	RedirectURL   string
	Metadata      map[string]string
}

type PaymentSession struct {
	Reference  string
	PaymentURL string
}

// PaymentVerification - подтверждённые шлюзом данные платежа.
type PaymentVerification struct {
	Reference string
	Status    string
	Amount    valueobject.Money
	Currency  string
	Metadata  map[string]string
}

func (v *PaymentVerification) Successful() bool {
	return v != nil && v.Status == PaymentStatusSuccessful
}

// PaymentGateway - внешний платёжный провайдер.
type PaymentGateway interface {
	Initialize(ctx context.Context, req PaymentInitRequest) (*PaymentSession, error)
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
}
