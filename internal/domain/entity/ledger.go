package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

// Transaction - запись журнала операций. Amount знаковый:
// для токенов это количество, для денег - минорные единицы.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ContractID  *uuid.UUID
	Type        valueobject.TransactionType
	Asset       valueobject.Asset
	Amount      int64
	Description string
	Reference   *string
	CreatedAt   time.Time
}

func NewTransaction(userID uuid.UUID, txType valueobject.TransactionType, asset valueobject.Asset, amount int64, description string) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Asset:       asset,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

func (t *Transaction) WithReference(ref string) *Transaction {
	t.Reference = &ref
	return t
}

func (t *Transaction) ForContract(contractID uuid.UUID) *Transaction {
	t.ContractID = &contractID
	return t
}

// TokenGrant - начисление (или списание при отрицательном Amount) токенов.
// Используется и для клиентов, и для исполнителей; HolderID - их user id.
type TokenGrant struct {
	ID        uuid.UUID
	HolderID  uuid.UUID
	Amount    int64
	Reason    string
	GrantedBy *uuid.UUID
	CreatedAt time.Time
}

func NewTokenGrant(holderID uuid.UUID, amount int64, reason string, grantedBy *uuid.UUID) *TokenGrant {
	return &TokenGrant{
		ID:        uuid.New(),
		HolderID:  holderID,
		Amount:    amount,
		Reason:    reason,
		GrantedBy: grantedBy,
		CreatedAt: time.Now().UTC(),
	}
}

// TokenDistribution - отметка о ежемесячном начислении, одна на (исполнитель, месяц, год).
type TokenDistribution struct {
	ID        uuid.UUID
	FinderID  uuid.UUID
	LevelID   *uuid.UUID
	Amount    int64
	Month     int
	Year      int
	CreatedAt time.Time
}
