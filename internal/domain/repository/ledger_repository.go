package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

// LedgerRepository - журнал операций и начислений токенов (append-only).
type LedgerRepository interface {
	// InsertTransaction возвращает ErrDuplicateReference, если запись с таким (type, reference) уже есть.
	InsertTransaction(ctx context.Context, tx *entity.Transaction) error
	ExistsByReference(ctx context.Context, txType valueobject.TransactionType, reference string) (bool, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, asset valueobject.Asset, limit, offset int) ([]*entity.Transaction, error)
	// SumTokens - сумма токенов по журналу пользователя; источник истины для сверки балансов исполнителей.
	SumTokens(ctx context.Context, userID uuid.UUID) (int64, error)

	InsertClientGrant(ctx context.Context, grant *entity.TokenGrant) error
	SumClientGrants(ctx context.Context, clientID uuid.UUID) (int64, error)
	ListClientGrants(ctx context.Context, clientID uuid.UUID) ([]*entity.TokenGrant, error)

	InsertFinderGrant(ctx context.Context, grant *entity.TokenGrant) error
	ListFinderGrants(ctx context.Context, finderID uuid.UUID) ([]*entity.TokenGrant, error)

	HasDistribution(ctx context.Context, finderID uuid.UUID, month, year int) (bool, error)
	// InsertDistribution возвращает ErrDuplicateReference при повторе за тот же месяц.
	InsertDistribution(ctx context.Context, d *entity.TokenDistribution) error
}
