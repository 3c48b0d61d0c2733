package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
)

// LedgerRepositoryAdapter пишет журнал операций и начисления токенов.
// Строки журнала никогда не изменяются и не удаляются.
type LedgerRepositoryAdapter struct {
	db *sqlx.DB
}

func NewLedgerRepositoryAdapter(db *sqlx.DB) *LedgerRepositoryAdapter {
	return &LedgerRepositoryAdapter{db: db}
}

func (r *LedgerRepositoryAdapter) InsertTransaction(ctx context.Context, t *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, contract_id, type, asset, amount, description, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.UserID, t.ContractID, string(t.Type), string(t.Asset), t.Amount, t.Description, t.Reference, t.CreatedAt,
	)
	if err != nil {
		if _, dup := uniqueViolation(err); dup {
			return apperror.ErrDuplicateReference
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать операцию")
	}
	return nil
}

func (r *LedgerRepositoryAdapter) ExistsByReference(ctx context.Context, txType valueobject.TransactionType, reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE type = $1 AND reference = $2)`
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, string(txType), reference); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить операцию")
	}
	return exists, nil
}

func (r *LedgerRepositoryAdapter) ListTransactions(ctx context.Context, userID uuid.UUID, asset valueobject.Asset, limit, offset int) ([]*entity.Transaction, error) {
	var rows []transactionRow
	query := `
		SELECT id, user_id, contract_id, type, asset, amount, description, reference, created_at
		FROM transactions WHERE user_id = $1 AND asset = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, string(asset), limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить операции")
	}
	result := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

func (r *LedgerRepositoryAdapter) SumTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND asset = 'findertoken'`
	if err := conn(ctx, r.db).GetContext(ctx, &sum, query, userID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать токены")
	}
	return sum, nil
}

func (r *LedgerRepositoryAdapter) InsertClientGrant(ctx context.Context, g *entity.TokenGrant) error {
	return r.insertGrant(ctx, "client_token_grants", "client_id", g)
}

func (r *LedgerRepositoryAdapter) InsertFinderGrant(ctx context.Context, g *entity.TokenGrant) error {
	return r.insertGrant(ctx, "token_grants", "finder_id", g)
}

func (r *LedgerRepositoryAdapter) insertGrant(ctx context.Context, table, holderColumn string, g *entity.TokenGrant) error {
	query := `INSERT INTO ` + table + ` (id, ` + holderColumn + `, amount, reason, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, g.ID, g.HolderID, g.Amount, g.Reason, g.GrantedBy, g.CreatedAt); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать начисление токенов")
	}
	return nil
}

func (r *LedgerRepositoryAdapter) SumClientGrants(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var sum int64
	if err := conn(ctx, r.db).GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM client_token_grants WHERE client_id = $1`, clientID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать токены клиента")
	}
	return sum, nil
}

func (r *LedgerRepositoryAdapter) ListClientGrants(ctx context.Context, clientID uuid.UUID) ([]*entity.TokenGrant, error) {
	return r.listGrants(ctx, `SELECT id, client_id AS holder_id, amount, reason, granted_by, created_at
		FROM client_token_grants WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

func (r *LedgerRepositoryAdapter) ListFinderGrants(ctx context.Context, finderID uuid.UUID) ([]*entity.TokenGrant, error) {
	return r.listGrants(ctx, `SELECT id, finder_id AS holder_id, amount, reason, granted_by, created_at
		FROM token_grants WHERE finder_id = $1 ORDER BY created_at DESC`, finderID)
}

func (r *LedgerRepositoryAdapter) listGrants(ctx context.Context, query string, holderID uuid.UUID) ([]*entity.TokenGrant, error) {
	var rows []struct {
		ID        uuid.UUID  `db:"id"`
		HolderID  uuid.UUID  `db:"holder_id"`
		Amount    int64      `db:"amount"`
		Reason    string     `db:"reason"`
		GrantedBy *uuid.UUID `db:"granted_by"`
		CreatedAt time.Time  `db:"created_at"`
	}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, holderID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить начисления токенов")
	}
	result := make([]*entity.TokenGrant, 0, len(rows))
	for _, row := range rows {
		result = append(result, &entity.TokenGrant{
			ID: row.ID, HolderID: row.HolderID, Amount: row.Amount,
			Reason: row.Reason, GrantedBy: row.GrantedBy, CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}

func (r *LedgerRepositoryAdapter) HasDistribution(ctx context.Context, finderID uuid.UUID, month, year int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM token_distributions WHERE finder_id = $1 AND month = $2 AND year = $3)`
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, finderID, month, year); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить распределение токенов")
	}
	return exists, nil
}

func (r *LedgerRepositoryAdapter) InsertDistribution(ctx context.Context, d *entity.TokenDistribution) error {
	query := `
		INSERT INTO token_distributions (id, finder_id, level_id, amount, month, year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, d.ID, d.FinderID, d.LevelID, d.Amount, d.Month, d.Year, d.CreatedAt); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return apperror.ErrDuplicateReference
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать распределение токенов")
	}
	return nil
}

type transactionRow struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	ContractID  *uuid.UUID `db:"contract_id"`
	Type        string     `db:"type"`
	Asset       string     `db:"asset"`
	Amount      int64      `db:"amount"`
	Description string     `db:"description"`
	Reference   *string    `db:"reference"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r *transactionRow) toEntity() *entity.Transaction {
	return &entity.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		ContractID:  r.ContractID,
		Type:        valueobject.TransactionType(r.Type),
		Asset:       valueobject.Asset(r.Asset),
		Amount:      r.Amount,
		Description: r.Description,
		Reference:   r.Reference,
		CreatedAt:   r.CreatedAt,
	}
}
