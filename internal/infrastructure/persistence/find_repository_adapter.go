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

type FindRepositoryAdapter struct {
	db *sqlx.DB
}

func NewFindRepositoryAdapter(db *sqlx.DB) *FindRepositoryAdapter {
	return &FindRepositoryAdapter{db: db}
}

const findColumns = `id, client_id, title, description, budget_min_minor, budget_max_minor, status, boosted_until, created_at, updated_at`

func (r *FindRepositoryAdapter) Create(ctx context.Context, f *entity.Find) error {
	query := `
		INSERT INTO finds (` + findColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.ClientID, f.Title, f.Description, int64(f.BudgetMin), int64(f.BudgetMax),
		string(f.Status), f.BoostedUntil, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}
	return nil
}

func (r *FindRepositoryAdapter) Update(ctx context.Context, f *entity.Find) error {
	query := `
		UPDATE finds SET title = $2, description = $3, budget_min_minor = $4, budget_max_minor = $5,
		status = $6, boosted_until = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.Title, f.Description, int64(f.BudgetMin), int64(f.BudgetMax),
		string(f.Status), f.BoostedUntil, f.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить заявку")
	}
	return expectOneRow(res, apperror.ErrFindNotFound)
}

func (r *FindRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Find, error) {
	return r.get(ctx, `SELECT `+findColumns+` FROM finds WHERE id = $1`, id)
}

func (r *FindRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Find, error) {
	return r.get(ctx, `SELECT `+findColumns+` FROM finds WHERE id = $1 FOR UPDATE`, id)
}

func (r *FindRepositoryAdapter) get(ctx context.Context, query string, id uuid.UUID) (*entity.Find, error) {
	var row findRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrFindNotFound, "не удалось получить заявку")
	}
	return row.toEntity(), nil
}

type findRow struct {
	ID           uuid.UUID  `db:"id"`
	ClientID     uuid.UUID  `db:"client_id"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	BudgetMin    int64      `db:"budget_min_minor"`
	BudgetMax    int64      `db:"budget_max_minor"`
	Status       string     `db:"status"`
	BoostedUntil *time.Time `db:"boosted_until"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (r *findRow) toEntity() *entity.Find {
	return &entity.Find{
		ID:           r.ID,
		ClientID:     r.ClientID,
		Title:        r.Title,
		Description:  r.Description,
		BudgetMin:    valueobject.Money(r.BudgetMin),
		BudgetMax:    valueobject.Money(r.BudgetMax),
		Status:       valueobject.FindStatus(r.Status),
		BoostedUntil: r.BoostedUntil,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
