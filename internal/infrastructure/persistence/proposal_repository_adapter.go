package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
)

type ProposalRepositoryAdapter struct {
	db *sqlx.DB
}

func NewProposalRepositoryAdapter(db *sqlx.DB) *ProposalRepositoryAdapter {
	return &ProposalRepositoryAdapter{db: db}
}

const proposalColumns = `id, find_id, finder_id, price_minor, cover_letter, status, created_at, updated_at`

func (r *ProposalRepositoryAdapter) Create(ctx context.Context, p *entity.Proposal) error {
	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.FindID, p.FinderID, int64(p.Price), p.CoverLetter, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if _, dup := uniqueViolation(err); dup {
			return apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на эту заявку")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать предложение")
	}
	return nil
}

func (r *ProposalRepositoryAdapter) Update(ctx context.Context, p *entity.Proposal) error {
	query := `UPDATE proposals SET price_minor = $2, cover_letter = $3, status = $4, updated_at = $5 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, int64(p.Price), p.CoverLetter, string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		// uq_proposals_one_accepted: параллельное принятие второго предложения.
		if _, dup := uniqueViolation(err); dup {
			return apperror.ErrAlreadyAccepted
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить предложение")
	}
	return expectOneRow(res, apperror.ErrProposalNotFound)
}

func (r *ProposalRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrProposalNotFound, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *ProposalRepositoryAdapter) FindByFindAndFinder(ctx context.Context, findID, finderID uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE find_id = $1 AND finder_id = $2`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, findID, finderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *ProposalRepositoryAdapter) HasAccepted(ctx context.Context, findID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM proposals WHERE find_id = $1 AND status = 'accepted')`
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, findID); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить принятые предложения")
	}
	return exists, nil
}

type proposalRow struct {
	ID          uuid.UUID `db:"id"`
	FindID      uuid.UUID `db:"find_id"`
	FinderID    uuid.UUID `db:"finder_id"`
	Price       int64     `db:"price_minor"`
	CoverLetter string    `db:"cover_letter"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *proposalRow) toEntity() *entity.Proposal {
	return &entity.Proposal{
		ID:          r.ID,
		FindID:      r.FindID,
		FinderID:    r.FinderID,
		Price:       valueobject.Money(r.Price),
		CoverLetter: r.CoverLetter,
		Status:      valueobject.ProposalStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
