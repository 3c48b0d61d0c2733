package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
)

type DisputeRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDisputeRepositoryAdapter(db *sqlx.DB) *DisputeRepositoryAdapter {
	return &DisputeRepositoryAdapter{db: db}
}

const disputeColumns = `id, user_id, type, contract_id, find_id, strike_id, description, evidence, status,
	resolution, resolved_by, resolved_at, created_at, updated_at`

func (r *DisputeRepositoryAdapter) Create(ctx context.Context, d *entity.Dispute) error {
	evidence, err := json.Marshal(d.Evidence)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать доказательства")
	}
	query := `INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.UserID, d.Type, d.ContractID, d.FindID, d.StrikeID, d.Description, evidence, string(d.Status),
		d.Resolution, d.ResolvedBy, d.ResolvedAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать спор")
	}
	return nil
}

func (r *DisputeRepositoryAdapter) Update(ctx context.Context, d *entity.Dispute) error {
	query := `UPDATE disputes SET status = $2, resolution = $3, resolved_by = $4, resolved_at = $5, updated_at = $6 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		d.ID, string(d.Status), d.Resolution, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить спор")
	}
	return expectOneRow(res, apperror.ErrDisputeNotFound)
}

func (r *DisputeRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	var row disputeRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrDisputeNotFound, "не удалось получить спор")
	}
	return row.toEntity()
}

func (r *DisputeRepositoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Dispute, error) {
	return r.list(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *DisputeRepositoryAdapter) ListByStatus(ctx context.Context, status *valueobject.DisputeStatus) ([]*entity.Dispute, error) {
	if status == nil {
		return r.list(ctx, `SELECT `+disputeColumns+` FROM disputes ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE status = $1 ORDER BY created_at DESC`, string(*status))
}

func (r *DisputeRepositoryAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Dispute, error) {
	var rows []disputeRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить споры")
	}
	result := make([]*entity.Dispute, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

type disputeRow struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	Type        string     `db:"type"`
	ContractID  *uuid.UUID `db:"contract_id"`
	FindID      *uuid.UUID `db:"find_id"`
	StrikeID    *uuid.UUID `db:"strike_id"`
	Description string     `db:"description"`
	Evidence    []byte     `db:"evidence"`
	Status      string     `db:"status"`
	Resolution  *string    `db:"resolution"`
	ResolvedBy  *uuid.UUID `db:"resolved_by"`
	ResolvedAt  *time.Time `db:"resolved_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *disputeRow) toEntity() (*entity.Dispute, error) {
	var evidence valueobject.EvidenceList
	if err := json.Unmarshal(r.Evidence, &evidence); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждены доказательства спора")
	}
	return &entity.Dispute{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        r.Type,
		ContractID:  r.ContractID,
		FindID:      r.FindID,
		StrikeID:    r.StrikeID,
		Description: r.Description,
		Evidence:    evidence,
		Status:      valueobject.DisputeStatus(r.Status),
		Resolution:  r.Resolution,
		ResolvedBy:  r.ResolvedBy,
		ResolvedAt:  r.ResolvedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type StrikeRepositoryAdapter struct {
	db *sqlx.DB
}

func NewStrikeRepositoryAdapter(db *sqlx.DB) *StrikeRepositoryAdapter {
	return &StrikeRepositoryAdapter{db: db}
}

const strikeColumns = `id, user_id, offense_type, severity, strike_count, evidence, status, appeal_reason,
	issued_by, expires_at, resolved_at, created_at, updated_at`

func (r *StrikeRepositoryAdapter) Create(ctx context.Context, s *entity.Strike) error {
	evidence, err := json.Marshal(s.Evidence)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать доказательства")
	}
	query := `INSERT INTO strikes (` + strikeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.UserID, s.OffenseType, string(s.Severity), s.StrikeCount, evidence, string(s.Status),
		s.AppealReason, s.IssuedBy, s.ExpiresAt, s.ResolvedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать страйк")
	}
	return nil
}

func (r *StrikeRepositoryAdapter) Update(ctx context.Context, s *entity.Strike) error {
	query := `UPDATE strikes SET status = $2, appeal_reason = $3, resolved_at = $4, updated_at = $5 WHERE id = $1`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, s.ID, string(s.Status), s.AppealReason, s.ResolvedAt, s.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить страйк")
	}
	return expectOneRow(res, apperror.ErrStrikeNotFound)
}

func (r *StrikeRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Strike, error) {
	var row strikeRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+strikeColumns+` FROM strikes WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrStrikeNotFound, "не удалось получить страйк")
	}
	return row.toEntity()
}

func (r *StrikeRepositoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Strike, error) {
	var rows []strikeRow
	query := `SELECT ` + strikeColumns + ` FROM strikes WHERE user_id = $1 ORDER BY created_at DESC`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить страйки")
	}
	result := make([]*entity.Strike, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func (r *StrikeRepositoryAdapter) SumActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var sum int
	query := `
		SELECT COALESCE(SUM(strike_count), 0) FROM strikes
		WHERE user_id = $1 AND status IN ('active', 'appealed') AND expires_at > $2
	`
	if err := conn(ctx, r.db).GetContext(ctx, &sum, query, userID, now); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать страйки")
	}
	return sum, nil
}

func (r *StrikeRepositoryAdapter) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE strikes SET status = 'expired', updated_at = $1
		WHERE status IN ('active', 'appealed') AND expires_at <= $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить истёкшие страйки")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить число изменённых строк")
	}
	return int(n), nil
}

type strikeRow struct {
	ID           uuid.UUID  `db:"id"`
	UserID       uuid.UUID  `db:"user_id"`
	OffenseType  string     `db:"offense_type"`
	Severity     string     `db:"severity"`
	StrikeCount  int        `db:"strike_count"`
	Evidence     []byte     `db:"evidence"`
	Status       string     `db:"status"`
	AppealReason *string    `db:"appeal_reason"`
	IssuedBy     *uuid.UUID `db:"issued_by"`
	ExpiresAt    time.Time  `db:"expires_at"`
	ResolvedAt   *time.Time `db:"resolved_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (r *strikeRow) toEntity() (*entity.Strike, error) {
	var evidence valueobject.EvidenceList
	if err := json.Unmarshal(r.Evidence, &evidence); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждены доказательства страйка")
	}
	return &entity.Strike{
		ID:           r.ID,
		UserID:       r.UserID,
		OffenseType:  r.OffenseType,
		Severity:     valueobject.StrikeSeverity(r.Severity),
		StrikeCount:  r.StrikeCount,
		Evidence:     evidence,
		Status:       valueobject.StrikeStatus(r.Status),
		AppealReason: r.AppealReason,
		IssuedBy:     r.IssuedBy,
		ExpiresAt:    r.ExpiresAt,
		ResolvedAt:   r.ResolvedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}
