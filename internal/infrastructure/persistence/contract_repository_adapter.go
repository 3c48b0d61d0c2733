package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ContractRepositoryAdapter struct {
	db *sqlx.DB
}

func NewContractRepositoryAdapter(db *sqlx.DB) *ContractRepositoryAdapter {
	return &ContractRepositoryAdapter{db: db}
}

const contractColumns = `id, find_id, proposal_id, client_id, finder_id, amount_minor, escrow_status,
	is_completed, has_submission, payment_reference, funded_at, completed_at, released_at, created_at, updated_at`

func (r *ContractRepositoryAdapter) Create(ctx context.Context, c *entity.Contract) error {
	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.ID, c.FindID, c.ProposalID, c.ClientID, c.FinderID, int64(c.Amount), string(c.EscrowStatus),
		c.IsCompleted, c.HasSubmission, c.PaymentReference, c.FundedAt, c.CompletedAt, c.ReleasedAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if _, dup := uniqueViolation(err); dup {
			return apperror.ErrAlreadyAccepted
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать контракт")
	}
	return nil
}

func (r *ContractRepositoryAdapter) Update(ctx context.Context, c *entity.Contract, expected valueobject.EscrowStatus) error {
	query := `
		UPDATE contracts SET escrow_status = $3, is_completed = $4, has_submission = $5,
		payment_reference = $6, funded_at = $7, completed_at = $8, released_at = $9, updated_at = $10
		WHERE id = $1 AND escrow_status = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.ID, string(expected), string(c.EscrowStatus), c.IsCompleted, c.HasSubmission,
		c.PaymentReference, c.FundedAt, c.CompletedAt, c.ReleasedAt, c.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить контракт")
	}
	return expectOneRow(res, apperror.New(apperror.ErrCodeConflict, "статус контракта изменился, повторите операцию"))
}

func (r *ContractRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
}

func (r *ContractRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
}

func (r *ContractRepositoryAdapter) get(ctx context.Context, query string, id uuid.UUID) (*entity.Contract, error) {
	var row contractRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrContractNotFound, "не удалось получить контракт")
	}
	return row.toEntity(), nil
}

func (r *ContractRepositoryAdapter) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE client_id = $1 OR finder_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ContractRepositoryAdapter) ListCompletedAwaitingRelease(ctx context.Context, before time.Time, after repository.Cursor, limit int) ([]*entity.Contract, error) {
	query := `
		SELECT ` + contractColumns + ` FROM contracts
		WHERE is_completed AND escrow_status = 'funded' AND completed_at <= $1
			AND (completed_at, id) > ($2, $3)
		ORDER BY completed_at, id
		LIMIT $4
	`
	return r.list(ctx, query, before, after.At, after.ID, limit)
}

func (r *ContractRepositoryAdapter) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Contract, error) {
	var rows []contractRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракты")
	}
	result := make([]*entity.Contract, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

type contractRow struct {
	ID               uuid.UUID  `db:"id"`
	FindID           uuid.UUID  `db:"find_id"`
	ProposalID       uuid.UUID  `db:"proposal_id"`
	ClientID         uuid.UUID  `db:"client_id"`
	FinderID         uuid.UUID  `db:"finder_id"`
	Amount           int64      `db:"amount_minor"`
	EscrowStatus     string     `db:"escrow_status"`
	IsCompleted      bool       `db:"is_completed"`
	HasSubmission    bool       `db:"has_submission"`
	PaymentReference *string    `db:"payment_reference"`
	FundedAt         *time.Time `db:"funded_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	ReleasedAt       *time.Time `db:"released_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r *contractRow) toEntity() *entity.Contract {
	return &entity.Contract{
		ID:               r.ID,
		FindID:           r.FindID,
		ProposalID:       r.ProposalID,
		ClientID:         r.ClientID,
		FinderID:         r.FinderID,
		Amount:           valueobject.Money(r.Amount),
		EscrowStatus:     valueobject.EscrowStatus(r.EscrowStatus),
		IsCompleted:      r.IsCompleted,
		HasSubmission:    r.HasSubmission,
		PaymentReference: r.PaymentReference,
		FundedAt:         r.FundedAt,
		CompletedAt:      r.CompletedAt,
		ReleasedAt:       r.ReleasedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type SubmissionRepositoryAdapter struct {
	db *sqlx.DB
}

func NewSubmissionRepositoryAdapter(db *sqlx.DB) *SubmissionRepositoryAdapter {
	return &SubmissionRepositoryAdapter{db: db}
}

const submissionColumns = `s.id, s.contract_id, s.finder_id, s.submission_text, s.attachment_paths, s.status,
	s.client_feedback, s.submitted_at, s.reviewed_at, s.auto_release_at`

func (r *SubmissionRepositoryAdapter) Upsert(ctx context.Context, s *entity.OrderSubmission) error {
	query := `
		INSERT INTO order_submissions (id, contract_id, finder_id, submission_text, attachment_paths, status,
			client_feedback, submitted_at, reviewed_at, auto_release_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (contract_id) DO UPDATE SET
			finder_id = EXCLUDED.finder_id,
			submission_text = EXCLUDED.submission_text,
			attachment_paths = EXCLUDED.attachment_paths,
			status = EXCLUDED.status,
			client_feedback = EXCLUDED.client_feedback,
			submitted_at = EXCLUDED.submitted_at,
			reviewed_at = EXCLUDED.reviewed_at,
			auto_release_at = EXCLUDED.auto_release_at
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.ContractID, s.FinderID, s.SubmissionText, pq.StringArray(s.AttachmentPaths), string(s.Status),
		s.ClientFeedback, s.SubmittedAt, s.ReviewedAt, s.AutoReleaseAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сдачу работы")
	}
	return nil
}

func (r *SubmissionRepositoryAdapter) FindByContractID(ctx context.Context, contractID uuid.UUID) (*entity.OrderSubmission, error) {
	var row submissionRow
	query := `SELECT ` + submissionColumns + ` FROM order_submissions s WHERE s.contract_id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, contractID); err != nil {
		return nil, notFoundOr(err, apperror.ErrSubmissionNotFound, "не удалось получить сдачу работы")
	}
	return row.toEntity(), nil
}

func (r *SubmissionRepositoryAdapter) ListDueForAutoRelease(ctx context.Context, now time.Time, after repository.Cursor, limit int) ([]*entity.OrderSubmission, error) {
	var rows []submissionRow
	query := `
		SELECT ` + submissionColumns + `
		FROM order_submissions s
		JOIN contracts c ON c.id = s.contract_id
		WHERE s.status = 'submitted' AND s.auto_release_at <= $1 AND c.escrow_status = 'funded'
			AND (s.auto_release_at, s.contract_id) > ($2, $3)
		ORDER BY s.auto_release_at, s.contract_id
		LIMIT $4
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, now, after.At, after.ID, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить просроченные сдачи")
	}
	result := make([]*entity.OrderSubmission, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

type submissionRow struct {
	ID              uuid.UUID      `db:"id"`
	ContractID      uuid.UUID      `db:"contract_id"`
	FinderID        uuid.UUID      `db:"finder_id"`
	SubmissionText  string         `db:"submission_text"`
	AttachmentPaths pq.StringArray `db:"attachment_paths"`
	Status          string         `db:"status"`
	ClientFeedback  *string        `db:"client_feedback"`
	SubmittedAt     time.Time      `db:"submitted_at"`
	ReviewedAt      *time.Time     `db:"reviewed_at"`
	AutoReleaseAt   time.Time      `db:"auto_release_at"`
}

func (r *submissionRow) toEntity() *entity.OrderSubmission {
	return &entity.OrderSubmission{
		ID:              r.ID,
		ContractID:      r.ContractID,
		FinderID:        r.FinderID,
		SubmissionText:  r.SubmissionText,
		AttachmentPaths: []string(r.AttachmentPaths),
		Status:          valueobject.SubmissionStatus(r.Status),
		ClientFeedback:  r.ClientFeedback,
		SubmittedAt:     r.SubmittedAt,
		ReviewedAt:      r.ReviewedAt,
		AutoReleaseAt:   r.AutoReleaseAt,
	}
}
