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

type UserRepositoryAdapter struct {
	db *sqlx.DB
}

func NewUserRepositoryAdapter(db *sqlx.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{db: db}
}

func (r *UserRepositoryAdapter) Create(ctx context.Context, u *entity.User) error {
	query := `INSERT INTO users (id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return apperror.New(apperror.ErrCodeConflict, "пользователь с таким email уже существует")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать пользователя")
	}
	return nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var row userRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT id, email, name, role, created_at FROM users WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrUserNotFound, "не удалось получить пользователя")
	}
	return row.toEntity(), nil
}

func (r *UserRepositoryAdapter) ListAdmins(ctx context.Context) ([]*entity.User, error) {
	var rows []userRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT id, email, name, role, created_at FROM users WHERE role = 'admin'`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить администраторов")
	}
	result := make([]*entity.User, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

type userRow struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *userRow) toEntity() *entity.User {
	return &entity.User{ID: r.ID, Email: r.Email, Name: r.Name, Role: valueobject.Role(r.Role), CreatedAt: r.CreatedAt}
}

type FinderRepositoryAdapter struct {
	db *sqlx.DB
}

func NewFinderRepositoryAdapter(db *sqlx.DB) *FinderRepositoryAdapter {
	return &FinderRepositoryAdapter{db: db}
}

const finderColumns = `user_id, findertoken_balance, available_balance_minor, total_earned_minor, jobs_completed,
	rating, current_level_id, is_active, created_at, updated_at`

func (r *FinderRepositoryAdapter) Create(ctx context.Context, f *entity.Finder) error {
	query := `INSERT INTO finders (` + finderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		f.UserID, f.FindertokenBalance, int64(f.AvailableBalance), int64(f.TotalEarned), f.JobsCompleted,
		f.Rating, f.CurrentLevelID, f.IsActive, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать профиль исполнителя")
	}
	return nil
}

func (r *FinderRepositoryAdapter) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Finder, error) {
	var row finderRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+finderColumns+` FROM finders WHERE user_id = $1`, userID); err != nil {
		return nil, notFoundOr(err, apperror.ErrFinderNotFound, "не удалось получить исполнителя")
	}
	return row.toEntity(), nil
}

func (r *FinderRepositoryAdapter) ListActive(ctx context.Context) ([]*entity.Finder, error) {
	var rows []finderRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT `+finderColumns+` FROM finders WHERE is_active ORDER BY user_id`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить исполнителей")
	}
	result := make([]*entity.Finder, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

// AdjustTokenBalance меняет баланс одним UPDATE с условием неотрицательности.
func (r *FinderRepositoryAdapter) AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	query := `
		UPDATE finders SET findertoken_balance = findertoken_balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND findertoken_balance + $2 >= 0
		RETURNING findertoken_balance
	`
	if err := conn(ctx, r.db).GetContext(ctx, &balance, query, userID, delta); err != nil {
		if isNoRows(err) {
			if _, findErr := r.FindByID(ctx, userID); findErr != nil {
				return 0, findErr
			}
			return 0, apperror.ErrInsufficientTokens
		}
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось изменить баланс токенов")
	}
	return balance, nil
}

func (r *FinderRepositoryAdapter) SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE finders SET findertoken_balance = $2, updated_at = NOW() WHERE user_id = $1`, userID, balance)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось установить баланс токенов")
	}
	return expectOneRow(res, apperror.ErrFinderNotFound)
}

func (r *FinderRepositoryAdapter) CreditEarnings(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error {
	query := `
		UPDATE finders SET available_balance_minor = available_balance_minor + $2,
		total_earned_minor = total_earned_minor + $2, jobs_completed = jobs_completed + 1, updated_at = NOW()
		WHERE user_id = $1
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, userID, int64(amount))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зачислить выплату")
	}
	return expectOneRow(res, apperror.ErrFinderNotFound)
}

func (r *FinderRepositoryAdapter) SetLevel(ctx context.Context, userID uuid.UUID, levelID *uuid.UUID) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE finders SET current_level_id = $2, updated_at = NOW() WHERE user_id = $1`, userID, levelID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уровень исполнителя")
	}
	return expectOneRow(res, apperror.ErrFinderNotFound)
}

type finderRow struct {
	UserID             uuid.UUID  `db:"user_id"`
	FindertokenBalance int64      `db:"findertoken_balance"`
	AvailableBalance   int64      `db:"available_balance_minor"`
	TotalEarned        int64      `db:"total_earned_minor"`
	JobsCompleted      int        `db:"jobs_completed"`
	Rating             float64    `db:"rating"`
	CurrentLevelID     *uuid.UUID `db:"current_level_id"`
	IsActive           bool       `db:"is_active"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r *finderRow) toEntity() *entity.Finder {
	return &entity.Finder{
		UserID:             r.UserID,
		FindertokenBalance: r.FindertokenBalance,
		AvailableBalance:   valueobject.Money(r.AvailableBalance),
		TotalEarned:        valueobject.Money(r.TotalEarned),
		JobsCompleted:      r.JobsCompleted,
		Rating:             r.Rating,
		CurrentLevelID:     r.CurrentLevelID,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type ClientRepositoryAdapter struct {
	db *sqlx.DB
}

func NewClientRepositoryAdapter(db *sqlx.DB) *ClientRepositoryAdapter {
	return &ClientRepositoryAdapter{db: db}
}

const clientColumns = `user_id, findertoken_balance, available_balance_minor, created_at, updated_at`

func (r *ClientRepositoryAdapter) Create(ctx context.Context, c *entity.Client) error {
	query := `INSERT INTO clients (` + clientColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		c.UserID, c.FindertokenBalance, int64(c.AvailableBalance), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать профиль клиента")
	}
	return nil
}

func (r *ClientRepositoryAdapter) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Client, error) {
	var row clientRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+clientColumns+` FROM clients WHERE user_id = $1`, userID); err != nil {
		return nil, notFoundOr(err, apperror.ErrClientNotFound, "не удалось получить клиента")
	}
	return row.toEntity(), nil
}

func (r *ClientRepositoryAdapter) List(ctx context.Context) ([]*entity.Client, error) {
	var rows []clientRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT `+clientColumns+` FROM clients ORDER BY user_id`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить клиентов")
	}
	result := make([]*entity.Client, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

func (r *ClientRepositoryAdapter) AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	query := `
		UPDATE clients SET findertoken_balance = findertoken_balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND findertoken_balance + $2 >= 0
		RETURNING findertoken_balance
	`
	if err := conn(ctx, r.db).GetContext(ctx, &balance, query, userID, delta); err != nil {
		if isNoRows(err) {
			if _, findErr := r.FindByID(ctx, userID); findErr != nil {
				return 0, findErr
			}
			return 0, apperror.ErrInsufficientTokens
		}
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось изменить баланс токенов")
	}
	return balance, nil
}

func (r *ClientRepositoryAdapter) SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE clients SET findertoken_balance = $2, updated_at = NOW() WHERE user_id = $1`, userID, balance)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось установить баланс токенов")
	}
	return expectOneRow(res, apperror.ErrClientNotFound)
}

func (r *ClientRepositoryAdapter) CreditBalance(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE clients SET available_balance_minor = available_balance_minor + $2, updated_at = NOW() WHERE user_id = $1`,
		userID, int64(amount))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось вернуть средства клиенту")
	}
	return expectOneRow(res, apperror.ErrClientNotFound)
}

type clientRow struct {
	UserID             uuid.UUID `db:"user_id"`
	FindertokenBalance int64     `db:"findertoken_balance"`
	AvailableBalance   int64     `db:"available_balance_minor"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r *clientRow) toEntity() *entity.Client {
	return &entity.Client{
		UserID:             r.UserID,
		FindertokenBalance: r.FindertokenBalance,
		AvailableBalance:   valueobject.Money(r.AvailableBalance),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type LevelRepositoryAdapter struct {
	db *sqlx.DB
}

func NewLevelRepositoryAdapter(db *sqlx.DB) *LevelRepositoryAdapter {
	return &LevelRepositoryAdapter{db: db}
}

const levelColumns = `id, name, rank, min_earnings_minor, min_jobs, min_rating, monthly_tokens`

func (r *LevelRepositoryAdapter) List(ctx context.Context) ([]*entity.FinderLevel, error) {
	var rows []levelRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT `+levelColumns+` FROM finder_levels ORDER BY rank`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уровни")
	}
	result := make([]*entity.FinderLevel, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

func (r *LevelRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.FinderLevel, error) {
	var row levelRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+levelColumns+` FROM finder_levels WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, apperror.ErrLevelNotFound, "не удалось получить уровень")
	}
	return row.toEntity(), nil
}

type levelRow struct {
	ID            uuid.UUID `db:"id"`
	Name          string    `db:"name"`
	Rank          int       `db:"rank"`
	MinEarnings   int64     `db:"min_earnings_minor"`
	MinJobs       int       `db:"min_jobs"`
	MinRating     float64   `db:"min_rating"`
	MonthlyTokens int64     `db:"monthly_tokens"`
}

func (r *levelRow) toEntity() *entity.FinderLevel {
	return &entity.FinderLevel{
		ID:            r.ID,
		Name:          r.Name,
		Rank:          r.Rank,
		MinEarnings:   valueobject.Money(r.MinEarnings),
		MinJobs:       r.MinJobs,
		MinRating:     r.MinRating,
		MonthlyTokens: r.MonthlyTokens,
	}
}

type NotificationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewNotificationRepositoryAdapter(db *sqlx.DB) *NotificationRepositoryAdapter {
	return &NotificationRepositoryAdapter{db: db}
}

func (r *NotificationRepositoryAdapter) Create(ctx context.Context, n *entity.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать уведомление")
	}
	query := `
		INSERT INTO notifications (id, user_id, kind, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query,
		n.ID, n.UserID, n.Kind, n.Title, n.Message, data, n.IsRead, n.CreatedAt); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить уведомление")
	}
	return nil
}

func (r *NotificationRepositoryAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error) {
	var rows []struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Kind      string    `db:"kind"`
		Title     string    `db:"title"`
		Message   string    `db:"message"`
		Data      []byte    `db:"data"`
		IsRead    bool      `db:"is_read"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `
		SELECT id, user_id, kind, title, message, data, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомления")
	}
	result := make([]*entity.Notification, 0, len(rows))
	for _, row := range rows {
		n := &entity.Notification{
			ID: row.ID, UserID: row.UserID, Kind: row.Kind, Title: row.Title,
			Message: row.Message, IsRead: row.IsRead, CreatedAt: row.CreatedAt,
		}
		_ = json.Unmarshal(row.Data, &n.Data)
		result = append(result, n)
	}
	return result, nil
}

type SettingsRepositoryAdapter struct {
	db *sqlx.DB
}

func NewSettingsRepositoryAdapter(db *sqlx.DB) *SettingsRepositoryAdapter {
	return &SettingsRepositoryAdapter{db: db}
}

func (r *SettingsRepositoryAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := conn(ctx, r.db).GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить настройку")
	}
	return value, true, nil
}

func (r *SettingsRepositoryAdapter) Set(ctx context.Context, key, value string, updatedBy uuid.UUID) error {
	query := `
		INSERT INTO settings (key, value, updated_by, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, key, value, updatedBy); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить настройку")
	}
	return nil
}

func (r *SettingsRepositoryAdapter) List(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить настройки")
	}
	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Value
	}
	return result, nil
}
