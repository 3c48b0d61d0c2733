package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ListAdmins(ctx context.Context) ([]*entity.User, error)
}

type FinderRepository interface {
	Create(ctx context.Context, finder *entity.Finder) error
	FindByID(ctx context.Context, userID uuid.UUID) (*entity.Finder, error)
	ListActive(ctx context.Context) ([]*entity.Finder, error)
	// AdjustTokenBalance атомарно меняет баланс токенов на delta.
	// Если баланс ушёл бы в минус, возвращает ErrInsufficientTokens и ничего не меняет.
	AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error
	// CreditEarnings зачисляет выплату: available и total растут на amount, jobs_completed на 1.
	CreditEarnings(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error
	SetLevel(ctx context.Context, userID uuid.UUID, levelID *uuid.UUID) error
}

type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	FindByID(ctx context.Context, userID uuid.UUID) (*entity.Client, error)
	List(ctx context.Context) ([]*entity.Client, error)
	AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error
	// CreditBalance возвращает деньги на денежный баланс клиента (возврат эскроу).
	CreditBalance(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error
}

type LevelRepository interface {
	// List возвращает уровни по возрастанию rank.
	List(ctx context.Context) ([]*entity.FinderLevel, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FinderLevel, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error)
}

type SettingsRepository interface {
	// Get возвращает значение и признак наличия ключа.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, updatedBy uuid.UUID) error
	List(ctx context.Context) (map[string]string, error)
}
