package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      valueobject.Role
	CreatedAt time.Time
}

// Finder - профиль исполнителя с балансами.
// FindertokenBalance материализован и обновляется в одной транзакции с журналом.
type Finder struct {
	UserID             uuid.UUID
	FindertokenBalance int64
	AvailableBalance   valueobject.Money
	TotalEarned        valueobject.Money
	JobsCompleted      int
	Rating             float64
	CurrentLevelID     *uuid.UUID
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Client struct {
	UserID             uuid.UUID
	FindertokenBalance int64
	AvailableBalance   valueobject.Money
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FinderLevel - уровень исполнителя, определяет размер ежемесячного начисления токенов.
type FinderLevel struct {
	ID            uuid.UUID
	Name          string
	Rank          int
	MinEarnings   valueobject.Money
	MinJobs       int
	MinRating     float64
	MonthlyTokens int64
}

// QualifiedBy проверяет, выполнены ли пороги уровня.
func (l *FinderLevel) QualifiedBy(f *Finder) bool {
	return f.TotalEarned >= l.MinEarnings && f.JobsCompleted >= l.MinJobs && f.Rating >= l.MinRating
}

// Notification - уведомление в приложении.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      string
	Title     string
	Message   string
	Data      map[string]any
	IsRead    bool
	CreatedAt time.Time
}
