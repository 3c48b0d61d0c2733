// Package notify рассылает уведомления: сохраняет их в приложении,
// отправляет в WebSocket и на почту. Ошибки доставки логируются и не возвращаются.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/goroutine"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	KindHired             = "contract_hired"
	KindEscrowFunded      = "escrow_funded"
	KindWorkSubmitted     = "work_submitted"
	KindWorkAccepted      = "work_accepted"
	KindWorkRejected      = "work_rejected"
	KindContractCancelled = "contract_cancelled"
	KindContractCompleted = "contract_completed"
	KindFundsReleased     = "funds_released"
	KindDisputeCreated    = "dispute_created"
	KindDisputeUpdated    = "dispute_updated"
	KindStrikeIssued      = "strike_issued"
	KindTokensCredited    = "tokens_credited"
)

// Event - одно уведомление пользователю.
type Event struct {
	UserID  uuid.UUID
	Kind    string
	Title   string
	Message string
	Data    map[string]any
	// Email - продублировать уведомление письмом.
	Email bool
}

// Sender - то, чем пользуются сценарии. Отправка никогда не блокирует бизнес-операцию.
type Sender interface {
	Send(ctx context.Context, events ...Event)
	SendToAdmins(ctx context.Context, ev Event)
}

// Mailer отправляет письмо.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Pusher доставляет событие в открытые соединения пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// Dispatcher - основная реализация Sender.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        Mailer
	pusher        Pusher
	sync          bool
}

type Option func(*Dispatcher)

// WithSync отключает фоновую отправку (для тестов и CLI).
func WithSync() Option {
	return func(d *Dispatcher) { d.sync = true }
}

func WithPusher(p Pusher) Option {
	return func(d *Dispatcher) { d.pusher = p }
}

func NewDispatcher(notifications repository.NotificationRepository, users repository.UserRepository, mailer Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{notifications: notifications, users: users, mailer: mailer}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send доставляет события. Контекст запроса отвязывается от отмены,
// чтобы уведомление не потерялось после ответа клиенту.
func (d *Dispatcher) Send(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	run := func() {
		for _, ev := range events {
			d.deliver(ctx, ev)
		}
	}
	if d.sync {
		goroutine.Recover(run)
		return
	}
	goroutine.SafeGo(run)
}

// SendToAdmins рассылает событие всем администраторам.
func (d *Dispatcher) SendToAdmins(ctx context.Context, ev Event) {
	admins, err := d.users.ListAdmins(ctx)
	if err != nil {
		logger.WithComponent("notify").WithError(err).Warn("не удалось получить список администраторов")
		return
	}
	events := make([]Event, 0, len(admins))
	for _, a := range admins {
		e := ev
		e.UserID = a.ID
		events = append(events, e)
	}
	d.Send(ctx, events...)
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	log := logger.WithComponent("notify").WithFields(logrus.Fields{"user_id": ev.UserID, "kind": ev.Kind})

	n := &entity.Notification{
		ID:        uuid.New(),
		UserID:    ev.UserID,
		Kind:      ev.Kind,
		Title:     ev.Title,
		Message:   ev.Message,
		Data:      ev.Data,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		log.WithError(err).Warn("не удалось сохранить уведомление")
	}

	if d.pusher != nil {
		payload := map[string]any{"id": n.ID, "title": ev.Title, "message": ev.Message, "data": ev.Data}
		if err := d.pusher.Push(ev.UserID, ev.Kind, payload); err != nil {
			log.WithError(err).Warn("не удалось отправить уведомление в websocket")
		}
	}

	if ev.Email && d.mailer != nil {
		user, err := d.users.FindByID(ctx, ev.UserID)
		if err != nil {
			log.WithError(err).Warn("получатель письма не найден")
			return
		}
		if err := d.mailer.SendMail(ctx, user.Email, ev.Title, ev.Message); err != nil {
			log.WithError(err).Warn("не удалось отправить письмо")
		}
	}
}

// Nop ничего не отправляет.
type Nop struct{}

func (Nop) Send(context.Context, ...Event)       {}
func (Nop) SendToAdmins(context.Context, Event) {}
