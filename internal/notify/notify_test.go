package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/finders-backend/internal/notify"
)

type recordingPusher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPusher) Push(_ uuid.UUID, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type recordingMailer struct {
	to []string
}

func (m *recordingMailer) SendMail(_ context.Context, to, _, _ string) error {
	m.to = append(m.to, to)
	return nil
}

func TestDispatcher_DeliversToAllChannels(t *testing.T) {
	repos := memory.NewStore().Registry()
	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: userID, Email: "finder@finders.test", Role: valueobject.RoleFinder}))

	pusher := &recordingPusher{}
	mailer := &recordingMailer{}
	d := notify.NewDispatcher(repos.Notifications, repos.Users, mailer, notify.WithSync(), notify.WithPusher(pusher))

	d.Send(ctx,
		notify.Event{UserID: userID, Kind: notify.KindFundsReleased, Title: "Выплата", Email: true},
		notify.Event{UserID: userID, Kind: notify.KindWorkAccepted, Title: "Принято"},
	)

	stored, err := repos.Notifications.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, []string{notify.KindFundsReleased, notify.KindWorkAccepted}, pusher.events)
	assert.Equal(t, []string{"finder@finders.test"}, mailer.to)
}

func TestDispatcher_PushFailureDoesNotStopDelivery(t *testing.T) {
	repos := memory.NewStore().Registry()
	ctx := context.Background()
	userID := uuid.New()

	pusher := &recordingPusher{err: errors.New("offline")}
	d := notify.NewDispatcher(repos.Notifications, repos.Users, nil, notify.WithSync(), notify.WithPusher(pusher))

	// получателя письма нет в базе: уведомление всё равно сохраняется
	d.Send(ctx, notify.Event{UserID: userID, Kind: notify.KindHired, Title: "Вас наняли", Email: true})

	stored, err := repos.Notifications.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDispatcher_SendToAdmins(t *testing.T) {
	repos := memory.NewStore().Registry()
	ctx := context.Background()
	admins := []uuid.UUID{uuid.New(), uuid.New()}
	for i, id := range admins {
		require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: id, Email: []string{"a@f.test", "b@f.test"}[i], Role: valueobject.RoleAdmin}))
	}
	client := uuid.New()
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: client, Email: "c@f.test", Role: valueobject.RoleClient}))

	d := notify.NewDispatcher(repos.Notifications, repos.Users, notify.NewLogMailer("no-reply@finders.test"), notify.WithSync())
	d.SendToAdmins(ctx, notify.Event{Kind: notify.KindDisputeCreated, Title: "Новый спор"})

	for _, id := range admins {
		inbox, err := repos.Notifications.ListByUser(ctx, id, 10)
		require.NoError(t, err)
		assert.Len(t, inbox, 1)
	}
	inbox, err := repos.Notifications.ListByUser(ctx, client, 10)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
