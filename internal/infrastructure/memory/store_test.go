package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
)

func clientTokens(t *testing.T, ctx context.Context, store *Store, id uuid.UUID) int64 {
	t.Helper()
	c, err := store.Registry().Clients.FindByID(ctx, id)
	require.NoError(t, err)
	return c.FindertokenBalance
}

func TestWithinTx_OutsideReadsSeeCommittedOnly(t *testing.T) {
	store := NewStore()
	repos := store.Registry()
	ctx := context.Background()
	clientID := uuid.New()
	require.NoError(t, repos.Clients.Create(ctx, &entity.Client{UserID: clientID, FindertokenBalance: 10}))

	adjusted := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := repos.Clients.AdjustTokenBalance(ctx, clientID, -5); err != nil {
				return err
			}
			assert.Equal(t, int64(5), clientTokens(t, ctx, store, clientID))
			close(adjusted)
			<-finish
			return errors.New("создание заявки не удалось")
		})
	}()

	<-adjusted
	assert.Equal(t, int64(10), clientTokens(t, ctx, store, clientID))
	close(finish)

	require.Error(t, <-done)
	assert.Equal(t, int64(10), clientTokens(t, ctx, store, clientID))
}

func TestWithinTx_CommitBecomesVisible(t *testing.T) {
	store := NewStore()
	repos := store.Registry()
	ctx := context.Background()
	clientID := uuid.New()
	require.NoError(t, repos.Clients.Create(ctx, &entity.Client{UserID: clientID, FindertokenBalance: 10}))

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repos.Clients.AdjustTokenBalance(ctx, clientID, 7)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(17), clientTokens(t, ctx, store, clientID))
}
