package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
)

func setup(t *testing.T) (repository.Registry, *token.Ledger) {
	t.Helper()
	store := memory.NewStore()
	store.SeedLevels(memory.DefaultLevels()...)
	repos := store.Registry()
	return repos, token.NewLedger(repos.Tx, repos.Clients, repos.Finders, repos.Ledger)
}

func addClient(t *testing.T, repos repository.Registry) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repos.Users.Create(context.Background(), &entity.User{ID: id, Email: id.String() + "@c.test", Role: valueobject.RoleClient}))
	require.NoError(t, repos.Clients.Create(context.Background(), &entity.Client{UserID: id}))
	return id
}

func addFinder(t *testing.T, repos repository.Registry, levelID *uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repos.Users.Create(context.Background(), &entity.User{ID: id, Email: id.String() + "@f.test", Role: valueobject.RoleFinder}))
	require.NoError(t, repos.Finders.Create(context.Background(), &entity.Finder{UserID: id, IsActive: true, CurrentLevelID: levelID}))
	return id
}

func TestLedger_GrantAndDeductClient(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()
	clientID := addClient(t, repos)
	adminID := uuid.New()

	balance, err := ledger.GrantClientTokens(ctx, clientID, 10, "бонус", &adminID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	balance, err = ledger.DeductClientTokens(ctx, clientID, 4, "публикация")
	require.NoError(t, err)
	assert.Equal(t, int64(6), balance)

	grants, err := ledger.ListClientGrants(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	sum, err := repos.Ledger.SumClientGrants(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum)

	txs, err := ledger.ListTransactions(ctx, clientID, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, valueobject.TxTokenDeduction, txs[0].Type)
	assert.Equal(t, int64(-4), txs[0].Amount)
	assert.Equal(t, valueobject.TxTokenGrant, txs[1].Type)
}

func TestLedger_DeductNeverGoesNegative(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()
	finderID := addFinder(t, repos, nil)

	_, err := ledger.GrantFinderTokens(ctx, finderID, 2, "бонус", nil)
	require.NoError(t, err)

	_, err = ledger.DeductFinderTokens(ctx, finderID, 3, "отклик")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeInsufficientTokens, appErr.Code)
	assert.Equal(t, int64(3), appErr.Details["requiredTokens"])
	assert.Equal(t, int64(2), appErr.Details["currentBalance"])

	balance, err := ledger.FinderBalance(ctx, finderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	sum, err := repos.Ledger.SumTokens(ctx, finderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum)
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	repos, ledger := setup(t)
	clientID := addClient(t, repos)

	_, err := ledger.GrantClientTokens(context.Background(), clientID, 0, "ноль", nil)
	assert.True(t, apperror.IsValidation(err))
	_, err = ledger.DeductClientTokens(context.Background(), clientID, -1, "минус")
	assert.True(t, apperror.IsValidation(err))
}

func TestLedger_ReferenceMakesMovementIdempotent(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()
	clientID := addClient(t, repos)

	m := token.Movement{
		Holder:    token.HolderClient,
		UserID:    clientID,
		Amount:    25,
		Reference: "tokens_" + uuid.NewString(),
		Type:      valueobject.TxTokenPurchase,
	}
	_, err := ledger.Grant(ctx, m)
	require.NoError(t, err)

	_, err = ledger.Grant(ctx, m)
	assert.ErrorIs(t, err, apperror.ErrDuplicateReference)

	balance, err := ledger.ClientBalance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance)
}

func TestLedger_RequireReportsShortfall(t *testing.T) {
	repos, ledger := setup(t)
	clientID := addClient(t, repos)

	require.NoError(t, ledger.Require(context.Background(), token.HolderClient, clientID, 0))

	err := ledger.Require(context.Background(), token.HolderClient, clientID, 5)
	assert.True(t, apperror.IsInsufficientTokens(err))

	_, err = ledger.Balance(context.Background(), token.Holder("admin"), clientID)
	assert.True(t, apperror.IsValidation(err))
}

func TestLedger_SyncRepairsDrift(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()
	clientID := addClient(t, repos)
	finderID := addFinder(t, repos, nil)

	_, err := ledger.GrantClientTokens(ctx, clientID, 8, "бонус", nil)
	require.NoError(t, err)
	_, err = ledger.GrantFinderTokens(ctx, finderID, 4, "бонус", nil)
	require.NoError(t, err)
	_, err = ledger.DeductFinderTokens(ctx, finderID, 1, "отклик")
	require.NoError(t, err)

	require.NoError(t, repos.Clients.SetTokenBalance(ctx, clientID, 100))
	require.NoError(t, repos.Finders.SetTokenBalance(ctx, finderID, 0))

	report, err := ledger.SyncTokenBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, token.SyncReport{FindersChecked: 1, FindersFixed: 1, ClientsChecked: 1, ClientsFixed: 1}, report)

	balance, err := ledger.ClientBalance(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), balance)
	balance, err = ledger.FinderBalance(ctx, finderID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	report, err = ledger.SyncTokenBalances(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.FindersFixed+report.ClientsFixed)
}

func TestMonthlyDistributor_GrantsOncePerMonth(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()

	levels := memory.DefaultLevels()
	gold := levels[2].ID
	leveled := addFinder(t, repos, &gold)
	plain := addFinder(t, repos, nil)

	distributor := token.NewMonthlyDistributor(repos.Tx, repos.Finders, repos.Levels, repos.Ledger, settings.NewProvider(repos.Settings))
	now := time.Date(2026, time.March, 1, 0, 5, 0, 0, time.UTC)

	report, err := distributor.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Month)
	assert.Equal(t, 2026, report.Year)
	assert.Equal(t, 2, report.Granted)
	assert.Equal(t, int64(50+20), report.TotalTokens)

	balance, err := ledger.FinderBalance(ctx, leveled)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
	balance, err = ledger.FinderBalance(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)

	report, err = distributor.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.Granted)
	assert.Equal(t, 2, report.Skipped)

	balance, err = ledger.FinderBalance(ctx, leveled)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	exists, err := repos.Ledger.ExistsByReference(ctx, valueobject.TxMonthlyDistribution, "monthly:"+leveled.String()+":2026-03")
	require.NoError(t, err)
	assert.True(t, exists)

	report, err = distributor.Run(ctx, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Granted)
}

func TestMonthlyDistributor_UsesDefaultSetting(t *testing.T) {
	repos, ledger := setup(t)
	ctx := context.Background()
	finderID := addFinder(t, repos, nil)
	require.NoError(t, settings.NewProvider(repos.Settings).Update(ctx, settings.KeyMonthlyTokenDefault, "12", uuid.New()))

	distributor := token.NewMonthlyDistributor(repos.Tx, repos.Finders, repos.Levels, repos.Ledger, settings.NewProvider(repos.Settings))
	_, err := distributor.Run(ctx, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	balance, err := ledger.FinderBalance(ctx, finderID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), balance)
}
