package contract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/finder"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
)

const (
	autoReleaseWindow = 48 * time.Hour
	completedWindow   = 72 * time.Hour
)

type fakeGateway struct {
	initialized []repository.PaymentInitRequest
	verify      *repository.PaymentVerification
}

func (g *fakeGateway) Initialize(_ context.Context, req repository.PaymentInitRequest) (*repository.PaymentSession, error) {
	g.initialized = append(g.initialized, req)
	return &repository.PaymentSession{Reference: req.Reference, PaymentURL: "https://pay.test/" + req.Reference}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*repository.PaymentVerification, error) {
	if g.verify == nil {
		return nil, apperror.ErrPaymentGateway
	}
	v := *g.verify
	v.Reference = reference
	return &v, nil
}

type harness struct {
	repos   repository.Registry
	svc     *contract.Service
	settler *contract.Settler
	sweep   *contract.SettlementSweep
	gateway *fakeGateway

	clientID uuid.UUID
	finderID uuid.UUID
	adminID  uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	store.SeedLevels(memory.DefaultLevels()...)
	repos := store.Registry()

	h := &harness{
		repos:    repos,
		gateway:  &fakeGateway{},
		clientID: uuid.New(),
		finderID: uuid.New(),
		adminID:  uuid.New(),
	}
	h.addUser(t, h.clientID, valueobject.RoleClient)
	h.addUser(t, h.finderID, valueobject.RoleFinder)
	h.addUser(t, h.adminID, valueobject.RoleAdmin)

	dispatcher := notify.NewDispatcher(repos.Notifications, repos.Users, notify.NewLogMailer("test@finders.local"), notify.WithSync())
	provider := settings.NewProvider(repos.Settings)
	levels := finder.NewLevelCalculator(repos.Finders, repos.Levels)

	h.settler = contract.NewSettler(repos.Tx, repos.Contracts, repos.Finds, repos.Finders, repos.Ledger, provider, levels, dispatcher)
	h.svc = contract.NewService(repos, h.settler, h.gateway, dispatcher, contract.Config{
		SubmissionAutoReleaseWindow: autoReleaseWindow,
		PaymentRedirectURL:          "http://localhost:3000/payments/callback",
	})
	h.sweep = contract.NewSettlementSweep(repos.Tx, repos.Contracts, repos.Submissions, h.settler, dispatcher, completedWindow, 10)
	return h
}

func (h *harness) addUser(t *testing.T, id uuid.UUID, role valueobject.Role) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.repos.Users.Create(ctx, &entity.User{ID: id, Email: id.String() + "@finders.test", Name: string(role), Role: role}))
	switch role {
	case valueobject.RoleClient:
		require.NoError(t, h.repos.Clients.Create(ctx, &entity.Client{UserID: id}))
	case valueobject.RoleFinder:
		require.NoError(t, h.repos.Finders.Create(ctx, &entity.Finder{UserID: id, IsActive: true}))
	}
}

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.ParseMoney(s)
	require.NoError(t, err)
	return m
}

// postFind публикует заявку клиента и отклик исполнителя с указанной ценой.
func (h *harness) postFind(t *testing.T, finderID uuid.UUID, price string) (*entity.Find, *entity.Proposal) {
	t.Helper()
	ctx := context.Background()

	f, err := entity.NewFind(h.clientID, "Найти поставщика мебели", "Нужен поставщик в Лагосе", money(t, "5000.00"), money(t, "20000.00"))
	require.NoError(t, err)
	require.NoError(t, h.repos.Finds.Create(ctx, f))

	p, err := entity.NewProposal(f.ID, finderID, money(t, price), "Есть проверенные контакты")
	require.NoError(t, err)
	require.NoError(t, h.repos.Proposals.Create(ctx, p))
	return f, p
}

// fundedContract проводит найм и оплату эскроу.
func (h *harness) fundedContract(t *testing.T, price string) *entity.Contract {
	t.Helper()
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, price)
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	funded, already, err := h.svc.FundEscrow(ctx, contract.FundEscrowInput{
		ContractID: c.ID,
		Reference:  "escrow_" + uuid.NewString(),
		Amount:     c.Amount,
	})
	require.NoError(t, err)
	require.False(t, already)
	return funded
}

func (h *harness) submit(t *testing.T, contractID uuid.UUID) *entity.OrderSubmission {
	t.Helper()
	sub, err := h.svc.SubmitWork(context.Background(), contract.SubmitWorkInput{
		ContractID:      contractID,
		FinderID:        h.finderID,
		Text:            "Контакты поставщика во вложении",
		AttachmentPaths: []string{"uploads/suppliers.pdf", "  "},
	})
	require.NoError(t, err)
	return sub
}

func (h *harness) moneyTransactions(t *testing.T, userID uuid.UUID) []*entity.Transaction {
	t.Helper()
	txs, err := h.repos.Ledger.ListTransactions(context.Background(), userID, valueobject.AssetMoney, 50, 0)
	require.NoError(t, err)
	return txs
}

func TestContract_FullFlowReleasesNetOfFee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	f, p := h.postFind(t, h.finderID, "10000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusPending, c.EscrowStatus)
	assert.Equal(t, "10000.00", c.Amount.String())

	storedFind, err := h.repos.Finds.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.FindStatusInProgress, storedFind.Status)

	session, err := h.svc.InitiateFunding(ctx, h.clientID, c.ID)
	require.NoError(t, err)
	require.Len(t, h.gateway.initialized, 1)
	assert.Equal(t, contract.PaymentKindEscrow, h.gateway.initialized[0].Metadata["kind"])
	assert.Equal(t, c.ID.String(), h.gateway.initialized[0].Metadata["contractId"])
	assert.Contains(t, session.PaymentURL, session.Reference)

	_, already, err := h.svc.FundEscrow(ctx, contract.FundEscrowInput{ContractID: c.ID, Reference: session.Reference, Amount: c.Amount})
	require.NoError(t, err)
	assert.False(t, already)

	sub := h.submit(t, c.ID)
	assert.Equal(t, valueobject.SubmissionStatusSubmitted, sub.Status)
	assert.Equal(t, []string{"uploads/suppliers.pdf"}, sub.AttachmentPaths)
	assert.WithinDuration(t, sub.SubmittedAt.Add(autoReleaseWindow), sub.AutoReleaseAt, time.Second)

	res, err := h.svc.ReviewSubmission(ctx, contract.ReviewInput{
		ContractID: c.ID,
		ClientID:   h.clientID,
		Decision:   contract.ReviewAccept,
		Feedback:   "Спасибо",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Settlement)
	assert.Equal(t, "500.00", res.Settlement.Fee.String())
	assert.Equal(t, "9500.00", res.Settlement.Net.String())
	assert.Equal(t, valueobject.SubmissionStatusAccepted, res.Submission.Status)

	fd, err := h.repos.Finders.FindByID(ctx, h.finderID)
	require.NoError(t, err)
	assert.Equal(t, "9500.00", fd.AvailableBalance.String())
	assert.Equal(t, "9500.00", fd.TotalEarned.String())
	assert.Equal(t, 1, fd.JobsCompleted)

	released, err := h.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.EscrowStatus)
	assert.True(t, released.IsCompleted)
	assert.NotNil(t, released.ReleasedAt)

	closed, err := h.repos.Finds.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.FindStatusCompleted, closed.Status)

	txs := h.moneyTransactions(t, h.finderID)
	require.Len(t, txs, 1)
	assert.Equal(t, valueobject.TxEarningsRelease, txs[0].Type)
	assert.Equal(t, int64(950000), txs[0].Amount)
	require.NotNil(t, txs[0].Reference)
	assert.Equal(t, contract.ReleaseReference(c.ID), *txs[0].Reference)

	deposits := h.moneyTransactions(t, h.clientID)
	require.Len(t, deposits, 1)
	assert.Equal(t, valueobject.TxEscrowDeposit, deposits[0].Type)
	assert.Equal(t, int64(1000000), deposits[0].Amount)

	notifications, err := h.repos.Notifications.ListByUser(ctx, h.finderID, 50)
	require.NoError(t, err)
	kinds := make([]string, 0, len(notifications))
	for _, n := range notifications {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, notify.KindHired)
	assert.Contains(t, kinds, notify.KindFundsReleased)
}

func TestContract_FeeFollowsSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, settings.NewProvider(h.repos.Settings).Update(ctx, settings.KeyPlatformFeePercentage, "2.5", h.adminID))

	c := h.fundedContract(t, "333.33")
	h.submit(t, c.ID)

	res, err := h.svc.ReviewSubmission(ctx, contract.ReviewInput{ContractID: c.ID, ClientID: h.clientID, Decision: contract.ReviewAccept})
	require.NoError(t, err)
	// 333.33 * 2.5% = 8.33325 -> 8.33
	assert.Equal(t, "8.33", res.Settlement.Fee.String())
	assert.Equal(t, "325.00", res.Settlement.Net.String())
	assert.Equal(t, res.Settlement.Gross, res.Settlement.Fee+res.Settlement.Net)
}

func TestContract_SecondAcceptIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	otherFinder := uuid.New()
	h.addUser(t, otherFinder, valueobject.RoleFinder)

	f, first := h.postFind(t, h.finderID, "1000.00")
	second, err := entity.NewProposal(f.ID, otherFinder, money(t, "900.00"), "Сделаю дешевле")
	require.NoError(t, err)
	require.NoError(t, h.repos.Proposals.Create(ctx, second))

	_, err = h.svc.AcceptProposal(ctx, h.clientID, first.ID)
	require.NoError(t, err)

	_, err = h.svc.AcceptProposal(ctx, h.clientID, second.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyAccepted)

	contracts, err := h.repos.Contracts.ListByParticipant(ctx, h.clientID)
	require.NoError(t, err)
	assert.Len(t, contracts, 1)

	stored, err := h.repos.Proposals.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusPending, stored.Status)
}

func TestContract_AcceptRequiresFindOwner(t *testing.T) {
	h := newHarness(t)
	_, p := h.postFind(t, h.finderID, "1000.00")

	_, err := h.svc.AcceptProposal(context.Background(), uuid.New(), p.ID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContract_GetContractOnlyForParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "1000.00")

	_, err := h.svc.GetContract(ctx, c.ID, uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)

	got, err := h.svc.GetContract(ctx, c.ID, h.adminID, true)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	got, err = h.svc.GetContract(ctx, c.ID, h.finderID, false)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestContract_FundEscrowIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, "1000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	input := contract.FundEscrowInput{ContractID: c.ID, Reference: "escrow_once", Amount: c.Amount}
	_, already, err := h.svc.FundEscrow(ctx, input)
	require.NoError(t, err)
	assert.False(t, already)

	funded, already, err := h.svc.FundEscrow(ctx, input)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, valueobject.EscrowStatusFunded, funded.EscrowStatus)
	assert.Len(t, h.moneyTransactions(t, h.clientID), 1)

	_, _, err = h.svc.FundEscrow(ctx, contract.FundEscrowInput{ContractID: c.ID, Reference: "escrow_other", Amount: c.Amount})
	assert.True(t, apperror.IsConflict(err))
}

func TestContract_FundEscrowRejectsUnderpayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, "1000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	_, _, err = h.svc.FundEscrow(ctx, contract.FundEscrowInput{ContractID: c.ID, Reference: "escrow_short", Amount: money(t, "999.99")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInsufficientFunds))

	stored, err := h.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusPending, stored.EscrowStatus)
	assert.Empty(t, h.moneyTransactions(t, h.clientID))
}

func TestContract_SubmitRequiresFundedEscrow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, "1000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	_, err = h.svc.SubmitWork(ctx, contract.SubmitWorkInput{ContractID: c.ID, FinderID: h.finderID, Text: "готово"})
	require.Error(t, err)

	c = h.fundedContract(t, "1000.00")
	_, err = h.svc.SubmitWork(ctx, contract.SubmitWorkInput{ContractID: c.ID, FinderID: uuid.New(), Text: "готово"})
	assert.True(t, apperror.IsForbidden(err))

	_, err = h.svc.SubmitWork(ctx, contract.SubmitWorkInput{ContractID: c.ID, FinderID: h.finderID})
	assert.True(t, apperror.IsValidation(err))
}

func TestContract_RejectThenResubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "1000.00")
	first := h.submit(t, c.ID)

	_, err := h.svc.ReviewSubmission(ctx, contract.ReviewInput{ContractID: c.ID, ClientID: h.clientID, Decision: contract.ReviewReject})
	assert.True(t, apperror.IsValidation(err), "отклонение без причины")

	res, err := h.svc.ReviewSubmission(ctx, contract.ReviewInput{
		ContractID: c.ID, ClientID: h.clientID, Decision: contract.ReviewReject, Feedback: "Нет телефона поставщика",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Settlement)
	assert.Equal(t, valueobject.SubmissionStatusRejected, res.Submission.Status)

	stored, err := h.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, stored.EscrowStatus)
	assert.False(t, stored.IsCompleted)

	again := h.submit(t, c.ID)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, valueobject.SubmissionStatusSubmitted, again.Status)
	assert.Nil(t, again.ClientFeedback)
}

func TestContract_ReleaseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "10000.00")

	first, err := h.svc.AdminRelease(ctx, c.ID, h.adminID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyReleased)
	assert.Equal(t, "9500.00", first.Net.String())

	second, err := h.svc.AdminRelease(ctx, c.ID, h.adminID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyReleased)

	fd, err := h.repos.Finders.FindByID(ctx, h.finderID)
	require.NoError(t, err)
	assert.Equal(t, "9500.00", fd.AvailableBalance.String())
	assert.Equal(t, 1, fd.JobsCompleted)
	assert.Len(t, h.moneyTransactions(t, h.finderID), 1)
}

func TestContract_ReleaseRequiresFundedEscrow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, "1000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	_, err = h.settler.Release(ctx, c.ID)
	require.Error(t, err)
	assert.Empty(t, h.moneyTransactions(t, h.finderID))
}

func TestContract_AdminCancelRefundsClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "2500.50")

	cancelled, err := h.svc.AdminCancel(ctx, c.ID, h.adminID, "Исполнитель пропал")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusCancelled, cancelled.EscrowStatus)
	assert.True(t, cancelled.IsCompleted)

	cl, err := h.repos.Clients.FindByID(ctx, h.clientID)
	require.NoError(t, err)
	assert.Equal(t, "2500.50", cl.AvailableBalance.String())

	txs := h.moneyTransactions(t, h.clientID)
	require.Len(t, txs, 2)
	assert.Equal(t, valueobject.TxEscrowRefund, txs[0].Type)
	assert.Equal(t, int64(250050), txs[0].Amount)
	require.NotNil(t, txs[0].Reference)
	assert.Equal(t, contract.RefundReference(c.ID), *txs[0].Reference)

	f, err := h.repos.Finds.FindByID(ctx, c.FindID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.FindStatusCancelled, f.Status)

	_, err = h.svc.AdminCancel(ctx, c.ID, h.adminID, "повтор")
	require.Error(t, err)
	cl, err = h.repos.Clients.FindByID(ctx, h.clientID)
	require.NoError(t, err)
	assert.Equal(t, "2500.50", cl.AvailableBalance.String())

	_, err = h.svc.AdminRelease(ctx, c.ID, h.adminID)
	require.Error(t, err)
}

func TestContract_AdminCancelRequiresFunding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, p := h.postFind(t, h.finderID, "1000.00")
	c, err := h.svc.AcceptProposal(ctx, h.clientID, p.ID)
	require.NoError(t, err)

	_, err = h.svc.AdminCancel(ctx, c.ID, h.adminID, "")
	require.Error(t, err)
	assert.Empty(t, h.moneyTransactions(t, h.clientID))
}

func TestSettlementSweep_AutoAcceptsDueSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "10000.00")
	h.submit(t, c.ID)

	report, err := h.sweep.Run(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, contract.SweepReport{}, report)

	report, err = h.sweep.Run(ctx, time.Now().UTC().Add(autoReleaseWindow+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.AutoAccepted)
	assert.Zero(t, report.Failed)

	sub, err := h.repos.Submissions.FindByContractID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.SubmissionStatusAccepted, sub.Status)
	require.NotNil(t, sub.ClientFeedback)
	assert.Equal(t, contract.AutoAcceptFeedback, *sub.ClientFeedback)

	fd, err := h.repos.Finders.FindByID(ctx, h.finderID)
	require.NoError(t, err)
	assert.Equal(t, "9500.00", fd.AvailableBalance.String())

	report, err = h.sweep.Run(ctx, time.Now().UTC().Add(autoReleaseWindow+2*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, report.AutoAccepted)
	assert.Len(t, h.moneyTransactions(t, h.finderID), 1)
}

func TestSettlementSweep_ReleasesCompletedAfterWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "10000.00")

	completed, err := h.svc.AdminComplete(ctx, c.ID, h.adminID)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	assert.Equal(t, valueobject.EscrowStatusFunded, completed.EscrowStatus)

	report, err := h.sweep.Run(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.Released)

	report, err = h.sweep.Run(ctx, time.Now().UTC().Add(completedWindow+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Released)

	released, err := h.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, released.EscrowStatus)

	txs := h.moneyTransactions(t, h.finderID)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(950000), txs[0].Amount)

	_, err = h.svc.AdminComplete(ctx, c.ID, h.adminID)
	require.Error(t, err)
}

// brokenContracts отдаёт ошибку при блокировке выбранного контракта.
type brokenContracts struct {
	repository.ContractRepository
	broken uuid.UUID
}

func (r brokenContracts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	if id == r.broken {
		return nil, errors.New("row is locked")
	}
	return r.ContractRepository.FindByIDForUpdate(ctx, id)
}

func TestSettlementSweep_FailingItemDoesNotBlockQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stuck := h.fundedContract(t, "1000.00")
	h.submit(t, stuck.ID)
	time.Sleep(time.Millisecond)
	next := h.fundedContract(t, "2000.00")
	h.submit(t, next.ID)

	stuckDone := h.fundedContract(t, "3000.00")
	_, err := h.svc.AdminComplete(ctx, stuckDone.ID, h.adminID)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	nextDone := h.fundedContract(t, "4000.00")
	_, err = h.svc.AdminComplete(ctx, nextDone.ID, h.adminID)
	require.NoError(t, err)

	sweep := contract.NewSettlementSweep(h.repos.Tx, brokenContracts{h.repos.Contracts, stuck.ID}, h.repos.Submissions,
		h.settler, notify.Nop{}, completedWindow, 1)
	report, err := sweep.Run(ctx, time.Now().UTC().Add(completedWindow+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.AutoAccepted)
	assert.Equal(t, 2, report.Released)

	for _, id := range []uuid.UUID{next.ID, stuckDone.ID, nextDone.ID} {
		c, err := h.repos.Contracts.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, valueobject.EscrowStatusReleased, c.EscrowStatus)
	}
	c, err := h.repos.Contracts.FindByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, c.EscrowStatus)
}

func TestContract_ReleasePromotesFinderLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.fundedContract(t, "100.00")

	_, err := h.svc.AdminRelease(ctx, c.ID, h.adminID)
	require.NoError(t, err)

	fd, err := h.repos.Finders.FindByID(ctx, h.finderID)
	require.NoError(t, err)
	require.NotNil(t, fd.CurrentLevelID)
	level, err := h.repos.Levels.FindByID(ctx, *fd.CurrentLevelID)
	require.NoError(t, err)
	assert.Equal(t, "Bronze", level.Name)
}
