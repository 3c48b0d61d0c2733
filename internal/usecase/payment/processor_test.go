package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	infrapayment "github.com/ignatzorin/finders-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/finder"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
)

const webhookSecret = "whsec_test"

type stubGateway struct {
	initialized []repository.PaymentInitRequest
	verified    []string
	status      string
	amount      valueobject.Money
	metadata    map[string]string
}

func (g *stubGateway) Initialize(_ context.Context, req repository.PaymentInitRequest) (*repository.PaymentSession, error) {
	g.initialized = append(g.initialized, req)
	return &repository.PaymentSession{Reference: req.Reference, PaymentURL: "https://pay.test/" + req.Reference}, nil
}

func (g *stubGateway) Verify(_ context.Context, reference string) (*repository.PaymentVerification, error) {
	g.verified = append(g.verified, reference)
	return &repository.PaymentVerification{
		Reference: reference,
		Status:    g.status,
		Amount:    g.amount,
		Currency:  "NGN",
		Metadata:  g.metadata,
	}, nil
}

type env struct {
	repos     repository.Registry
	gateway   *stubGateway
	processor *payment.Processor
	contracts *contract.Service
	ledger    *token.Ledger
	settings  *settings.Provider

	clientID uuid.UUID
	finderID uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewStore().Registry()

	e := &env{repos: repos, gateway: &stubGateway{}, clientID: uuid.New(), finderID: uuid.New()}
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: e.clientID, Email: "client@finders.test", Role: valueobject.RoleClient}))
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: e.finderID, Email: "finder@finders.test", Role: valueobject.RoleFinder}))
	require.NoError(t, repos.Clients.Create(ctx, &entity.Client{UserID: e.clientID}))
	require.NoError(t, repos.Finders.Create(ctx, &entity.Finder{UserID: e.finderID, IsActive: true}))

	e.settings = settings.NewProvider(repos.Settings)
	e.ledger = token.NewLedger(repos.Tx, repos.Clients, repos.Finders, repos.Ledger)
	settler := contract.NewSettler(repos.Tx, repos.Contracts, repos.Finds, repos.Finders, repos.Ledger, e.settings,
		finder.NewLevelCalculator(repos.Finders, repos.Levels), notify.Nop{})
	e.contracts = contract.NewService(repos, settler, e.gateway, notify.Nop{}, contract.Config{})
	e.processor = payment.NewProcessor(e.gateway, infrapayment.NewWebhookVerifier(webhookSecret), e.contracts, e.ledger,
		e.settings, repos.Contracts, repos.Users, "http://localhost:3000/payments/callback")
	return e
}

func (e *env) trustWebhooks(t *testing.T) {
	t.Helper()
	require.NoError(t, e.settings.Update(context.Background(), settings.KeyAutoVerifyPayments, "true", uuid.New()))
}

func (e *env) hire(t *testing.T, price string) *entity.Contract {
	t.Helper()
	ctx := context.Background()
	amount, err := valueobject.ParseMoney(price)
	require.NoError(t, err)

	f, err := entity.NewFind(e.clientID, "Найти юриста", "", amount, amount)
	require.NoError(t, err)
	require.NoError(t, e.repos.Finds.Create(ctx, f))
	p, err := entity.NewProposal(f.ID, e.finderID, amount, "Знаю хорошего юриста")
	require.NoError(t, err)
	require.NoError(t, e.repos.Proposals.Create(ctx, p))

	c, err := e.contracts.AcceptProposal(ctx, e.clientID, p.ID)
	require.NoError(t, err)
	return c
}

func webhook(t *testing.T, event, reference, status string, amount float64, meta map[string]string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"tx_ref":   reference,
			"status":   status,
			"amount":   amount,
			"currency": "NGN",
			"meta":     meta,
		},
	})
	require.NoError(t, err)
	return body, "sha256=" + infrapayment.Sign(webhookSecret, body)
}

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	body, _ := webhook(t, payment.EventChargeCompleted, "escrow_x", "successful", 10, nil)

	_, err := e.processor.HandleWebhook(context.Background(), body, "sha256=deadbeef")
	assert.ErrorIs(t, err, infrapayment.ErrInvalidSignature)

	_, err = e.processor.HandleWebhook(context.Background(), body, "")
	assert.ErrorIs(t, err, infrapayment.ErrInvalidSignature)
}

func TestHandleWebhook_FundsEscrowOnce(t *testing.T) {
	e := newEnv(t)
	e.trustWebhooks(t)
	ctx := context.Background()
	c := e.hire(t, "1000.00")

	body, sig := webhook(t, payment.EventChargeCompleted, "escrow_abc", "successful", 1000, map[string]string{
		"kind":       contract.PaymentKindEscrow,
		"contractId": c.ID.String(),
	})

	res, err := e.processor.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Duplicate)
	assert.Empty(t, e.gateway.verified)

	funded, err := e.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, funded.EscrowStatus)
	require.NotNil(t, funded.PaymentReference)
	assert.Equal(t, "escrow_abc", *funded.PaymentReference)

	res, err = e.processor.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, res.Duplicate)

	txs, err := e.repos.Ledger.ListTransactions(ctx, e.clientID, valueobject.AssetMoney, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestHandleWebhook_ReverifiesWithGateway(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.hire(t, "1000.00")

	// в теле вебхука "successful", но шлюз платёж не подтверждает
	e.gateway.status = "failed"
	body, sig := webhook(t, payment.EventChargeCompleted, "escrow_def", "successful", 1000, map[string]string{
		"kind":       contract.PaymentKindEscrow,
		"contractId": c.ID.String(),
	})

	res, err := e.processor.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.Equal(t, []string{"escrow_def"}, e.gateway.verified)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Ignored)

	stored, err := e.repos.Contracts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusPending, stored.EscrowStatus)
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	e := newEnv(t)
	body, sig := webhook(t, "transfer.completed", "trf_1", "successful", 10, nil)

	res, err := e.processor.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Ignored)
}

func TestHandleWebhook_RejectsMalformedBody(t *testing.T) {
	e := newEnv(t)
	body := []byte("{not json")

	_, err := e.processor.HandleWebhook(context.Background(), body, infrapayment.Sign(webhookSecret, body))
	require.Error(t, err)
}

func TestPurchaseTokens_CreditedByWebhook(t *testing.T) {
	e := newEnv(t)
	e.trustWebhooks(t)
	ctx := context.Background()

	purchase, err := e.processor.PurchaseTokens(ctx, e.clientID, token.HolderClient, 3)
	require.NoError(t, err)
	assert.Equal(t, "300.00", purchase.Amount.String())
	require.Len(t, e.gateway.initialized, 1)
	meta := e.gateway.initialized[0].Metadata
	assert.Equal(t, contract.PaymentKindTokenPurchase, meta["kind"])
	assert.Equal(t, "3", meta["tokens"])

	body, sig := webhook(t, payment.EventChargeCompleted, purchase.Reference, "successful", 300, meta)
	res, err := e.processor.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	balance, err := e.ledger.ClientBalance(ctx, e.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	res, err = e.processor.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	balance, err = e.ledger.ClientBalance(ctx, e.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	exists, err := e.repos.Ledger.ExistsByReference(ctx, valueobject.TxTokenPurchase, purchase.Reference)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPurchaseTokens_UnderpaidWebhook(t *testing.T) {
	e := newEnv(t)
	e.trustWebhooks(t)
	ctx := context.Background()

	purchase, err := e.processor.PurchaseTokens(ctx, e.finderID, token.HolderFinder, 2)
	require.NoError(t, err)

	body, sig := webhook(t, payment.EventChargeCompleted, purchase.Reference, "successful", 150, e.gateway.initialized[0].Metadata)
	_, err = e.processor.HandleWebhook(ctx, body, sig)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	balance, err := e.ledger.FinderBalance(ctx, e.finderID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestPurchaseTokens_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.processor.PurchaseTokens(ctx, e.clientID, token.HolderClient, 0)
	assert.True(t, apperror.IsValidation(err))
	_, err = e.processor.PurchaseTokens(ctx, e.clientID, token.Holder("admin"), 1)
	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, e.gateway.initialized)
}

func TestPurchaseTokens_HugeCountIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, n := range []int64{payment.MaxTokensPerPurchase + 1, 182622766329724561} {
		_, err := e.processor.PurchaseTokens(ctx, e.clientID, token.HolderClient, n)
		assert.True(t, apperror.IsValidation(err), n)
	}
	assert.Empty(t, e.gateway.initialized)

	purchase, err := e.processor.PurchaseTokens(ctx, e.clientID, token.HolderClient, payment.MaxTokensPerPurchase)
	require.NoError(t, err)
	assert.Equal(t, "10000000.00", purchase.Amount.String())
}

func TestPurchaseTokens_WebhookWithForgedMetadata(t *testing.T) {
	e := newEnv(t)
	e.trustWebhooks(t)
	ctx := context.Background()

	cases := []map[string]string{
		{"kind": contract.PaymentKindTokenPurchase, "userId": e.clientID.String(), "holder": "client",
			"tokens": "182622766329724561", "amount": "0.16"},
		{"kind": contract.PaymentKindTokenPurchase, "userId": e.clientID.String(), "holder": "client",
			"tokens": "5"},
	}
	for i, meta := range cases {
		body, sig := webhook(t, payment.EventChargeCompleted, fmt.Sprintf("tokens_forged_%d", i), "successful", 0.16, meta)
		_, err := e.processor.HandleWebhook(ctx, body, sig)
		assert.True(t, apperror.IsValidation(err), i)
	}

	balance, err := e.ledger.ClientBalance(ctx, e.clientID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestVerifyContractPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.hire(t, "1000.00")

	_, err := e.processor.VerifyContractPayment(ctx, e.clientID, c.ID)
	require.Error(t, err, "оплата ещё не начиналась")

	session, err := e.contracts.InitiateFunding(ctx, e.clientID, c.ID)
	require.NoError(t, err)

	e.gateway.status = "pending"
	_, err = e.processor.VerifyContractPayment(ctx, e.clientID, c.ID)
	require.Error(t, err)

	e.gateway.status = repository.PaymentStatusSuccessful
	e.gateway.amount = c.Amount
	funded, err := e.processor.VerifyContractPayment(ctx, e.clientID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, funded.EscrowStatus)
	assert.Equal(t, session.Reference, e.gateway.verified[len(e.gateway.verified)-1])

	_, err = e.processor.VerifyContractPayment(ctx, uuid.New(), c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)

	again, err := e.processor.VerifyContractPayment(ctx, e.finderID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusFunded, again.EscrowStatus)
}
