package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/auth"
	"github.com/ignatzorin/finders-backend/internal/config"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/infrastructure/memory"
	infrapayment "github.com/ignatzorin/finders-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/finders-backend/internal/interface/http/handler"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/find"
	"github.com/ignatzorin/finders-backend/internal/usecase/finder"
	"github.com/ignatzorin/finders-backend/internal/usecase/moderation"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
	"github.com/ignatzorin/finders-backend/internal/ws"
)

const webhookSecret = "whsec_test"

type testAPI struct {
	engine *gin.Engine
	repos  repository.Registry
	tokens *auth.TokenManager
	ledger *token.Ledger

	clientID, finderID, adminID uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	store.SeedLevels(memory.DefaultLevels()...)
	repos := store.Registry()

	api := &testAPI{repos: repos, clientID: uuid.New(), finderID: uuid.New(), adminID: uuid.New()}
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: api.clientID, Email: "client@finders.test", Role: valueobject.RoleClient}))
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: api.finderID, Email: "finder@finders.test", Role: valueobject.RoleFinder}))
	require.NoError(t, repos.Users.Create(ctx, &entity.User{ID: api.adminID, Email: "admin@finders.test", Role: valueobject.RoleAdmin}))
	require.NoError(t, repos.Clients.Create(ctx, &entity.Client{UserID: api.clientID}))
	require.NoError(t, repos.Finders.Create(ctx, &entity.Finder{UserID: api.finderID, IsActive: true}))

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  1000,
		RateLimitPeriod: time.Minute,
		Payment:         config.PaymentConfig{BaseURL: "http://127.0.0.1:0", WebhookSecret: webhookSecret},
	}

	settingsProvider := settings.NewProvider(repos.Settings)
	api.ledger = token.NewLedger(repos.Tx, repos.Clients, repos.Finders, repos.Ledger)
	distributor := token.NewMonthlyDistributor(repos.Tx, repos.Finders, repos.Levels, repos.Ledger, settingsProvider)
	levels := finder.NewLevelCalculator(repos.Finders, repos.Levels)
	strikes := moderation.NewStrikeService(repos.Strikes, repos.Users, notify.Nop{})
	disputes := moderation.NewDisputeService(repos.Disputes, repos.Contracts, repos.Finds, repos.Strikes, notify.Nop{})
	finds := find.NewService(repos.Tx, repos.Finds, repos.Proposals, api.ledger, settingsProvider, strikes)

	gateway := infrapayment.NewGateway(cfg.Payment)
	settler := contract.NewSettler(repos.Tx, repos.Contracts, repos.Finds, repos.Finders, repos.Ledger, settingsProvider, levels, notify.Nop{})
	contracts := contract.NewService(repos, settler, gateway, notify.Nop{}, contract.Config{SubmissionAutoReleaseWindow: 48 * time.Hour})
	payments := payment.NewProcessor(gateway, infrapayment.NewWebhookVerifier(webhookSecret),
		contracts, api.ledger, settingsProvider, repos.Contracts, repos.Users, "")

	api.tokens = auth.NewTokenManager("router-test-secret", time.Hour)
	api.engine = SetupRouter(cfg, Handlers{
		Health:        handler.NewHealthHandler(nil),
		Finds:         handler.NewFindHandler(finds),
		Contracts:     handler.NewContractHandler(contracts, payments),
		Tokens:        handler.NewTokenHandler(api.ledger, distributor, payments, repos.Finders, repos.Clients),
		Moderation:    handler.NewModerationHandler(disputes, strikes),
		Settings:      handler.NewSettingsHandler(settingsProvider),
		Notifications: handler.NewNotificationHandler(repos.Notifications),
		Webhooks:      handler.NewWebhookHandler(payments),
		WS:            handler.NewWSHandler(ws.NewHub(), api.tokens, cfg.AllowedOrigins),
	}, api.tokens)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, userID uuid.UUID, role valueobject.Role, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		tok, err := a.tokens.Issue(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/tokens/balance", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/balance", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	api.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/admin/settings", api.clientID, valueobject.RoleClient, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/admin/settings", api.adminID, valueobject.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "5", data[settings.KeyPlatformFeePercentage])
}

func TestAdminUpdatesSetting(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPut, "/api/admin/settings", api.adminID, valueobject.RoleAdmin,
		map[string]string{"key": settings.KeyHighBudgetTokenCost, "value": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/admin/settings", api.adminID, valueobject.RoleAdmin,
		map[string]string{"key": settings.KeyHighBudgetTokenCost, "value": "7"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "7", data[settings.KeyHighBudgetTokenCost])
}

func TestInvalidPathID(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/api/finds/not-a-uuid", api.clientID, valueobject.RoleClient, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFind(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/finds", api.clientID, valueobject.RoleClient, map[string]any{
		"title": "Найти поставщика тканей", "budgetMin": "1000", "budgetMax": "5000.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "5000.50", data["budgetMax"])
	assert.Equal(t, api.clientID.String(), data["clientId"])

	w = api.do(t, http.MethodGet, "/api/finds/"+data["id"].(string), api.finderID, valueobject.RoleFinder, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// исполнитель не публикует заявки
	w = api.do(t, http.MethodPost, "/api/finds", api.finderID, valueobject.RoleFinder, map[string]any{
		"title": "x", "budgetMin": "1", "budgetMax": "2",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateFind_HighBudgetWithoutTokens(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.ledger.GrantClientTokens(context.Background(), api.clientID, 2, "стартовый пакет", nil)
	require.NoError(t, err)

	w := api.do(t, http.MethodPost, "/api/finds", api.clientID, valueobject.RoleClient, map[string]any{
		"title": "Найти дистрибьютора", "budgetMin": "40000", "budgetMax": "60000",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["needsToPurchaseTokens"])
	assert.EqualValues(t, 5, body["requiredTokens"])
	assert.EqualValues(t, 2, body["currentBalance"])
	assert.Equal(t, "INSUFFICIENT_TOKENS", body["error"].(map[string]any)["code"])
}

func TestBalance(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.ledger.GrantFinderTokens(context.Background(), api.finderID, 4, "бонус", nil)
	require.NoError(t, err)

	w := api.do(t, http.MethodGet, "/api/tokens/balance", api.finderID, valueobject.RoleFinder, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.EqualValues(t, 4, data["tokenBalance"])
	assert.Equal(t, "0.00", data["availableBalance"])
}

func TestPaymentWebhook_RejectsBadSignature(t *testing.T) {
	api := newTestAPI(t)
	body := []byte(`{"event":"charge.completed","data":{"tx_ref":"escrow_1","status":"successful","amount":10}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(infrapayment.SignatureHeader, infrapayment.Sign("wrong", body))
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/finds", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
