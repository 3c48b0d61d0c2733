package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/config"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

func newTestGateway(url, secret string) *Gateway {
	return NewGateway(config.PaymentConfig{
		BaseURL:   url + "/",
		SecretKey: secret,
		Currency:  "NGN",
		RPS:       100,
		Timeout:   2 * time.Second,
	})
}

func TestGateway_Initialize(t *testing.T) {
	var got initRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.test/pay/abc"}}`))
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL, "sk_test")
	session, err := gw.Initialize(context.Background(), repository.PaymentInitRequest{
		Amount:        valueobject.Money(1234550),
		Reference:     "escrow_1",
		CustomerEmail: "client@finders.test",
		Metadata:      map[string]string{"contractId": "c-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/pay/abc", session.PaymentURL)
	assert.Equal(t, "escrow_1", session.Reference)

	assert.Equal(t, "12345.50", got.Amount)
	assert.Equal(t, "NGN", got.Currency)
	assert.Equal(t, "client@finders.test", got.Customer["email"])
	assert.Equal(t, "c-1", got.Meta["contractId"])
}

func TestGateway_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
		assert.Equal(t, "tokens_x y", r.URL.Query().Get("tx_ref"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"tx_ref":"tokens_x y","status":"successful","amount":300.5,"currency":"NGN","meta":{"tokens":3,"userId":"u-1"}}}`))
	}))
	defer srv.Close()

	v, err := newTestGateway(srv.URL, "sk_test").Verify(context.Background(), "tokens_x y")
	require.NoError(t, err)
	assert.True(t, v.Successful())
	assert.Equal(t, valueobject.Money(30050), v.Amount)
	assert.Equal(t, "3", v.Metadata["tokens"])
	assert.Equal(t, "u-1", v.Metadata["userId"])
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.test/pay/1"}}`))
	}))
	defer srv.Close()

	session, err := newTestGateway(srv.URL, "sk_test").Initialize(context.Background(), repository.PaymentInitRequest{
		Amount: valueobject.Money(100), Reference: "escrow_2",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/pay/1", session.PaymentURL)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGateway_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Invalid amount"}`))
	}))
	defer srv.Close()

	_, err := newTestGateway(srv.URL, "sk_test").Initialize(context.Background(), repository.PaymentInitRequest{
		Amount: valueobject.Money(100), Reference: "escrow_3",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid amount")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_RequiresSecretKey(t *testing.T) {
	gw := newTestGateway("http://127.0.0.1:0", "")

	_, err := gw.Initialize(context.Background(), repository.PaymentInitRequest{Reference: "escrow_4"})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeExternalService, appErr.Code)

	_, err = gw.Verify(context.Background(), "escrow_4")
	assert.Error(t, err)
}

func TestWebhookVerifier(t *testing.T) {
	body := []byte(`{"event":"charge.completed"}`)
	v := NewWebhookVerifier("whsec")

	assert.NoError(t, v.Verify(body, Sign("whsec", body)))
	assert.NoError(t, v.Verify(body, "sha256="+Sign("whsec", body)))
	assert.ErrorIs(t, v.Verify(body, Sign("other", body)), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify([]byte(`{}`), Sign("whsec", body)), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, "not-hex"), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, ""), ErrInvalidSignature)

	assert.ErrorIs(t, NewWebhookVerifier("").Verify(body, Sign("", body)), ErrInvalidSignature)
}
