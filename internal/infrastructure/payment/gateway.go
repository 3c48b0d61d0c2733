// Package payment - HTTP-клиент платёжного шлюза и проверка подписи вебхуков.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignatzorin/finders-backend/internal/config"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	maxAttempts  = 3
	initialDelay = 300 * time.Millisecond
	maxBodySize  = 1 << 20
)

// Gateway - клиент шлюза в формате API Flutterwave v3.
type Gateway struct {
	baseURL   string
	secretKey string
	currency  string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewGateway(cfg config.PaymentConfig) *Gateway {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	return &Gateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		currency:  cfg.Currency,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

type initRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    map[string]string `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type chargeData struct {
	TxRef    string          `json:"tx_ref"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Meta     map[string]any  `json:"meta"`
}

// Initialize создаёт платёж и возвращает ссылку на страницу оплаты.
func (g *Gateway) Initialize(ctx context.Context, req repository.PaymentInitRequest) (*repository.PaymentSession, error) {
	if g.secretKey == "" {
		return nil, apperror.Wrap(errors.New("PAYMENT_SECRET_KEY не задан"), apperror.ErrCodeExternalService, "платёжный шлюз не настроен")
	}
	body, err := json.Marshal(initRequest{
		TxRef:       req.Reference,
		Amount:      req.Amount.String(),
		Currency:    g.currency,
		RedirectURL: req.RedirectURL,
		Customer:    map[string]string{"email": req.CustomerEmail},
		Meta:        req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("payment: marshal init request: %w", err)
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments", body, &data); err != nil {
		return nil, err
	}
	if data.Link == "" {
		return nil, apperror.Wrap(errors.New("пустая ссылка на оплату"), apperror.ErrCodeExternalService, "платёжный шлюз вернул некорректный ответ")
	}
	return &repository.PaymentSession{Reference: req.Reference, PaymentURL: data.Link}, nil
}

// Verify запрашивает у шлюза фактическое состояние платежа.
func (g *Gateway) Verify(ctx context.Context, reference string) (*repository.PaymentVerification, error) {
	if g.secretKey == "" {
		return nil, apperror.Wrap(errors.New("PAYMENT_SECRET_KEY не задан"), apperror.ErrCodeExternalService, "платёжный шлюз не настроен")
	}
	var data chargeData
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	if err := g.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	amount, err := valueobject.MoneyFromDecimal(data.Amount)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeExternalService, "платёжный шлюз вернул некорректную сумму")
	}
	meta := make(map[string]string, len(data.Meta))
	for k, v := range data.Meta {
		if v != nil {
			meta[k] = fmt.Sprint(v)
		}
	}
	return &repository.PaymentVerification{
		Reference: data.TxRef,
		Status:    data.Status,
		Amount:    amount,
		Currency:  data.Currency,
		Metadata:  meta,
	}, nil
}

// do выполняет запрос с ограничением частоты и повторами на сетевых ошибках и 5xx.
func (g *Gateway) do(ctx context.Context, method, path string, body []byte, out any) error {
	log := logger.WithComponent("payment-gateway").WithFields(logrus.Fields{"method": method, "path": path})

	var lastErr error
	delay := initialDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeExternalService, "запрос к платёжному шлюзу отменён")
		}

		retry, err := g.once(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == maxAttempts {
			break
		}

		log.WithError(err).WithField("attempt", attempt).Warn("ошибка платёжного шлюза, повтор")
		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return apperror.Wrap(ctx.Err(), apperror.ErrCodeExternalService, "запрос к платёжному шлюзу отменён")
		}
	}

	log.WithError(lastErr).Error("платёжный шлюз недоступен")
	var appErr *apperror.AppError
	if errors.As(lastErr, &appErr) {
		return appErr
	}
	return apperror.Wrap(lastErr, apperror.ErrCodeExternalService, apperror.ErrPaymentGateway.Message)
}

func (g *Gateway) once(ctx context.Context, method, path string, body []byte, out any) (retry bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return true, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return true, fmt.Errorf("payment gateway: status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("payment gateway: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return false, apperror.Wrap(fmt.Errorf("status %d: %s", resp.StatusCode, msg),
			apperror.ErrCodeExternalService, "платёжный шлюз отклонил запрос: "+msg)
	}
	if out == nil || len(env.Data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("payment gateway: decode data: %w", err)
	}
	return false, nil
}
