package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EventChargeCompleted - единственное событие шлюза, которое меняет состояние.
const EventChargeCompleted = "charge.completed"

type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

type EscrowFunder interface {
	FundEscrow(ctx context.Context, input contract.FundEscrowInput) (*entity.Contract, bool, error)
}

type TokenGranter interface {
	Grant(ctx context.Context, m token.Movement) (int64, error)
}

type Settings interface {
	AutoVerifyPayments(ctx context.Context) (bool, error)
	TokenPrice(ctx context.Context) (valueobject.Money, error)
}

// Processor обрабатывает вебхуки шлюза, проверку оплаты по редиректу и покупку токенов.
type Processor struct {
	gateway   repository.PaymentGateway
	verifier  SignatureVerifier
	escrow    EscrowFunder
	tokens    TokenGranter
	settings  Settings
	contracts repository.ContractRepository
	users     repository.UserRepository
	redirect  string
}

func NewProcessor(gateway repository.PaymentGateway, verifier SignatureVerifier, escrow EscrowFunder, tokens TokenGranter, settings Settings, contracts repository.ContractRepository, users repository.UserRepository, redirectURL string) *Processor {
	return &Processor{
		gateway:   gateway,
		verifier:  verifier,
		escrow:    escrow,
		tokens:    tokens,
		settings:  settings,
		contracts: contracts,
		users:     users,
		redirect:  redirectURL,
	}
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		TxRef    string          `json:"tx_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Meta     map[string]any  `json:"meta"`
	} `json:"data"`
}

// WebhookResult - что сделал обработчик; повторная доставка даёт Duplicate=true.
type WebhookResult struct {
	Kind      string `json:"kind,omitempty"`
	Reference string `json:"reference,omitempty"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	Ignored   string `json:"ignored,omitempty"`
}

// HandleWebhook проверяет подпись и применяет событие оплаты.
// Без auto_verify_payments данные платежа перезапрашиваются у шлюза.
func (p *Processor) HandleWebhook(ctx context.Context, raw []byte, signature string) (*WebhookResult, error) {
	if err := p.verifier.Verify(raw, signature); err != nil {
		return nil, err
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело вебхука")
	}
	log := logger.WithComponent("payment-webhook").WithFields(logrus.Fields{"event": payload.Event, "reference": payload.Data.TxRef})

	if payload.Event != EventChargeCompleted {
		log.Debug("событие не обрабатывается")
		return &WebhookResult{Reference: payload.Data.TxRef, Ignored: "unsupported event"}, nil
	}
	if payload.Data.TxRef == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "в событии нет tx_ref")
	}

	amount, err := valueobject.MoneyFromDecimal(payload.Data.Amount)
	if err != nil {
		return nil, err
	}
	verification := &repository.PaymentVerification{
		Reference: payload.Data.TxRef,
		Status:    payload.Data.Status,
		Amount:    amount,
		Currency:  payload.Data.Currency,
		Metadata:  flatten(payload.Data.Meta),
	}

	trusted, err := p.settings.AutoVerifyPayments(ctx)
	if err != nil {
		return nil, err
	}
	if !trusted {
		if verification, err = p.gateway.Verify(ctx, payload.Data.TxRef); err != nil {
			return nil, err
		}
	}

	if !verification.Successful() {
		log.WithField("status", verification.Status).Info("платёж не успешен, событие пропущено")
		return &WebhookResult{Reference: verification.Reference, Ignored: "payment not successful"}, nil
	}
	return p.apply(ctx, verification)
}

func (p *Processor) apply(ctx context.Context, v *repository.PaymentVerification) (*WebhookResult, error) {
	kind := v.Metadata["kind"]
	result := &WebhookResult{Kind: kind, Reference: v.Reference}

	switch kind {
	case contract.PaymentKindEscrow:
		contractID, err := uuid.Parse(v.Metadata["contractId"])
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "в метаданных платежа нет contractId")
		}
		_, already, err := p.escrow.FundEscrow(ctx, contract.FundEscrowInput{
			ContractID: contractID,
			Reference:  v.Reference,
			Amount:     v.Amount,
		})
		if err != nil {
			return nil, err
		}
		result.Applied, result.Duplicate = !already, already
		return result, nil

	case contract.PaymentKindTokenPurchase:
		already, err := p.creditTokens(ctx, v)
		if err != nil {
			return nil, err
		}
		result.Applied, result.Duplicate = !already, already
		return result, nil
	}

	logger.WithComponent("payment-webhook").WithField("kind", kind).Warn("неизвестный тип платежа")
	result.Ignored = "unknown payment kind"
	return result, nil
}

func (p *Processor) creditTokens(ctx context.Context, v *repository.PaymentVerification) (bool, error) {
	userID, err := uuid.Parse(v.Metadata["userId"])
	if err != nil {
		return false, apperror.New(apperror.ErrCodeValidation, "в метаданных платежа нет userId")
	}
	tokens, err := strconv.ParseInt(v.Metadata["tokens"], 10, 64)
	if err != nil || tokens <= 0 || tokens > MaxTokensPerPurchase {
		return false, apperror.New(apperror.ErrCodeValidation, "в метаданных платежа нет количества токенов")
	}
	expected, err := valueobject.ParseMoney(v.Metadata["amount"])
	if err != nil || !expected.IsPositive() {
		return false, apperror.New(apperror.ErrCodeValidation, "в метаданных платежа нет суммы")
	}
	if v.Amount < expected {
		return false, apperror.ErrInsufficientFunds.WithDetails(map[string]any{
			"required": expected.String(),
			"paid":     v.Amount.String(),
		})
	}

	holder := token.Holder(v.Metadata["holder"])
	if holder != token.HolderFinder {
		holder = token.HolderClient
	}

	_, err = p.tokens.Grant(ctx, token.Movement{
		Holder:      holder,
		UserID:      userID,
		Amount:      tokens,
		Description: fmt.Sprintf("Покупка %d токенов", tokens),
		Reference:   v.Reference,
		Type:        valueobject.TxTokenPurchase,
	})
	if errors.Is(err, apperror.ErrDuplicateReference) {
		return true, nil
	}
	return false, err
}

// VerifyContractPayment - проверка оплаты после редиректа со страницы шлюза.
func (p *Processor) VerifyContractPayment(ctx context.Context, userID, contractID uuid.UUID) (*entity.Contract, error) {
	c, err := p.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}
	if c.EscrowStatus != valueobject.EscrowStatusPending {
		return c, nil
	}
	if c.PaymentReference == nil {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "оплата по контракту не начиналась")
	}

	v, err := p.gateway.Verify(ctx, *c.PaymentReference)
	if err != nil {
		return nil, err
	}
	if !v.Successful() {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "платёж ещё не завершён").
			WithDetails(map[string]any{"status": v.Status})
	}
	funded, _, err := p.escrow.FundEscrow(ctx, contract.FundEscrowInput{
		ContractID: c.ID,
		Reference:  v.Reference,
		Amount:     v.Amount,
	})
	return funded, err
}

// MaxTokensPerPurchase ограничивает одну покупку.
const MaxTokensPerPurchase = 100_000

// TokenPurchase - ссылка на оплату токенов.
type TokenPurchase struct {
	Reference  string            `json:"reference"`
	PaymentURL string            `json:"paymentUrl"`
	Tokens     int64             `json:"tokens"`
	Amount     valueobject.Money `json:"-"`
}

// PurchaseTokens создаёт платёж на покупку токенов; токены начисляются по вебхуку.
func (p *Processor) PurchaseTokens(ctx context.Context, userID uuid.UUID, holder token.Holder, tokens int64) (*TokenPurchase, error) {
	if tokens <= 0 || tokens > MaxTokensPerPurchase {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("количество токенов должно быть от 1 до %d", MaxTokensPerPurchase))
	}
	if holder != token.HolderClient && holder != token.HolderFinder {
		return nil, apperror.New(apperror.ErrCodeForbidden, "покупать токены могут клиенты и исполнители")
	}
	price, err := p.settings.TokenPrice(ctx)
	if err != nil {
		return nil, err
	}
	user, err := p.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount, err := price.Mul(tokens)
	if err != nil {
		return nil, err
	}
	reference := "tokens_" + uuid.NewString()
	session, err := p.gateway.Initialize(ctx, repository.PaymentInitRequest{
		Amount:        amount,
		Reference:     reference,
		CustomerEmail: user.Email,
		RedirectURL:   p.redirect,
		Metadata: map[string]string{
			"kind":   contract.PaymentKindTokenPurchase,
			"userId": userID.String(),
			"holder": string(holder),
			"tokens": strconv.FormatInt(tokens, 10),
			"amount": amount.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("payment").WithFields(logrus.Fields{
		"user_id": userID, "tokens": tokens, "amount": amount.String(), "reference": reference,
	}).Info("создан платёж на покупку токенов")
	return &TokenPurchase{Reference: reference, PaymentURL: session.PaymentURL, Tokens: tokens, Amount: amount}, nil
}

func flatten(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
