package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

const (
	KeyPlatformFeePercentage = "platform_fee_percentage"
	KeyHighBudgetThreshold   = "high_budget_threshold"
	KeyHighBudgetTokenCost   = "high_budget_token_cost"
	KeyProposalTokenCost     = "proposal_token_cost"
	KeyAutoVerifyPayments    = "auto_verify_payments"
	KeyMonthlyTokenDefault   = "monthly_token_default"
	KeyTokenPrice            = "token_price"
)

// Defaults - значения, действующие пока администратор их не переопределил.
var Defaults = map[string]string{
	KeyPlatformFeePercentage: "5",
	KeyHighBudgetThreshold:   "50000.00",
	KeyHighBudgetTokenCost:   "5",
	KeyProposalTokenCost:     "1",
	KeyAutoVerifyPayments:    "false",
	KeyMonthlyTokenDefault:   "20",
	KeyTokenPrice:            "100.00",
}

// Provider читает настройки из хранилища при каждом обращении, без кэша,
// чтобы изменения администратора сразу влияли на расчёты.
type Provider struct {
	repo repository.SettingsRepository
}

func NewProvider(repo repository.SettingsRepository) *Provider {
	return &Provider{repo: repo}
}

func (p *Provider) raw(ctx context.Context, key string) (string, error) {
	v, ok, err := p.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return Defaults[key], nil
	}
	return strings.TrimSpace(v), nil
}

func (p *Provider) PlatformFee(ctx context.Context) (valueobject.Percent, error) {
	v, err := p.raw(ctx, KeyPlatformFeePercentage)
	if err != nil {
		return 0, err
	}
	pct, err := valueobject.ParsePercent(v)
	if err != nil {
		logger.WithComponent("settings").WithField("value", v).Warn("некорректная комиссия, используется значение по умолчанию")
		return valueobject.ParsePercent(Defaults[KeyPlatformFeePercentage])
	}
	return pct, nil
}

func (p *Provider) HighBudgetThreshold(ctx context.Context) (valueobject.Money, error) {
	return p.money(ctx, KeyHighBudgetThreshold)
}

func (p *Provider) TokenPrice(ctx context.Context) (valueobject.Money, error) {
	return p.money(ctx, KeyTokenPrice)
}

func (p *Provider) HighBudgetTokenCost(ctx context.Context) (int64, error) {
	return p.count(ctx, KeyHighBudgetTokenCost)
}

func (p *Provider) ProposalTokenCost(ctx context.Context) (int64, error) {
	return p.count(ctx, KeyProposalTokenCost)
}

func (p *Provider) MonthlyTokenDefault(ctx context.Context) (int64, error) {
	return p.count(ctx, KeyMonthlyTokenDefault)
}

func (p *Provider) AutoVerifyPayments(ctx context.Context) (bool, error) {
	v, err := p.raw(ctx, KeyAutoVerifyPayments)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return b, nil
}

func (p *Provider) money(ctx context.Context, key string) (valueobject.Money, error) {
	v, err := p.raw(ctx, key)
	if err != nil {
		return 0, err
	}
	m, err := valueobject.ParseMoney(v)
	if err != nil {
		logger.WithComponent("settings").WithField("key", key).Warn("некорректная сумма в настройке, используется значение по умолчанию")
		return valueobject.ParseMoney(Defaults[key])
	}
	return m, nil
}

func (p *Provider) count(ctx context.Context, key string) (int64, error) {
	v, err := p.raw(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		logger.WithComponent("settings").WithField("key", key).Warn("некорректное число в настройке, используется значение по умолчанию")
		return strconv.ParseInt(Defaults[key], 10, 64)
	}
	return n, nil
}

// List возвращает все известные настройки с подставленными значениями по умолчанию.
func (p *Provider) List(ctx context.Context) (map[string]string, error) {
	stored, err := p.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(Defaults))
	for k, def := range Defaults {
		out[k] = def
		if v, ok := stored[k]; ok && strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out, nil
}

// Update проверяет значение по типу ключа и сохраняет его.
func (p *Provider) Update(ctx context.Context, key, value string, adminID uuid.UUID) error {
	if _, known := Defaults[key]; !known {
		return apperror.New(apperror.ErrCodeValidation, "неизвестная настройка: "+key)
	}
	value = strings.TrimSpace(value)

	var err error
	switch key {
	case KeyPlatformFeePercentage:
		_, err = valueobject.ParsePercent(value)
	case KeyHighBudgetThreshold, KeyTokenPrice:
		var m valueobject.Money
		if m, err = valueobject.ParseMoney(value); err == nil && !m.IsPositive() {
			err = apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
		}
	case KeyHighBudgetTokenCost, KeyProposalTokenCost, KeyMonthlyTokenDefault:
		var n int64
		if n, err = strconv.ParseInt(value, 10, 64); err != nil || n < 0 {
			err = apperror.New(apperror.ErrCodeValidation, "значение должно быть неотрицательным целым")
		}
	case KeyAutoVerifyPayments:
		if _, perr := strconv.ParseBool(value); perr != nil {
			err = apperror.New(apperror.ErrCodeValidation, "значение должно быть true или false")
		}
	}
	if err != nil {
		return err
	}

	if err := p.repo.Set(ctx, key, value, adminID); err != nil {
		return err
	}
	logger.WithComponent("settings").WithFields(logrus.Fields{
		"key": key, "value": value, "admin_id": adminID,
	}).Info("настройка обновлена")
	return nil
}
