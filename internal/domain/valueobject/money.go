package valueobject

import (
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Money хранит сумму в минорных единицах (копейки, kobo).
// Текстовое представление с двумя знаками появляется только на границе системы.
type Money int64

const (
	minorUnitsPerMajor = 100
	maxMinor           = 1_000_000_000_000_000
)

var hundred = decimal.NewFromInt(minorUnitsPerMajor)

// ParseMoney разбирает строку вида "10000.00" в минорные единицы.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal переводит десятичное значение в минорные единицы.
// Больше двух знаков после запятой не допускается.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма должна содержать не более двух знаков после запятой")
	}
	if minor.GreaterThan(decimal.NewFromInt(maxMinor)) {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма слишком велика")
	}
	return Money(minor.IntPart()), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String возвращает сумму с двумя знаками после запятой.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Minor() int64 {
	return int64(m)
}

func (m Money) IsPositive() bool {
	return m > 0
}

// Mul умножает сумму на целое количество (например, цену токена на их число).
// Результат вне диапазона Money считается ошибкой валидации.
func (m Money) Mul(n int64) (Money, error) {
	if n < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "множитель не может быть отрицательным")
	}
	return MoneyFromDecimal(m.Decimal().Mul(decimal.NewFromInt(n)))
}

// Percent хранит процент в базисных пунктах: 5% = 500.
type Percent int64

const basisPointsPerWhole = 10000

// ParsePercent разбирает строку вида "5" или "2.5" в базисные пункты.
func ParsePercent(s string) (Percent, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperror.New(apperror.ErrCodeValidation, "некорректный процент")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return 0, apperror.New(apperror.ErrCodeValidation, "процент должен быть в диапазоне 0..100")
	}
	bps := d.Mul(hundred)
	if !bps.Equal(bps.Truncate(0)) {
		return 0, apperror.New(apperror.ErrCodeValidation, "процент должен содержать не более двух знаков после запятой")
	}
	return Percent(bps.IntPart()), nil
}

func (p Percent) BasisPoints() int64 {
	return int64(p)
}

func (p Percent) String() string {
	return decimal.New(int64(p), -2).String()
}

// SplitFee делит сумму на комиссию платформы и выплату исполнителю.
// Комиссия округляется half-up, net + fee всегда равно gross.
func SplitFee(gross Money, fee Percent) (feeAmount, net Money) {
	if gross <= 0 || fee <= 0 {
		return 0, gross
	}
	f := decimal.NewFromInt(int64(gross)).
		Mul(decimal.NewFromInt(int64(fee))).
		Div(decimal.NewFromInt(basisPointsPerWhole)).
		Round(0)
	feeAmount = Money(f.IntPart())
	if feeAmount > gross {
		feeAmount = gross
	}
	return feeAmount, gross - feeAmount
}
