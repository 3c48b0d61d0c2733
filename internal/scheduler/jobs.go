package scheduler

import (
	"context"
	"time"

	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
)

const (
	JobSettlement        = "settlement"
	JobMonthlyTokenGrant = "monthly-token-grant"
	JobStrikeExpiry      = "strike-expiry"
)

type SettlementRunner interface {
	Run(ctx context.Context, now time.Time) (contract.SweepReport, error)
}

type DistributionRunner interface {
	Run(ctx context.Context, now time.Time) (token.DistributionReport, error)
}

type StrikeExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// SettlementJob - авто-принятие просроченных сдач и выплата завершённых контрактов.
func SettlementJob(sweep SettlementRunner, interval time.Duration) Job {
	return Job{
		Name:       JobSettlement,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := sweep.Run(ctx, now)
			return err
		},
	}
}

// MonthlyTokenJob проверяет каждый час, но начисляет только первого числа.
// Повторные запуски в этот день ничего не начисляют: начисление идемпотентно по месяцу.
func MonthlyTokenJob(distributor DistributionRunner, interval time.Duration) Job {
	return Job{
		Name:       JobMonthlyTokenGrant,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context, now time.Time) error {
			if now.UTC().Day() != 1 {
				return nil
			}
			_, err := distributor.Run(ctx, now)
			return err
		},
	}
}

func StrikeExpiryJob(strikes StrikeExpirer, interval time.Duration) Job {
	return Job{
		Name:     JobStrikeExpiry,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := strikes.ExpireDue(ctx, now)
			return err
		},
	}
}
