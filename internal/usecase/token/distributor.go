package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type MonthlyDefaultSource interface {
	MonthlyTokenDefault(ctx context.Context) (int64, error)
}

// DistributionReport - итог ежемесячного начисления.
type DistributionReport struct {
	Month       int   `json:"month"`
	Year        int   `json:"year"`
	Granted     int   `json:"granted"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	TotalTokens int64 `json:"totalTokens"`
}

// MonthlyDistributor начисляет токены активным исполнителям раз в месяц.
// Размер начисления берётся из уровня исполнителя (finder_levels.monthly_tokens),
// без уровня - из настройки monthly_token_default.
type MonthlyDistributor struct {
	tx       repository.TxManager
	finders  repository.FinderRepository
	levels   repository.LevelRepository
	ledger   repository.LedgerRepository
	defaults MonthlyDefaultSource
}

func NewMonthlyDistributor(tx repository.TxManager, finders repository.FinderRepository, levels repository.LevelRepository, ledger repository.LedgerRepository, defaults MonthlyDefaultSource) *MonthlyDistributor {
	return &MonthlyDistributor{tx: tx, finders: finders, levels: levels, ledger: ledger, defaults: defaults}
}

// Run начисляет токены за месяц now. Повторный запуск за тот же месяц ничего не меняет.
func (d *MonthlyDistributor) Run(ctx context.Context, now time.Time) (DistributionReport, error) {
	now = now.UTC()
	report := DistributionReport{Month: int(now.Month()), Year: now.Year()}
	log := logger.WithComponent("token-distribution").WithFields(logrus.Fields{"month": report.Month, "year": report.Year})

	finders, err := d.finders.ListActive(ctx)
	if err != nil {
		return report, err
	}
	fallback, err := d.defaults.MonthlyTokenDefault(ctx)
	if err != nil {
		return report, err
	}
	levels, err := d.levels.List(ctx)
	if err != nil {
		return report, err
	}
	byID := make(map[uuid.UUID]*entity.FinderLevel, len(levels))
	for _, l := range levels {
		byID[l.ID] = l
	}

	for _, f := range finders {
		done, err := d.ledger.HasDistribution(ctx, f.UserID, report.Month, report.Year)
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("finder_id", f.UserID).Error("не удалось проверить начисление")
			continue
		}
		if done {
			report.Skipped++
			continue
		}

		amount := fallback
		var levelID *uuid.UUID
		if f.CurrentLevelID != nil {
			if lvl, ok := byID[*f.CurrentLevelID]; ok {
				amount = lvl.MonthlyTokens
				levelID = &lvl.ID
			}
		}

		if err := d.grant(ctx, f.UserID, levelID, amount, report.Month, report.Year); err != nil {
			if errors.Is(err, apperror.ErrDuplicateReference) {
				report.Skipped++
				continue
			}
			report.Failed++
			log.WithError(err).WithField("finder_id", f.UserID).Error("не удалось начислить ежемесячные токены")
			continue
		}
		report.Granted++
		report.TotalTokens += amount
	}

	log.WithFields(logrus.Fields{
		"granted": report.Granted, "skipped": report.Skipped, "failed": report.Failed, "tokens": report.TotalTokens,
	}).Info("ежемесячное начисление токенов завершено")
	return report, nil
}

func (d *MonthlyDistributor) grant(ctx context.Context, finderID uuid.UUID, levelID *uuid.UUID, amount int64, month, year int) error {
	return d.tx.WithinTx(ctx, func(ctx context.Context) error {
		dist := &entity.TokenDistribution{
			ID:        uuid.New(),
			FinderID:  finderID,
			LevelID:   levelID,
			Amount:    amount,
			Month:     month,
			Year:      year,
			CreatedAt: time.Now().UTC(),
		}
		if err := d.ledger.InsertDistribution(ctx, dist); err != nil {
			return err
		}
		if amount == 0 {
			return nil
		}
		if _, err := d.finders.AdjustTokenBalance(ctx, finderID, amount); err != nil {
			return err
		}
		description := fmt.Sprintf("Ежемесячное начисление токенов за %02d.%d", month, year)
		record := entity.NewTransaction(finderID, valueobject.TxMonthlyDistribution, valueobject.AssetFindertoken, amount, description).
			WithReference(fmt.Sprintf("monthly:%s:%04d-%02d", finderID, year, month))
		return d.ledger.InsertTransaction(ctx, record)
	})
}
