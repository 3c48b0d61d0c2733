package contract

import (
	"context"
	"time"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/sirupsen/logrus"
)

// AutoAcceptFeedback - отзыв, который записывается при авто-принятии работы.
const AutoAcceptFeedback = "Работа принята автоматически: клиент не ответил в отведённый срок."

// SweepReport - итог одного прохода плановой выплаты.
type SweepReport struct {
	AutoAccepted int `json:"autoAccepted"`
	Released     int `json:"released"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

// SettlementSweep - единая плановая выплата:
// сдачи без ответа клиента после окна принимаются автоматически,
// завершённые контракты после периода удержания выплачиваются.
type SettlementSweep struct {
	tx              repository.TxManager
	contracts       repository.ContractRepository
	submissions     repository.SubmissionRepository
	settler         *Settler
	notifier        notify.Sender
	completedWindow time.Duration
	batchSize       int
}

func NewSettlementSweep(tx repository.TxManager, contracts repository.ContractRepository, submissions repository.SubmissionRepository, settler *Settler, notifier notify.Sender, completedWindow time.Duration, batchSize int) *SettlementSweep {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SettlementSweep{
		tx:              tx,
		contracts:       contracts,
		submissions:     submissions,
		settler:         settler,
		notifier:        notifier,
		completedWindow: completedWindow,
		batchSize:       batchSize,
	}
}

// Run обрабатывает обе очереди. Ошибка по одному контракту логируется и не прерывает проход.
func (w *SettlementSweep) Run(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport
	log := logger.WithComponent("settlement-sweep")

	// обе очереди обходятся постранично до конца
	for after := (repository.Cursor{}); ; {
		due, err := w.submissions.ListDueForAutoRelease(ctx, now, after, w.batchSize)
		if err != nil {
			return report, err
		}
		for _, sub := range due {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			after = repository.Cursor{At: sub.AutoReleaseAt, ID: sub.ContractID}
			st, err := w.autoAccept(ctx, sub, now)
			switch {
			case err != nil:
				report.Failed++
				log.WithFields(logrus.Fields{"contract_id": sub.ContractID, "error": err.Error()}).Error("не удалось авто-принять работу")
			case st == nil || st.AlreadyReleased:
				report.Skipped++
			default:
				report.AutoAccepted++
				w.settler.announce(ctx, st)
			}
		}
		if len(due) < w.batchSize {
			break
		}
	}

	before := now.Add(-w.completedWindow)
	for after := (repository.Cursor{}); ; {
		ready, err := w.contracts.ListCompletedAwaitingRelease(ctx, before, after, w.batchSize)
		if err != nil {
			return report, err
		}
		for _, c := range ready {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			after = repository.Cursor{At: *c.CompletedAt, ID: c.ID}
			st, err := w.releaseCompleted(ctx, c, now)
			switch {
			case err != nil:
				report.Failed++
				log.WithFields(logrus.Fields{"contract_id": c.ID, "error": err.Error()}).Error("не удалось выплатить завершённый контракт")
			case st == nil || st.AlreadyReleased:
				report.Skipped++
			default:
				report.Released++
				w.settler.announce(ctx, st)
			}
		}
		if len(ready) < w.batchSize {
			break
		}
	}

	if report != (SweepReport{}) {
		log.WithFields(logrus.Fields{
			"auto_accepted": report.AutoAccepted,
			"released":      report.Released,
			"skipped":       report.Skipped,
			"failed":        report.Failed,
		}).Info("проход плановой выплаты завершён")
	}
	return report, nil
}

// autoAccept перепроверяет условия под блокировкой: клиент мог успеть ответить.
func (w *SettlementSweep) autoAccept(ctx context.Context, due *entity.OrderSubmission, now time.Time) (*Settlement, error) {
	var result *Settlement
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := w.contracts.FindByIDForUpdate(ctx, due.ContractID)
		if err != nil {
			return err
		}
		if !c.IsFunded() {
			return nil
		}
		sub, err := w.submissions.FindByContractID(ctx, c.ID)
		if err != nil {
			return err
		}
		if !sub.IsDue(now) {
			return nil
		}
		if err := sub.Accept(AutoAcceptFeedback, now); err != nil {
			return err
		}
		if err := w.submissions.Upsert(ctx, sub); err != nil {
			return err
		}
		result, err = w.settler.settleLocked(ctx, c, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result != nil && !result.AlreadyReleased {
		w.notifier.Send(ctx, notify.Event{
			UserID:  due.FinderID,
			Kind:    notify.KindWorkAccepted,
			Title:   "Работа принята автоматически",
			Message: AutoAcceptFeedback,
			Data:    map[string]any{"contractId": due.ContractID},
		})
	}
	return result, nil
}

func (w *SettlementSweep) releaseCompleted(ctx context.Context, candidate *entity.Contract, now time.Time) (*Settlement, error) {
	var result *Settlement
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := w.contracts.FindByIDForUpdate(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if !c.ReadyForRelease(now, w.completedWindow) {
			return nil
		}
		result, err = w.settler.settleLocked(ctx, c, now)
		return err
	})
	return result, err
}
