package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type FeeSource interface {
	PlatformFee(ctx context.Context) (valueobject.Percent, error)
}

type LevelRecomputer interface {
	Recompute(ctx context.Context, finderID uuid.UUID) (*entity.FinderLevel, error)
}

// Settlement - итог выплаты по контракту.
type Settlement struct {
	ContractID      uuid.UUID
	FinderID        uuid.UUID
	Gross           valueobject.Money
	Fee             valueobject.Money
	Net             valueobject.Money
	FeePercent      valueobject.Percent
	AlreadyReleased bool
}

// ReleaseReference - идемпотентный ключ выплаты по контракту.
func ReleaseReference(contractID uuid.UUID) string {
	return "release:" + contractID.String()
}

// Settler выплачивает средства эскроу исполнителю. Ручное принятие работы,
// авто-принятие и ручная выплата администратором считают комиссию одинаково.
type Settler struct {
	tx        repository.TxManager
	contracts repository.ContractRepository
	finds     repository.FindRepository
	finders   repository.FinderRepository
	ledger    repository.LedgerRepository
	fees      FeeSource
	levels    LevelRecomputer
	notifier  notify.Sender
}

func NewSettler(tx repository.TxManager, contracts repository.ContractRepository, finds repository.FindRepository, finders repository.FinderRepository, ledger repository.LedgerRepository, fees FeeSource, levels LevelRecomputer, notifier notify.Sender) *Settler {
	return &Settler{
		tx:        tx,
		contracts: contracts,
		finds:     finds,
		finders:   finders,
		ledger:    ledger,
		fees:      fees,
		levels:    levels,
		notifier:  notifier,
	}
}

// Release выплачивает оплаченный контракт. Повторный вызов по выплаченному контракту ничего не меняет.
func (s *Settler) Release(ctx context.Context, contractID uuid.UUID) (*Settlement, error) {
	var result *Settlement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.contracts.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if c.EscrowStatus == valueobject.EscrowStatusReleased {
			result = &Settlement{ContractID: c.ID, FinderID: c.FinderID, Gross: c.Amount, AlreadyReleased: true}
			return nil
		}
		if !c.IsFunded() {
			return apperror.New(apperror.ErrCodeBadRequest, "выплатить можно только оплаченный контракт")
		}
		result, err = s.settleLocked(ctx, c, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, result)
	return result, nil
}

// settleLocked выполняется внутри транзакции с заблокированной строкой контракта.
func (s *Settler) settleLocked(ctx context.Context, c *entity.Contract, now time.Time) (*Settlement, error) {
	pct, err := s.fees.PlatformFee(ctx)
	if err != nil {
		return nil, err
	}
	fee, net := valueobject.SplitFee(c.Amount, pct)
	result := &Settlement{ContractID: c.ID, FinderID: c.FinderID, Gross: c.Amount, Fee: fee, Net: net, FeePercent: pct}

	// строка контракта заблокирована: между проверкой и вставкой выплату никто не проведёт
	released, err := s.ledger.ExistsByReference(ctx, valueobject.TxEarningsRelease, ReleaseReference(c.ID))
	if err != nil {
		return nil, err
	}
	if released {
		result.AlreadyReleased = true
		return result, nil
	}

	record := entity.NewTransaction(c.FinderID, valueobject.TxEarningsRelease, valueobject.AssetMoney, net.Minor(),
		fmt.Sprintf("Выплата по контракту %s (комиссия %s%%)", c.ID, pct.String())).
		WithReference(ReleaseReference(c.ID)).
		ForContract(c.ID)
	if err := s.ledger.InsertTransaction(ctx, record); err != nil {
		return nil, err
	}

	if err := s.finders.CreditEarnings(ctx, c.FinderID, net); err != nil {
		return nil, err
	}

	prev := c.EscrowStatus
	if err := c.Release(now); err != nil {
		return nil, err
	}
	if err := s.contracts.Update(ctx, c, prev); err != nil {
		return nil, err
	}

	f, err := s.finds.FindByID(ctx, c.FindID)
	if err != nil {
		return nil, err
	}
	f.Close(valueobject.FindStatusCompleted, now)
	if err := s.finds.Update(ctx, f); err != nil {
		return nil, err
	}

	if _, err := s.levels.Recompute(ctx, c.FinderID); err != nil {
		return nil, err
	}

	logger.WithComponent("settlement").WithFields(logrus.Fields{
		"contract_id": c.ID,
		"finder_id":   c.FinderID,
		"gross":       c.Amount.String(),
		"fee":         fee.String(),
		"net":         net.String(),
	}).Info("средства выплачены исполнителю")
	return result, nil
}

func (s *Settler) announce(ctx context.Context, st *Settlement) {
	if st == nil || st.AlreadyReleased {
		return
	}
	s.notifier.Send(ctx, notify.Event{
		UserID:  st.FinderID,
		Kind:    notify.KindFundsReleased,
		Title:   "Средства зачислены",
		Message: fmt.Sprintf("На ваш баланс зачислено %s (комиссия платформы %s)", st.Net.String(), st.Fee.String()),
		Data:    map[string]any{"contractId": st.ContractID, "net": st.Net.String(), "fee": st.Fee.String()},
		Email:   true,
	})
}
