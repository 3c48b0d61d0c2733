package token

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// Holder - чей баланс токенов затрагивает операция.
type Holder string

const (
	HolderClient Holder = "client"
	HolderFinder Holder = "finder"
)

// Movement описывает одно изменение баланса токенов.
type Movement struct {
	Holder      Holder
	UserID      uuid.UUID
	Amount      int64 // всегда положительное; знак задаёт операция
	Description string
	GrantedBy   *uuid.UUID
	// Reference делает операцию идемпотентной: повтор с тем же (Type, Reference) вернёт ErrDuplicateReference.
	Reference string
	Type      valueobject.TransactionType
}

// Ledger ведёт балансы токенов клиентов и исполнителей.
// Каждое изменение материализованного баланса пишется в журнал в той же транзакции.
type Ledger struct {
	tx      repository.TxManager
	clients repository.ClientRepository
	finders repository.FinderRepository
	ledger  repository.LedgerRepository
}

func NewLedger(tx repository.TxManager, clients repository.ClientRepository, finders repository.FinderRepository, ledger repository.LedgerRepository) *Ledger {
	return &Ledger{tx: tx, clients: clients, finders: finders, ledger: ledger}
}

// Balance возвращает текущий баланс токенов пользователя.
func (l *Ledger) Balance(ctx context.Context, holder Holder, userID uuid.UUID) (int64, error) {
	switch holder {
	case HolderClient:
		c, err := l.clients.FindByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return c.FindertokenBalance, nil
	case HolderFinder:
		f, err := l.finders.FindByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return f.FindertokenBalance, nil
	}
	return 0, apperror.New(apperror.ErrCodeValidation, "токены доступны только клиентам и исполнителям")
}

func (l *Ledger) ClientBalance(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return l.Balance(ctx, HolderClient, clientID)
}

func (l *Ledger) FinderBalance(ctx context.Context, finderID uuid.UUID) (int64, error) {
	return l.Balance(ctx, HolderFinder, finderID)
}

// Require проверяет, что на балансе не меньше required токенов.
// Иначе возвращает INSUFFICIENT_TOKENS с requiredTokens и currentBalance.
func (l *Ledger) Require(ctx context.Context, holder Holder, userID uuid.UUID, required int64) error {
	if required <= 0 {
		return nil
	}
	balance, err := l.Balance(ctx, holder, userID)
	if err != nil {
		return err
	}
	if balance < required {
		return apperror.InsufficientTokens(required, balance)
	}
	return nil
}

// Grant начисляет токены.
func (l *Ledger) Grant(ctx context.Context, m Movement) (int64, error) {
	if m.Amount <= 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "количество токенов должно быть положительным")
	}
	if m.Type == "" {
		m.Type = valueobject.TxTokenGrant
	}
	return l.apply(ctx, m, m.Amount)
}

// Deduct списывает токены; баланс никогда не уходит в минус.
func (l *Ledger) Deduct(ctx context.Context, m Movement) (int64, error) {
	if m.Amount <= 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "количество токенов должно быть положительным")
	}
	if m.Type == "" {
		m.Type = valueobject.TxTokenDeduction
	}
	return l.apply(ctx, m, -m.Amount)
}

func (l *Ledger) GrantClientTokens(ctx context.Context, clientID uuid.UUID, amount int64, reason string, grantedBy *uuid.UUID) (int64, error) {
	return l.Grant(ctx, Movement{Holder: HolderClient, UserID: clientID, Amount: amount, Description: reason, GrantedBy: grantedBy})
}

func (l *Ledger) DeductClientTokens(ctx context.Context, clientID uuid.UUID, amount int64, description string) (int64, error) {
	return l.Deduct(ctx, Movement{Holder: HolderClient, UserID: clientID, Amount: amount, Description: description})
}

func (l *Ledger) GrantFinderTokens(ctx context.Context, finderID uuid.UUID, amount int64, reason string, grantedBy *uuid.UUID) (int64, error) {
	return l.Grant(ctx, Movement{Holder: HolderFinder, UserID: finderID, Amount: amount, Description: reason, GrantedBy: grantedBy})
}

func (l *Ledger) DeductFinderTokens(ctx context.Context, finderID uuid.UUID, amount int64, description string) (int64, error) {
	return l.Deduct(ctx, Movement{Holder: HolderFinder, UserID: finderID, Amount: amount, Description: description})
}

func (l *Ledger) apply(ctx context.Context, m Movement, delta int64) (int64, error) {
	var balance int64
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if m.Reference != "" {
			exists, err := l.ledger.ExistsByReference(ctx, m.Type, m.Reference)
			if err != nil {
				return err
			}
			if exists {
				return apperror.ErrDuplicateReference
			}
		}

		var err error
		switch m.Holder {
		case HolderClient:
			balance, err = l.clients.AdjustTokenBalance(ctx, m.UserID, delta)
		case HolderFinder:
			balance, err = l.finders.AdjustTokenBalance(ctx, m.UserID, delta)
		default:
			return apperror.New(apperror.ErrCodeValidation, "токены доступны только клиентам и исполнителям")
		}
		if err != nil {
			if errors.Is(err, apperror.ErrInsufficientTokens) {
				current, _ := l.Balance(ctx, m.Holder, m.UserID)
				return apperror.InsufficientTokens(m.Amount, current)
			}
			return err
		}

		// Клиентский журнал начислений - источник истины для сверки баланса клиента.
		// Для исполнителя в token_grants попадают только начисления, списания видны в transactions.
		grant := entity.NewTokenGrant(m.UserID, delta, m.Description, m.GrantedBy)
		switch {
		case m.Holder == HolderClient:
			err = l.ledger.InsertClientGrant(ctx, grant)
		case delta > 0:
			err = l.ledger.InsertFinderGrant(ctx, grant)
		}
		if err != nil {
			return err
		}

		record := entity.NewTransaction(m.UserID, m.Type, valueobject.AssetFindertoken, delta, m.Description)
		if m.Reference != "" {
			record.WithReference(m.Reference)
		}
		return l.ledger.InsertTransaction(ctx, record)
	})
	if err != nil {
		return 0, err
	}

	logger.WithComponent("token").WithFields(logrus.Fields{
		"holder":  m.Holder,
		"user_id": m.UserID,
		"delta":   delta,
		"type":    m.Type,
		"balance": balance,
	}).Info("баланс токенов изменён")
	return balance, nil
}

func (l *Ledger) ListClientGrants(ctx context.Context, clientID uuid.UUID) ([]*entity.TokenGrant, error) {
	return l.ledger.ListClientGrants(ctx, clientID)
}

func (l *Ledger) ListFinderGrants(ctx context.Context, finderID uuid.UUID) ([]*entity.TokenGrant, error) {
	return l.ledger.ListFinderGrants(ctx, finderID)
}

const maxPageSize = 100

func (l *Ledger) ListTransactions(ctx context.Context, userID uuid.UUID, asset valueobject.Asset, limit, offset int) ([]*entity.Transaction, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if asset == "" {
		asset = valueobject.AssetFindertoken
	}
	return l.ledger.ListTransactions(ctx, userID, asset, limit, offset)
}

// SyncReport - результат сверки балансов с журналом.
type SyncReport struct {
	FindersChecked int `json:"findersChecked"`
	FindersFixed   int `json:"findersFixed"`
	ClientsChecked int `json:"clientsChecked"`
	ClientsFixed   int `json:"clientsFixed"`
}

// SyncTokenBalances пересчитывает материализованные балансы по журналу:
// для исполнителей - сумма токенов в transactions, для клиентов - сумма client_token_grants.
func (l *Ledger) SyncTokenBalances(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	log := logger.WithComponent("token")

	finders, err := l.finders.ListActive(ctx)
	if err != nil {
		return report, err
	}
	for _, f := range finders {
		report.FindersChecked++
		sum, err := l.ledger.SumTokens(ctx, f.UserID)
		if err != nil {
			return report, err
		}
		if sum == f.FindertokenBalance {
			continue
		}
		if sum < 0 {
			sum = 0
		}
		if err := l.finders.SetTokenBalance(ctx, f.UserID, sum); err != nil {
			return report, err
		}
		report.FindersFixed++
		log.WithFields(logrus.Fields{"finder_id": f.UserID, "was": f.FindertokenBalance, "now": sum}).Warn("баланс исполнителя расходился с журналом")
	}

	clients, err := l.clients.List(ctx)
	if err != nil {
		return report, err
	}
	for _, c := range clients {
		report.ClientsChecked++
		sum, err := l.ledger.SumClientGrants(ctx, c.UserID)
		if err != nil {
			return report, err
		}
		if sum == c.FindertokenBalance {
			continue
		}
		if sum < 0 {
			sum = 0
		}
		if err := l.clients.SetTokenBalance(ctx, c.UserID, sum); err != nil {
			return report, err
		}
		report.ClientsFixed++
		log.WithFields(logrus.Fields{"client_id": c.UserID, "was": c.FindertokenBalance, "now": sum}).Warn("баланс клиента расходился с журналом")
	}

	return report, nil
}
