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

// Config - окна ожидания и адрес возврата после оплаты.
type Config struct {
	SubmissionAutoReleaseWindow time.Duration
	PaymentRedirectURL          string
}

// Service - жизненный цикл контракта: найм, оплата эскроу, сдача и проверка работы,
// административные действия.
type Service struct {
	repos    repository.Registry
	settler  *Settler
	gateway  repository.PaymentGateway
	notifier notify.Sender
	cfg      Config
	now      func() time.Time
}

func NewService(repos repository.Registry, settler *Settler, gateway repository.PaymentGateway, notifier notify.Sender, cfg Config) *Service {
	return &Service{
		repos:    repos,
		settler:  settler,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AcceptProposal нанимает исполнителя: предложение принимается, заявка уходит в работу,
// создаётся контракт в статусе pending. Второе принятие по той же заявке отклоняется.
func (s *Service) AcceptProposal(ctx context.Context, clientID, proposalID uuid.UUID) (*entity.Contract, error) {
	var (
		c *entity.Contract
		f *entity.Find
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repos.Proposals.FindByID(ctx, proposalID)
		if err != nil {
			return err
		}
		f, err = s.repos.Finds.FindByIDForUpdate(ctx, p.FindID)
		if err != nil {
			return err
		}
		if !f.IsOwnedBy(clientID) {
			return apperror.New(apperror.ErrCodeForbidden, "принять предложение может только автор заявки")
		}
		accepted, err := s.repos.Proposals.HasAccepted(ctx, f.ID)
		if err != nil {
			return err
		}
		if accepted {
			return apperror.ErrAlreadyAccepted
		}

		now := s.now()
		if err := p.Accept(now); err != nil {
			return err
		}
		if err := f.Start(now); err != nil {
			return err
		}
		if err := s.repos.Proposals.Update(ctx, p); err != nil {
			return err
		}
		if err := s.repos.Finds.Update(ctx, f); err != nil {
			return err
		}
		c = entity.NewContract(f, p, now)
		return s.repos.Contracts.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "find_id": c.FindID, "finder_id": c.FinderID, "amount": c.Amount.String(),
	}).Info("предложение принято, контракт создан")

	s.notifier.Send(ctx, notify.Event{
		UserID:  c.FinderID,
		Kind:    notify.KindHired,
		Title:   "Вас наняли",
		Message: fmt.Sprintf("Ваше предложение по заявке «%s» принято. Работу можно начинать после оплаты эскроу.", f.Title),
		Data:    map[string]any{"contractId": c.ID, "findId": c.FindID},
		Email:   true,
	})
	return c, nil
}

// GetContract доступен участникам контракта и администратору.
func (s *Service) GetContract(ctx context.Context, contractID, userID uuid.UUID, isAdmin bool) (*entity.Contract, error) {
	c, err := s.repos.Contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !c.IsParticipant(userID) {
		return nil, apperror.ErrNotParticipant
	}
	return c, nil
}

func (s *Service) ListMyContracts(ctx context.Context, userID uuid.UUID) ([]*entity.Contract, error) {
	return s.repos.Contracts.ListByParticipant(ctx, userID)
}

// FundingSession - ссылка на оплату эскроу.
type FundingSession struct {
	ContractID uuid.UUID
	Reference  string
	PaymentURL string
	Amount     valueobject.Money
}

// InitiateFunding создаёт платёж в шлюзе и запоминает его референс в контракте.
func (s *Service) InitiateFunding(ctx context.Context, clientID, contractID uuid.UUID) (*FundingSession, error) {
	c, err := s.repos.Contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.ClientID != clientID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "оплатить контракт может только клиент")
	}
	if c.EscrowStatus != valueobject.EscrowStatusPending {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "контракт уже оплачен")
	}
	user, err := s.repos.Users.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	reference := "escrow_" + uuid.NewString()
	session, err := s.gateway.Initialize(ctx, repository.PaymentInitRequest{
		Amount:        c.Amount,
		Reference:     reference,
		CustomerEmail: user.Email,
		RedirectURL:   s.cfg.PaymentRedirectURL,
		Metadata: map[string]string{
			"kind":       PaymentKindEscrow,
			"contractId": c.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repos.Contracts.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if err := locked.AttachPayment(reference, s.now()); err != nil {
			return err
		}
		return s.repos.Contracts.Update(ctx, locked, valueobject.EscrowStatusPending)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "reference": reference,
	}).Info("создан платёж для эскроу")
	return &FundingSession{ContractID: c.ID, Reference: reference, PaymentURL: session.PaymentURL, Amount: c.Amount}, nil
}

// Платёжные сценарии, различаемые по metadata.kind.
const (
	PaymentKindEscrow        = "escrow"
	PaymentKindTokenPurchase = "token_purchase"
)

// FundEscrowInput - подтверждённый платёж по контракту.
type FundEscrowInput struct {
	ContractID uuid.UUID
	Reference  string
	Amount     valueobject.Money
}

// FundEscrow отмечает контракт оплаченным. Идемпотентна по референсу платежа:
// повторная доставка вебхука возвращает контракт без изменений и already=true.
func (s *Service) FundEscrow(ctx context.Context, input FundEscrowInput) (c *entity.Contract, already bool, err error) {
	if input.Reference == "" {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "не указан референс платежа")
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err = s.repos.Contracts.FindByIDForUpdate(ctx, input.ContractID)
		if err != nil {
			return err
		}
		seen, err := s.repos.Ledger.ExistsByReference(ctx, valueobject.TxEscrowDeposit, input.Reference)
		if err != nil {
			return err
		}
		if seen {
			already = true
			return nil
		}
		if c.EscrowStatus != valueobject.EscrowStatusPending {
			return apperror.New(apperror.ErrCodeConflict, "контракт уже оплачен другим платежом")
		}
		if input.Amount < c.Amount {
			return apperror.ErrInsufficientFunds.WithDetails(map[string]any{
				"required": c.Amount.String(),
				"paid":     input.Amount.String(),
			})
		}

		if err := c.Fund(input.Reference, s.now()); err != nil {
			return err
		}
		if err := s.repos.Contracts.Update(ctx, c, valueobject.EscrowStatusPending); err != nil {
			return err
		}
		record := entity.NewTransaction(c.ClientID, valueobject.TxEscrowDeposit, valueobject.AssetMoney, c.Amount.Minor(),
			fmt.Sprintf("Оплата эскроу по контракту %s", c.ID)).
			WithReference(input.Reference).
			ForContract(c.ID)
		return s.repos.Ledger.InsertTransaction(ctx, record)
	})
	if err != nil {
		return nil, false, err
	}
	if already {
		logger.WithComponent("contract").WithField("reference", input.Reference).Info("повторное уведомление об оплате, пропущено")
		return c, true, nil
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "reference": input.Reference, "amount": c.Amount.String(),
	}).Info("эскроу оплачено")

	s.notifier.Send(ctx,
		notify.Event{
			UserID:  c.FinderID,
			Kind:    notify.KindEscrowFunded,
			Title:   "Эскроу оплачено",
			Message: "Клиент оплатил контракт, можно приступать к работе.",
			Data:    map[string]any{"contractId": c.ID},
			Email:   true,
		},
		notify.Event{
			UserID:  c.ClientID,
			Kind:    notify.KindEscrowFunded,
			Title:   "Оплата получена",
			Message: fmt.Sprintf("Сумма %s зарезервирована до завершения работы.", c.Amount.String()),
			Data:    map[string]any{"contractId": c.ID},
		},
	)
	return c, false, nil
}
