package contract

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/sirupsen/logrus"
)

// RefundReference - идемпотентный ключ возврата эскроу клиенту.
func RefundReference(contractID uuid.UUID) string {
	return "refund:" + contractID.String()
}

// AdminCancel отменяет оплаченный незавершённый контракт и возвращает клиенту всю сумму.
func (s *Service) AdminCancel(ctx context.Context, contractID, adminID uuid.UUID, reason string) (*entity.Contract, error) {
	var c *entity.Contract
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repos.Contracts.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}

		now := s.now()
		prev := c.EscrowStatus
		if err := c.Cancel(now); err != nil {
			return err
		}
		if err := s.repos.Contracts.Update(ctx, c, prev); err != nil {
			return err
		}
		if err := s.repos.Clients.CreditBalance(ctx, c.ClientID, c.Amount); err != nil {
			return err
		}
		record := entity.NewTransaction(c.ClientID, valueobject.TxEscrowRefund, valueobject.AssetMoney, c.Amount.Minor(),
			fmt.Sprintf("Возврат эскроу по контракту %s", c.ID)).
			WithReference(RefundReference(c.ID)).
			ForContract(c.ID)
		if err := s.repos.Ledger.InsertTransaction(ctx, record); err != nil {
			return err
		}

		f, err := s.repos.Finds.FindByID(ctx, c.FindID)
		if err != nil {
			return err
		}
		f.Close(valueobject.FindStatusCancelled, now)
		return s.repos.Finds.Update(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "admin_id": adminID, "refund": c.Amount.String(), "reason": reason,
	}).Warn("контракт отменён администратором")

	message := fmt.Sprintf("Контракт отменён администратором. Клиенту возвращено %s.", c.Amount.String())
	if reason != "" {
		message += " Причина: " + reason
	}
	event := notify.Event{
		Kind:    notify.KindContractCancelled,
		Title:   "Контракт отменён",
		Message: message,
		Data:    map[string]any{"contractId": c.ID},
		Email:   true,
	}
	client, finder := event, event
	client.UserID, finder.UserID = c.ClientID, c.FinderID
	s.notifier.Send(ctx, client, finder)
	s.notifier.SendToAdmins(ctx, event)
	return c, nil
}

// AdminComplete помечает контракт завершённым без выплаты;
// средства уйдут исполнителю в плановой выплате или через AdminRelease.
func (s *Service) AdminComplete(ctx context.Context, contractID, adminID uuid.UUID) (*entity.Contract, error) {
	var c *entity.Contract
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repos.Contracts.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		prev := c.EscrowStatus
		if err := c.Complete(s.now()); err != nil {
			return err
		}
		return s.repos.Contracts.Update(ctx, c, prev)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "admin_id": adminID,
	}).Info("контракт завершён администратором")

	s.notifier.Send(ctx, notify.Event{
		UserID:  c.FinderID,
		Kind:    notify.KindContractCompleted,
		Title:   "Контракт завершён",
		Message: "Администратор завершил контракт. Средства будут зачислены после периода удержания.",
		Data:    map[string]any{"contractId": c.ID},
	})
	return c, nil
}

// AdminRelease немедленно выплачивает оплаченный контракт.
func (s *Service) AdminRelease(ctx context.Context, contractID, adminID uuid.UUID) (*Settlement, error) {
	st, err := s.settler.Release(ctx, contractID)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": contractID, "admin_id": adminID, "already_released": st.AlreadyReleased,
	}).Info("выплата по контракту проведена администратором")
	return st, nil
}
