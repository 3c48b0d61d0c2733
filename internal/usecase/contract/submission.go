package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/notify"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type SubmitWorkInput struct {
	ContractID      uuid.UUID
	FinderID        uuid.UUID
	Text            string
	AttachmentPaths []string
}

// SubmitWork сохраняет сдачу работы и запускает таймер авто-принятия.
// Повторная сдача после отклонения перезаписывает прежнюю.
func (s *Service) SubmitWork(ctx context.Context, input SubmitWorkInput) (*entity.OrderSubmission, error) {
	var (
		sub *entity.OrderSubmission
		c   *entity.Contract
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repos.Contracts.FindByIDForUpdate(ctx, input.ContractID)
		if err != nil {
			return err
		}
		if c.FinderID != input.FinderID {
			return apperror.New(apperror.ErrCodeForbidden, "сдать работу может только исполнитель контракта")
		}

		existing, err := s.repos.Submissions.FindByContractID(ctx, c.ID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		now := s.now()
		prev := c.EscrowStatus
		if err := c.MarkSubmitted(now); err != nil {
			return err
		}
		sub, err = entity.Submit(existing, c, input.Text, input.AttachmentPaths, now, s.cfg.SubmissionAutoReleaseWindow)
		if err != nil {
			return err
		}
		if err := s.repos.Submissions.Upsert(ctx, sub); err != nil {
			return err
		}
		return s.repos.Contracts.Update(ctx, c, prev)
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("contract").WithFields(logrus.Fields{
		"contract_id": c.ID, "finder_id": c.FinderID, "auto_release_at": sub.AutoReleaseAt,
	}).Info("работа сдана")

	s.notifier.Send(ctx, notify.Event{
		UserID:  c.ClientID,
		Kind:    notify.KindWorkSubmitted,
		Title:   "Работа сдана",
		Message: "Исполнитель сдал работу. Если не ответить до " + sub.AutoReleaseAt.Format(time.RFC3339) + ", она будет принята автоматически.",
		Data:    map[string]any{"contractId": c.ID, "autoReleaseAt": sub.AutoReleaseAt},
		Email:   true,
	})
	return sub, nil
}

// GetSubmission доступна участникам контракта и администратору.
func (s *Service) GetSubmission(ctx context.Context, contractID, userID uuid.UUID, isAdmin bool) (*entity.OrderSubmission, error) {
	if _, err := s.GetContract(ctx, contractID, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.repos.Submissions.FindByContractID(ctx, contractID)
}

// ReviewDecision - решение клиента по сдаче.
type ReviewDecision string

const (
	ReviewAccept ReviewDecision = "accept"
	ReviewReject ReviewDecision = "reject"
)

type ReviewInput struct {
	ContractID uuid.UUID
	ClientID   uuid.UUID
	Decision   ReviewDecision
	Feedback   string
}

// ReviewResult - состояние после проверки; Settlement заполнен при принятии.
type ReviewResult struct {
	Submission *entity.OrderSubmission
	Settlement *Settlement
}

// ReviewSubmission: принятие сразу выплачивает средства, отклонение оставляет контракт открытым.
func (s *Service) ReviewSubmission(ctx context.Context, input ReviewInput) (*ReviewResult, error) {
	if input.Decision != ReviewAccept && input.Decision != ReviewReject {
		return nil, apperror.New(apperror.ErrCodeValidation, "решение должно быть accept или reject")
	}

	var (
		result = &ReviewResult{}
		c      *entity.Contract
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repos.Contracts.FindByIDForUpdate(ctx, input.ContractID)
		if err != nil {
			return err
		}
		if c.ClientID != input.ClientID {
			return apperror.New(apperror.ErrCodeForbidden, "проверить работу может только клиент контракта")
		}
		if !c.IsFunded() || c.IsCompleted {
			return apperror.New(apperror.ErrCodeBadRequest, "контракт не ожидает проверки работы")
		}
		sub, err := s.repos.Submissions.FindByContractID(ctx, c.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if input.Decision == ReviewReject {
			if err := sub.Reject(input.Feedback, now); err != nil {
				return err
			}
			result.Submission = sub
			return s.repos.Submissions.Upsert(ctx, sub)
		}

		if err := sub.Accept(input.Feedback, now); err != nil {
			return err
		}
		if err := s.repos.Submissions.Upsert(ctx, sub); err != nil {
			return err
		}
		result.Submission = sub
		result.Settlement, err = s.settler.settleLocked(ctx, c, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("contract").WithFields(logrus.Fields{"contract_id": c.ID, "decision": input.Decision})
	if input.Decision == ReviewReject {
		log.Info("работа отклонена")
		s.notifier.Send(ctx, notify.Event{
			UserID:  c.FinderID,
			Kind:    notify.KindWorkRejected,
			Title:   "Работа отклонена",
			Message: "Клиент отклонил работу: " + input.Feedback,
			Data:    map[string]any{"contractId": c.ID},
			Email:   true,
		})
		return result, nil
	}

	log.Info("работа принята")
	s.notifier.Send(ctx, notify.Event{
		UserID:  c.FinderID,
		Kind:    notify.KindWorkAccepted,
		Title:   "Работа принята",
		Message: "Клиент принял работу.",
		Data:    map[string]any{"contractId": c.ID},
	})
	s.settler.announce(ctx, result.Settlement)
	return result, nil
}
