package moderation

import (
	"context"
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

type CreateDisputeInput struct {
	UserID      uuid.UUID
	Type        string
	ContractID  *uuid.UUID
	FindID      *uuid.UUID
	StrikeID    *uuid.UUID
	Description string
	Evidence    valueobject.EvidenceList
}

// DisputeService - споры пользователей и их разбор администратором.
type DisputeService struct {
	disputes  repository.DisputeRepository
	contracts repository.ContractRepository
	finds     repository.FindRepository
	strikes   repository.StrikeRepository
	notifier  notify.Sender
}

func NewDisputeService(disputes repository.DisputeRepository, contracts repository.ContractRepository, finds repository.FindRepository, strikes repository.StrikeRepository, notifier notify.Sender) *DisputeService {
	return &DisputeService{disputes: disputes, contracts: contracts, finds: finds, strikes: strikes, notifier: notifier}
}

// Create открывает спор. Связанные контракт, заявка и страйк должны принадлежать пользователю.
func (s *DisputeService) Create(ctx context.Context, input CreateDisputeInput) (*entity.Dispute, error) {
	d, err := entity.NewDispute(input.UserID, input.Type, input.Description, input.Evidence)
	if err != nil {
		return nil, err
	}

	if input.ContractID != nil {
		c, err := s.contracts.FindByID(ctx, *input.ContractID)
		if err != nil {
			return nil, err
		}
		if !c.IsParticipant(input.UserID) {
			return nil, apperror.ErrNotParticipant
		}
		d.ContractID = input.ContractID
	}
	if input.FindID != nil {
		if _, err := s.finds.FindByID(ctx, *input.FindID); err != nil {
			return nil, err
		}
		d.FindID = input.FindID
	}
	if input.StrikeID != nil {
		st, err := s.strikes.FindByID(ctx, *input.StrikeID)
		if err != nil {
			return nil, err
		}
		if st.UserID != input.UserID {
			return nil, apperror.ErrForbidden
		}
		d.StrikeID = input.StrikeID
	}

	if err := s.disputes.Create(ctx, d); err != nil {
		return nil, err
	}

	logger.WithComponent("dispute").WithFields(logrus.Fields{
		"dispute_id": d.ID, "user_id": d.UserID, "type": d.Type,
	}).Info("открыт спор")

	s.notifier.SendToAdmins(ctx, notify.Event{
		Kind:    notify.KindDisputeCreated,
		Title:   "Новый спор",
		Message: "Пользователь открыл спор: " + d.Type,
		Data:    map[string]any{"disputeId": d.ID},
		Email:   true,
	})
	return d, nil
}

// Get возвращает спор владельцу или администратору.
func (s *DisputeService) Get(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*entity.Dispute, error) {
	d, err := s.disputes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && d.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return d, nil
}

func (s *DisputeService) ListMine(ctx context.Context, userID uuid.UUID) ([]*entity.Dispute, error) {
	return s.disputes.ListByUser(ctx, userID)
}

// ListByStatus для администратора; пустой статус - все споры.
func (s *DisputeService) ListByStatus(ctx context.Context, status string) ([]*entity.Dispute, error) {
	if status == "" {
		return s.disputes.ListByStatus(ctx, nil)
	}
	st, err := valueobject.NewDisputeStatus(status)
	if err != nil {
		return nil, err
	}
	return s.disputes.ListByStatus(ctx, &st)
}

// Transition меняет статус спора от имени администратора и уведомляет автора.
func (s *DisputeService) Transition(ctx context.Context, id, adminID uuid.UUID, status, resolution string) (*entity.Dispute, error) {
	next, err := valueobject.NewDisputeStatus(status)
	if err != nil {
		return nil, err
	}
	d, err := s.disputes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Transition(next, resolution, adminID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, err
	}

	logger.WithComponent("dispute").WithFields(logrus.Fields{
		"dispute_id": d.ID, "status": d.Status, "admin_id": adminID,
	}).Info("статус спора изменён")

	s.notifier.Send(ctx, notify.Event{
		UserID:  d.UserID,
		Kind:    notify.KindDisputeUpdated,
		Title:   "Статус спора изменён",
		Message: "Новый статус спора: " + string(d.Status),
		Data:    map[string]any{"disputeId": d.ID, "status": d.Status},
		Email:   d.Status.IsClosed(),
	})
	return d, nil
}
