package moderation

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

// Уровни эскалации, при которых действуют ограничения.
const (
	LevelRestricted = 2 // нельзя продвигать заявки и публиковать крупные
	LevelSuspended  = 3 // нельзя публиковать, откликаться и продвигать
)

var errNotOwner = apperror.New(apperror.ErrCodeForbidden, "страйк принадлежит другому пользователю")

type IssueStrikeInput struct {
	UserID      uuid.UUID
	OffenseType string
	Severity    string
	Evidence    valueobject.EvidenceList
	IssuedBy    *uuid.UUID
}

// StrikeService - выдача, обжалование и истечение страйков.
type StrikeService struct {
	strikes  repository.StrikeRepository
	users    repository.UserRepository
	notifier notify.Sender
	now      func() time.Time
}

func NewStrikeService(strikes repository.StrikeRepository, users repository.UserRepository, notifier notify.Sender) *StrikeService {
	return &StrikeService{strikes: strikes, users: users, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

func (s *StrikeService) Issue(ctx context.Context, input IssueStrikeInput) (*entity.Strike, error) {
	severity, err := valueobject.NewStrikeSeverity(input.Severity)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, input.UserID); err != nil {
		return nil, err
	}

	st, err := entity.NewStrike(input.UserID, input.OffenseType, severity, input.Evidence, input.IssuedBy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.strikes.Create(ctx, st); err != nil {
		return nil, err
	}

	level, err := s.EscalationLevel(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("strike").WithFields(logrus.Fields{
		"strike_id": st.ID, "user_id": st.UserID, "severity": st.Severity, "count": st.StrikeCount, "level": level,
	}).Warn("выдан страйк")

	s.notifier.Send(ctx, notify.Event{
		UserID:  st.UserID,
		Kind:    notify.KindStrikeIssued,
		Title:   "Вам выдан страйк",
		Message: fmt.Sprintf("Нарушение: %s. Текущий уровень ограничений: %d", st.OffenseType, level),
		Data:    map[string]any{"strikeId": st.ID, "escalationLevel": level},
		Email:   true,
	})
	return st, nil
}

// Appeal - пользователь обжалует свой страйк. До решения страйк продолжает учитываться.
func (s *StrikeService) Appeal(ctx context.Context, strikeID, userID uuid.UUID, reason string) (*entity.Strike, error) {
	st, err := s.strikes.FindByID(ctx, strikeID)
	if err != nil {
		return nil, err
	}
	if st.UserID != userID {
		return nil, errNotOwner
	}
	if err := st.Appeal(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.strikes.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ResolveAppeal - решение администратора по жалобе.
func (s *StrikeService) ResolveAppeal(ctx context.Context, strikeID uuid.UUID, granted bool) (*entity.Strike, error) {
	st, err := s.strikes.FindByID(ctx, strikeID)
	if err != nil {
		return nil, err
	}
	if err := st.ResolveAppeal(granted, s.now()); err != nil {
		return nil, err
	}
	if err := s.strikes.Update(ctx, st); err != nil {
		return nil, err
	}
	logger.WithComponent("strike").WithFields(logrus.Fields{
		"strike_id": st.ID, "granted": granted,
	}).Info("жалоба на страйк рассмотрена")
	return st, nil
}

// ExpireDue переводит истёкшие страйки в expired.
func (s *StrikeService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	n, err := s.strikes.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.WithComponent("strike").WithField("expired", n).Info("истёкшие страйки сняты")
	}
	return n, nil
}

// EscalationLevel - уровень ограничений пользователя по сумме действующих страйков.
func (s *StrikeService) EscalationLevel(ctx context.Context, userID uuid.UUID) (int, error) {
	total, err := s.strikes.SumActive(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	return valueobject.EscalationLevel(total), nil
}

func (s *StrikeService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entity.Strike, error) {
	return s.strikes.ListByUser(ctx, userID)
}
