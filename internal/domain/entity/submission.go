package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

// OrderSubmission - сдача работы по контракту. Одна запись на контракт:
// повторная сдача перезаписывает её и заново запускает таймер авто-выплаты.
type OrderSubmission struct {
	ID              uuid.UUID
	ContractID      uuid.UUID
	FinderID        uuid.UUID
	SubmissionText  string
	AttachmentPaths []string
	Status          valueobject.SubmissionStatus
	ClientFeedback  *string
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	AutoReleaseAt   time.Time
}

// Submit создаёт новую сдачу или перезаписывает отклонённую.
func Submit(existing *OrderSubmission, contract *Contract, text string, attachments []string, now time.Time, window time.Duration) (*OrderSubmission, error) {
	text = strings.TrimSpace(text)
	paths := make([]string, 0, len(attachments))
	for _, p := range attachments {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if text == "" && len(paths) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужно указать текст или приложить файлы")
	}

	s := existing
	if s == nil {
		s = &OrderSubmission{ID: uuid.New(), ContractID: contract.ID}
	} else if s.Status == valueobject.SubmissionStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "работа уже принята")
	}

	s.FinderID = contract.FinderID
	s.SubmissionText = text
	s.AttachmentPaths = paths
	s.Status = valueobject.SubmissionStatusSubmitted
	s.ClientFeedback = nil
	s.ReviewedAt = nil
	s.SubmittedAt = now
	s.AutoReleaseAt = now.Add(window)
	return s, nil
}

func (s *OrderSubmission) IsPending() bool {
	return s.Status == valueobject.SubmissionStatusSubmitted
}

// IsDue - клиент не ответил до истечения окна.
func (s *OrderSubmission) IsDue(now time.Time) bool {
	return s.IsPending() && !s.AutoReleaseAt.After(now)
}

func (s *OrderSubmission) Accept(feedback string, now time.Time) error {
	return s.review(valueobject.SubmissionStatusAccepted, feedback, now)
}

func (s *OrderSubmission) Reject(feedback string, now time.Time) error {
	if strings.TrimSpace(feedback) == "" {
		return apperror.New(apperror.ErrCodeValidation, "укажите причину отклонения")
	}
	return s.review(valueobject.SubmissionStatusRejected, feedback, now)
}

func (s *OrderSubmission) review(status valueobject.SubmissionStatus, feedback string, now time.Time) error {
	if !s.IsPending() {
		return apperror.New(apperror.ErrCodeBadRequest, "работа уже проверена")
	}
	s.Status = status
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		s.ClientFeedback = &feedback
	}
	s.ReviewedAt = &now
	return nil
}
