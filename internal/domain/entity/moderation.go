package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/validation"
)

// StrikeLifetime - через сколько страйк истекает.
const StrikeLifetime = 30 * 24 * time.Hour

type Dispute struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        string
	ContractID  *uuid.UUID
	FindID      *uuid.UUID
	StrikeID    *uuid.UUID
	Description string
	Evidence    valueobject.EvidenceList
	Status      valueobject.DisputeStatus
	Resolution  *string
	ResolvedBy  *uuid.UUID
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewDispute(userID uuid.UUID, disputeType, description string, evidence valueobject.EvidenceList) (*Dispute, error) {
	disputeType = strings.TrimSpace(disputeType)
	if disputeType == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип спора обязателен")
	}
	description, err := validation.Required("описание спора", description, validation.MaxDisputeDescriptionLength)
	if err != nil {
		return nil, err
	}
	if err = evidence.Validate(); err != nil {
		return nil, err
	}
	if evidence == nil {
		evidence = valueobject.EvidenceList{}
	}

	now := time.Now().UTC()
	return &Dispute{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        disputeType,
		Description: description,
		Evidence:    evidence,
		Status:      valueobject.DisputeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition переводит спор по статусам; закрытие требует текста решения.
func (d *Dispute) Transition(next valueobject.DisputeStatus, resolution string, adminID uuid.UUID, now time.Time) error {
	if !d.Status.CanTransitionTo(next) {
		return apperror.New(apperror.ErrCodeBadRequest,
			"недопустимый переход спора: "+string(d.Status)+" -> "+string(next))
	}
	resolution = strings.TrimSpace(resolution)
	if next.IsClosed() {
		if resolution == "" {
			return apperror.New(apperror.ErrCodeValidation, "укажите решение по спору")
		}
		d.Resolution = &resolution
		d.ResolvedBy = &adminID
		d.ResolvedAt = &now
	}
	d.Status = next
	d.UpdatedAt = now
	return nil
}

type Strike struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	OffenseType  string
	Severity     valueobject.StrikeSeverity
	StrikeCount  int
	Evidence     valueobject.EvidenceList
	Status       valueobject.StrikeStatus
	AppealReason *string
	IssuedBy     *uuid.UUID
	ExpiresAt    time.Time
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewStrike(userID uuid.UUID, offenseType string, severity valueobject.StrikeSeverity, evidence valueobject.EvidenceList, issuedBy *uuid.UUID, now time.Time) (*Strike, error) {
	offenseType = strings.TrimSpace(offenseType)
	if offenseType == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип нарушения обязателен")
	}
	if severity.Count() == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная тяжесть нарушения")
	}
	if err := evidence.Validate(); err != nil {
		return nil, err
	}
	if evidence == nil {
		evidence = valueobject.EvidenceList{}
	}

	return &Strike{
		ID:          uuid.New(),
		UserID:      userID,
		OffenseType: offenseType,
		Severity:    severity,
		StrikeCount: severity.Count(),
		Evidence:    evidence,
		Status:      valueobject.StrikeStatusActive,
		IssuedBy:    issuedBy,
		ExpiresAt:   now.Add(StrikeLifetime),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Strike) Appeal(reason string, now time.Time) error {
	if s.Status != valueobject.StrikeStatusActive {
		return apperror.New(apperror.ErrCodeBadRequest, "обжаловать можно только действующий страйк")
	}
	reason, err := validation.Required("причина обжалования", reason, validation.MaxAppealReasonLength)
	if err != nil {
		return err
	}
	s.Status = valueobject.StrikeStatusAppealed
	s.AppealReason = &reason
	s.UpdatedAt = now
	return nil
}

// ResolveAppeal: при удовлетворении жалобы страйк снимается, иначе снова действует.
func (s *Strike) ResolveAppeal(granted bool, now time.Time) error {
	if s.Status != valueobject.StrikeStatusAppealed {
		return apperror.New(apperror.ErrCodeBadRequest, "страйк не находится на обжаловании")
	}
	if granted {
		s.Status = valueobject.StrikeStatusResolved
		s.ResolvedAt = &now
	} else {
		s.Status = valueobject.StrikeStatusActive
	}
	s.UpdatedAt = now
	return nil
}

func (s *Strike) IsExpired(now time.Time) bool {
	return s.Status.Counts() && !s.ExpiresAt.After(now)
}
