package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

type CreateDisputeRequest struct {
	Type        string                   `json:"type" binding:"required"`
	ContractID  *uuid.UUID               `json:"contractId"`
	FindID      *uuid.UUID               `json:"findId"`
	StrikeID    *uuid.UUID               `json:"strikeId"`
	Description string                   `json:"description" binding:"required"`
	Evidence    valueobject.EvidenceList `json:"evidence"`
}

type UpdateDisputeStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	Resolution string `json:"resolution"`
}

type DisputeResponse struct {
	ID          uuid.UUID                `json:"id"`
	UserID      uuid.UUID                `json:"userId"`
	Type        string                   `json:"type"`
	ContractID  *uuid.UUID               `json:"contractId"`
	FindID      *uuid.UUID               `json:"findId"`
	StrikeID    *uuid.UUID               `json:"strikeId"`
	Description string                   `json:"description"`
	Evidence    valueobject.EvidenceList `json:"evidence"`
	Status      string                   `json:"status"`
	Resolution  *string                  `json:"resolution"`
	ResolvedAt  *time.Time               `json:"resolvedAt"`
	CreatedAt   time.Time                `json:"createdAt"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		Type:        d.Type,
		ContractID:  d.ContractID,
		FindID:      d.FindID,
		StrikeID:    d.StrikeID,
		Description: d.Description,
		Evidence:    d.Evidence,
		Status:      string(d.Status),
		Resolution:  d.Resolution,
		ResolvedAt:  d.ResolvedAt,
		CreatedAt:   d.CreatedAt,
	}
}

func ToDisputeList(items []*entity.Dispute) []DisputeResponse {
	out := make([]DisputeResponse, 0, len(items))
	for _, d := range items {
		out = append(out, ToDisputeResponse(d))
	}
	return out
}

type IssueStrikeRequest struct {
	UserID      uuid.UUID                `json:"userId" binding:"required"`
	OffenseType string                   `json:"offenseType" binding:"required"`
	Severity    string                   `json:"severity" binding:"required"`
	Evidence    valueobject.EvidenceList `json:"evidence"`
}

type AppealStrikeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResolveAppealRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

type StrikeResponse struct {
	ID           uuid.UUID                `json:"id"`
	UserID       uuid.UUID                `json:"userId"`
	OffenseType  string                   `json:"offenseType"`
	Severity     string                   `json:"severity"`
	StrikeCount  int                      `json:"strikeCount"`
	Evidence     valueobject.EvidenceList `json:"evidence"`
	Status       string                   `json:"status"`
	AppealReason *string                  `json:"appealReason"`
	ExpiresAt    time.Time                `json:"expiresAt"`
	CreatedAt    time.Time                `json:"createdAt"`
}

func ToStrikeResponse(s *entity.Strike) StrikeResponse {
	return StrikeResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		OffenseType:  s.OffenseType,
		Severity:     string(s.Severity),
		StrikeCount:  s.StrikeCount,
		Evidence:     s.Evidence,
		Status:       string(s.Status),
		AppealReason: s.AppealReason,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
	}
}

type MyStrikesResponse struct {
	EscalationLevel int              `json:"escalationLevel"`
	Strikes         []StrikeResponse `json:"strikes"`
}

type UpdateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type NotificationResponse struct {
	ID        uuid.UUID      `json:"id"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
}

func ToNotificationList(items []*entity.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
