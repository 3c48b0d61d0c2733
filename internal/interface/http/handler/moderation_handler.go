package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/moderation"
)

type ModerationHandler struct {
	disputes *moderation.DisputeService
	strikes  *moderation.StrikeService
}

func NewModerationHandler(disputes *moderation.DisputeService, strikes *moderation.StrikeService) *ModerationHandler {
	return &ModerationHandler{disputes: disputes, strikes: strikes}
}

func (h *ModerationHandler) CreateDispute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	d, err := h.disputes.Create(c.Request.Context(), moderation.CreateDisputeInput{
		UserID:      user.ID,
		Type:        req.Type,
		ContractID:  req.ContractID,
		FindID:      req.FindID,
		StrikeID:    req.StrikeID,
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToDisputeResponse(d))
}

func (h *ModerationHandler) ListMyDisputes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.disputes.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeList(items))
}

func (h *ModerationHandler) GetDispute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.disputes.Get(c.Request.Context(), id, user.ID, user.isAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

// ListDisputes (админ): ?status=pending|investigating|resolved|rejected
func (h *ModerationHandler) ListDisputes(c *gin.Context) {
	items, err := h.disputes.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeList(items))
}

func (h *ModerationHandler) UpdateDisputeStatus(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDisputeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите status")
		return
	}
	d, err := h.disputes.Transition(c.Request.Context(), id, admin.ID, req.Status, req.Resolution)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *ModerationHandler) IssueStrike(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.IssueStrikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	s, err := h.strikes.Issue(c.Request.Context(), moderation.IssueStrikeInput{
		UserID:      req.UserID,
		OffenseType: req.OffenseType,
		Severity:    req.Severity,
		Evidence:    req.Evidence,
		IssuedBy:    &admin.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToStrikeResponse(s))
}

func (h *ModerationHandler) MyStrikes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	items, err := h.strikes.ListForUser(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	level, err := h.strikes.EscalationLevel(ctx, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.MyStrikesResponse{EscalationLevel: level, Strikes: make([]dto.StrikeResponse, 0, len(items))}
	for _, s := range items {
		out.Strikes = append(out.Strikes, dto.ToStrikeResponse(s))
	}
	response.Success(c, out)
}

func (h *ModerationHandler) AppealStrike(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AppealStrikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину обжалования")
		return
	}
	s, err := h.strikes.Appeal(c.Request.Context(), id, user.ID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToStrikeResponse(s))
}

func (h *ModerationHandler) ResolveAppeal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Granted == nil {
		response.BadRequest(c, "укажите granted")
		return
	}
	s, err := h.strikes.ResolveAppeal(c.Request.Context(), id, *req.Granted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToStrikeResponse(s))
}
