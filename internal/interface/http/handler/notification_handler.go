package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
)

type NotificationHandler struct {
	notifications repository.NotificationRepository
}

func NewNotificationHandler(notifications repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	limit := parseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := h.notifications.ListByUser(c.Request.Context(), user.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToNotificationList(items))
}
