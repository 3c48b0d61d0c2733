package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/settings"
)

type SettingsHandler struct {
	settings *settings.Provider
}

func NewSettingsHandler(p *settings.Provider) *SettingsHandler {
	return &SettingsHandler{settings: p}
}

func (h *SettingsHandler) List(c *gin.Context) {
	values, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, values)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите key и value")
		return
	}
	if err := h.settings.Update(c.Request.Context(), req.Key, req.Value, admin.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.List(c)
}
