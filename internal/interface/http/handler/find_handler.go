package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/find"
)

type FindHandler struct {
	finds *find.Service
}

func NewFindHandler(finds *find.Service) *FindHandler {
	return &FindHandler{finds: finds}
}

func (h *FindHandler) CreateFind(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if user.Role != valueobject.RoleClient {
		response.Forbidden(c, "публиковать заявки могут только клиенты")
		return
	}

	var req dto.CreateFindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	budgetMin, ok := parseMoney(c, "budgetMin", req.BudgetMin)
	if !ok {
		return
	}
	budgetMax, ok := parseMoney(c, "budgetMax", req.BudgetMax)
	if !ok {
		return
	}

	f, err := h.finds.CreateFind(c.Request.Context(), find.CreateFindInput{
		ClientID:    user.ID,
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   budgetMin,
		BudgetMax:   budgetMax,
		Boost:       req.Boost,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToFindResponse(f))
}

func (h *FindHandler) GetFind(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.finds.GetFind(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToFindResponse(f))
}

func (h *FindHandler) BoostFind(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.finds.BoostFind(c.Request.Context(), id, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToFindResponse(f))
}

func (h *FindHandler) SubmitProposal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if user.Role != valueobject.RoleFinder {
		response.Forbidden(c, "откликаться могут только исполнители")
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	price, ok := parseMoney(c, "price", req.Price)
	if !ok {
		return
	}

	p, err := h.finds.SubmitProposal(c.Request.Context(), find.SubmitProposalInput{
		FindID:      id,
		FinderID:    user.ID,
		Price:       price,
		CoverLetter: req.CoverLetter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToProposalResponse(p))
}
