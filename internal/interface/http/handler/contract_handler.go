package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
)

type ContractHandler struct {
	contracts *contract.Service
	payments  *payment.Processor
}

func NewContractHandler(contracts *contract.Service, payments *payment.Processor) *ContractHandler {
	return &ContractHandler{contracts: contracts, payments: payments}
}

// AcceptProposal обслуживает POST /proposals/:id/accept.
func (h *ContractHandler) AcceptProposal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	proposalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.AcceptProposal(c.Request.Context(), user.ID, proposalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToContractResponse(ct))
}

func (h *ContractHandler) ListMyContracts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.contracts.ListMyContracts(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractList(items))
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.GetContract(c.Request.Context(), id, user.ID, user.isAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractResponse(ct))
}

// Fund создаёт платёж в шлюзе; контракт станет funded после вебхука или verify-payment.
func (h *ContractHandler) Fund(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	session, err := h.contracts.InitiateFunding(c.Request.Context(), user.ID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToFundingResponse(session))
}

func (h *ContractHandler) VerifyPayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.payments.VerifyContractPayment(c.Request.Context(), user.ID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractResponse(ct))
}

func (h *ContractHandler) SubmitWork(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	sub, err := h.contracts.SubmitWork(c.Request.Context(), contract.SubmitWorkInput{
		ContractID:      id,
		FinderID:        user.ID,
		Text:            req.SubmissionText,
		AttachmentPaths: req.AttachmentPaths,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToSubmissionResponse(sub))
}

func (h *ContractHandler) GetSubmission(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.contracts.GetSubmission(c.Request.Context(), id, user.ID, user.isAdmin())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToSubmissionResponse(sub))
}

func (h *ContractHandler) ReviewSubmission(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "action должен быть accept или reject")
		return
	}

	res, err := h.contracts.ReviewSubmission(c.Request.Context(), contract.ReviewInput{
		ContractID: id,
		ClientID:   user.ID,
		Decision:   contract.ReviewDecision(req.Action),
		Feedback:   req.Feedback,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ReviewResponse{
		Submission: dto.ToSubmissionResponse(res.Submission),
		Settlement: dto.ToSettlementResponse(res.Settlement),
	})
}

func (h *ContractHandler) AdminCancel(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminCancelRequest
	_ = c.ShouldBindJSON(&req)

	ct, err := h.contracts.AdminCancel(c.Request.Context(), id, user.ID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractResponse(ct))
}

func (h *ContractHandler) AdminComplete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ct, err := h.contracts.AdminComplete(c.Request.Context(), id, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToContractResponse(ct))
}

func (h *ContractHandler) AdminRelease(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.contracts.AdminRelease(c.Request.Context(), id, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToSettlementResponse(st))
}
