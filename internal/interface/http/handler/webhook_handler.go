package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	infrapayment "github.com/ignatzorin/finders-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	payments *payment.Processor
}

func NewWebhookHandler(payments *payment.Processor) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Payments обслуживает POST /api/webhooks/payments. Подпись считается по сырому телу.
func (h *WebhookHandler) Payments(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	res, err := h.payments.HandleWebhook(c.Request.Context(), raw, c.GetHeader(infrapayment.SignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
