package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/interface/http/dto"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/usecase/payment"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
)

type TokenHandler struct {
	ledger      *token.Ledger
	distributor *token.MonthlyDistributor
	payments    *payment.Processor
	finders     repository.FinderRepository
	clients     repository.ClientRepository
}

func NewTokenHandler(ledger *token.Ledger, distributor *token.MonthlyDistributor, payments *payment.Processor, finders repository.FinderRepository, clients repository.ClientRepository) *TokenHandler {
	return &TokenHandler{
		ledger:      ledger,
		distributor: distributor,
		payments:    payments,
		finders:     finders,
		clients:     clients,
	}
}

func holderOf(role valueobject.Role) (token.Holder, bool) {
	switch role {
	case valueobject.RoleClient:
		return token.HolderClient, true
	case valueobject.RoleFinder:
		return token.HolderFinder, true
	}
	return "", false
}

// Balance возвращает баланс токенов и денежный баланс текущего пользователя.
func (h *TokenHandler) Balance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	switch user.Role {
	case valueobject.RoleFinder:
		f, err := h.finders.FindByID(c.Request.Context(), user.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dto.ToFinderBalance(f))
	case valueobject.RoleClient:
		cl, err := h.clients.FindByID(c.Request.Context(), user.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dto.ToClientBalance(cl))
	default:
		response.Forbidden(c, "баланс есть только у клиентов и исполнителей")
	}
}

// Transactions: ?asset=findertoken|money&limit=&offset=
func (h *TokenHandler) Transactions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	asset := valueobject.Asset(c.Query("asset"))
	if asset != "" && asset != valueobject.AssetFindertoken && asset != valueobject.AssetMoney {
		response.BadRequest(c, "asset должен быть findertoken или money")
		return
	}
	items, err := h.ledger.ListTransactions(c.Request.Context(), user.ID, asset,
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToTransactionList(items))
}

func (h *TokenHandler) Grants(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	holder, ok := holderOf(user.Role)
	if !ok {
		response.Forbidden(c, "начисления есть только у клиентов и исполнителей")
		return
	}

	var items []*entity.TokenGrant
	var err error
	if holder == token.HolderClient {
		items, err = h.ledger.ListClientGrants(c.Request.Context(), user.ID)
	} else {
		items, err = h.ledger.ListFinderGrants(c.Request.Context(), user.ID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToGrantList(items))
}

func (h *TokenHandler) Purchase(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	holder, ok := holderOf(user.Role)
	if !ok {
		response.Forbidden(c, "покупать токены могут клиенты и исполнители")
		return
	}
	var req dto.PurchaseTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "tokens должно быть положительным числом")
		return
	}

	purchase, err := h.payments.PurchaseTokens(c.Request.Context(), user.ID, holder, req.Tokens)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"reference":  purchase.Reference,
		"paymentUrl": purchase.PaymentURL,
		"tokens":     purchase.Tokens,
		"amount":     purchase.Amount.String(),
	})
}

func (h *TokenHandler) GrantClient(c *gin.Context) {
	h.grant(c, token.HolderClient)
}

func (h *TokenHandler) GrantFinder(c *gin.Context) {
	h.grant(c, token.HolderFinder)
}

func (h *TokenHandler) grant(c *gin.Context, holder token.Holder) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.GrantTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите amount и reason")
		return
	}

	var (
		balance int64
		err     error
	)
	if holder == token.HolderClient {
		balance, err = h.ledger.GrantClientTokens(c.Request.Context(), userID, req.Amount, req.Reason, &admin.ID)
	} else {
		balance, err = h.ledger.GrantFinderTokens(c.Request.Context(), userID, req.Amount, req.Reason, &admin.ID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.GrantTokensResponse{UserID: userID, Granted: req.Amount, NewBalance: balance})
}

func (h *TokenHandler) Sync(c *gin.Context) {
	report, err := h.ledger.SyncTokenBalances(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Distribute запускает ежемесячное начисление вручную; повтор в том же месяце ничего не начисляет.
func (h *TokenHandler) Distribute(c *gin.Context) {
	report, err := h.distributor.Run(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}
