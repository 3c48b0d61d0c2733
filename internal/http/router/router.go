package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/finders-backend/internal/auth"
	"github.com/ignatzorin/finders-backend/internal/config"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/http/middleware"
	"github.com/ignatzorin/finders-backend/internal/interface/http/handler"
)

// Handlers собирает обработчики, подключаемые к роутеру.
type Handlers struct {
	Health        *handler.HealthHandler
	Finds         *handler.FindHandler
	Contracts     *handler.ContractHandler
	Tokens        *handler.TokenHandler
	Moderation    *handler.ModerationHandler
	Settings      *handler.SettingsHandler
	Notifications *handler.NotificationHandler
	Webhooks      *handler.WebhookHandler
	WS            *handler.WSHandler
}

const webhookRateLimit = 120

func SetupRouter(cfg *config.Config, h Handlers, tokens *auth.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	// Вебхук шлюза: без авторизации, подпись проверяется в обработчике.
	api.POST("/webhooks/payments",
		middleware.RateLimitMiddleware(webhookRateLimit, time.Minute),
		h.Webhooks.Payments)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.POST("/finds", h.Finds.CreateFind)
		protected.GET("/finds/:id", middleware.UUIDValidator("id"), h.Finds.GetFind)
		protected.POST("/finds/:id/boost", middleware.UUIDValidator("id"), h.Finds.BoostFind)
		protected.POST("/finds/:id/proposals", middleware.UUIDValidator("id"), h.Finds.SubmitProposal)

		protected.POST("/proposals/:id/accept", middleware.UUIDValidator("id"), h.Contracts.AcceptProposal)

		protected.GET("/contracts", h.Contracts.ListMyContracts)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), h.Contracts.GetContract)
		protected.POST("/contracts/:id/fund", middleware.UUIDValidator("id"), h.Contracts.Fund)
		protected.GET("/contracts/:id/verify-payment", middleware.UUIDValidator("id"), h.Contracts.VerifyPayment)
		protected.POST("/contracts/:id/submission", middleware.UUIDValidator("id"), h.Contracts.SubmitWork)
		protected.GET("/contracts/:id/submission", middleware.UUIDValidator("id"), h.Contracts.GetSubmission)
		protected.PUT("/contracts/:id/submission/review", middleware.UUIDValidator("id"), h.Contracts.ReviewSubmission)

		protected.GET("/tokens/balance", h.Tokens.Balance)
		protected.GET("/tokens/transactions", h.Tokens.Transactions)
		protected.GET("/tokens/grants", h.Tokens.Grants)
		protected.POST("/tokens/purchase", h.Tokens.Purchase)

		protected.POST("/disputes", h.Moderation.CreateDispute)
		protected.GET("/disputes", h.Moderation.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Moderation.GetDispute)
		protected.GET("/strikes/me", h.Moderation.MyStrikes)
		protected.POST("/strikes/:id/appeal", middleware.UUIDValidator("id"), h.Moderation.AppealStrike)

		protected.GET("/notifications", h.Notifications.List)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireRole(valueobject.RoleAdmin))
	{
		admin.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), h.Contracts.AdminCancel)
		admin.POST("/contracts/:id/complete", middleware.UUIDValidator("id"), h.Contracts.AdminComplete)
		admin.POST("/contracts/:id/release", middleware.UUIDValidator("id"), h.Contracts.AdminRelease)

		admin.POST("/tokens/clients/:id/grant", middleware.UUIDValidator("id"), h.Tokens.GrantClient)
		admin.POST("/tokens/finders/:id/grant", middleware.UUIDValidator("id"), h.Tokens.GrantFinder)
		admin.POST("/tokens/sync", h.Tokens.Sync)
		admin.POST("/tokens/distribute", h.Tokens.Distribute)

		admin.GET("/disputes", h.Moderation.ListDisputes)
		admin.PUT("/disputes/:id/status", middleware.UUIDValidator("id"), h.Moderation.UpdateDisputeStatus)
		admin.POST("/strikes", h.Moderation.IssueStrike)
		admin.PUT("/strikes/:id/appeal", middleware.UUIDValidator("id"), h.Moderation.ResolveAppeal)

		admin.GET("/settings", h.Settings.List)
		admin.PUT("/settings", h.Settings.Update)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = origins
	return c
}
