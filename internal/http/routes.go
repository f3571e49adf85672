package http

import (
	"github.com/gin-gonic/gin"

	"clicker_webapp/internal/config"
	"clicker_webapp/internal/http/handlers"
	"clicker_webapp/internal/http/middleware"
	"clicker_webapp/internal/ws"
)

// RegisterRoutes wires the API surface: public auth, the authenticated
// game endpoints, the admin panel and the websocket feed.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, cfg *config.Config) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Liveness)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))

	// Auth
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow)
	api.POST("/auth/register", authRL, h.Register)
	api.POST("/auth/login", authRL, h.Login)

	auth := api.Group("")
	auth.Use(middleware.JWT(h.JWT))
	{
		auth.GET("/me", h.Me)
		auth.POST("/me/password", h.ChangePassword)
		auth.POST("/click", h.Click)

		auth.POST("/transactions/deposit", h.CreateDeposit)
		auth.DELETE("/transactions/deposit/:id", h.CancelDeposit)
		auth.POST("/transactions/withdraw", h.RequestWithdrawal)
		auth.GET("/transactions", h.History)

		auth.GET("/packages", h.ListPackages)
		auth.POST("/packages/:id/buy", h.BuyPackage)

		auth.GET("/store", h.ListStoreItems)
		auth.POST("/store/:id/buy", h.BuyStoreItem)

		auth.GET("/referrals", h.MyReferrals)
		auth.GET("/referrals/stats", h.ReferralStats)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(h.JWT), middleware.AdminOnly())
	{
		admin.GET("/transactions", h.AdminSearchTransactions)
		admin.POST("/transactions/:id/confirm", h.AdminConfirmDeposit)
		admin.POST("/transactions/:id/approve", h.AdminApproveTransaction)
		admin.POST("/transactions/:id/reject", h.AdminRejectTransaction)
		admin.DELETE("/transactions/:id", h.AdminCancelTransaction)

		admin.GET("/users", h.AdminSearchUsers)
		admin.PATCH("/users/:id", h.AdminUpdateUser)

		admin.GET("/stats", h.AdminStats)
	}

	// WebSocket feed (token in query)
	r.GET("/ws", h.WS(hub))
}
