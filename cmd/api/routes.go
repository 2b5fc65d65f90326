package main

import (
	"consult-platform/internal/httpapi"
	"consult-platform/internal/rbac"
	"consult-platform/internal/video"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeOptions struct {
	roomEvents video.StatusWebhookHandler
	redis      *redis.Client
	startLimit int
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, opts routeOptions) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	r.POST("/webhooks/video/status", opts.roomEvents.HandleRoomStatus)

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	v1.POST("/auth/login", h.Login)

	// protected API group
	api := v1.Group("")
	api.Use(authMW)
	{
		api.GET("/me", h.Me)

		// COIN routes
		coinsGroup := api.Group("/coins")
		coinsGroup.Use(rbac.RequireAnyRole(rbac.RoleMember, rbac.RoleProvider))
		{
			coinsGroup.GET("/balance", h.GetBalance)
			coinsGroup.GET("/packages", h.ListPackages)
			coinsGroup.POST("/purchase", h.PurchaseCoins)
			coinsGroup.GET("/transactions", h.ListTransactions)
		}

		// LISTING routes
		api.GET("/listings/:listing_id", h.GetListing)

		// SESSION routes
		sessionsGroup := api.Group("/sessions")
		sessionsGroup.Use(rbac.RequireAnyRole(rbac.RoleMember, rbac.RoleProvider))
		{
			sessionsGroup.POST("",
				rbac.RequireAnyRole(rbac.RoleMember),
				httpapi.LimitCallStarts(opts.redis, opts.startLimit),
				h.CreateSession,
			)
			sessionsGroup.GET("/:session_id", h.GetSession)
			sessionsGroup.GET("/:session_id/time-remaining", h.TimeRemaining)
			sessionsGroup.POST("/:session_id/respond", h.RespondSession)
			sessionsGroup.POST("/:session_id/extend", h.ExtendSession)
			sessionsGroup.POST("/:session_id/complete", h.CompleteSession)
			sessionsGroup.POST("/:session_id/rate", h.RateSession)
		}

		// HISTORY routes
		historyGroup := api.Group("/history")
		historyGroup.Use(rbac.RequireAnyRole(rbac.RoleMember, rbac.RoleProvider))
		{
			historyGroup.GET("", h.ListHistory)
			historyGroup.GET("/summary", h.HistorySummary)
		}

		// ADMIN routes
		// Only admin/super_admin can access admin endpoints by default.
		// Hidden support role is intentionally NOT included unless explicitly desired.
		admin := api.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/ping", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})
			admin.POST("/coins/grant", h.AdminGrantCoins)
			admin.POST("/sessions/:session_id/cancel", h.AdminCancelSession)
		}
	}
}
