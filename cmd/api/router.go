package api

import (
	"net/http"
	"time"

	authdelivery "inboxpilot-backend/internal/auth/delivery"
	reconcileDelivery "inboxpilot-backend/internal/reconcile/delivery"
	watchDelivery "inboxpilot-backend/internal/watch/delivery"
	"inboxpilot-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func SetupRoutes(r *gin.Engine, reconcileHandler *reconcileDelivery.ReconcileHandler, watchHandler *watchDelivery.WatchHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Full reconciliation run: invoked by the scheduler or an operator,
		// guarded by the internal key
		api.POST("/reconcile/run",
			authdelivery.InternalKeyMiddleware(cfg.ReconcileAPIKey),
			reconcileHandler.RunAll)

		// Push subscription lifecycle: operator-only. Establishing a watch also
		// seeds the history watermark for brand-new accounts.
		api.POST("/accounts/:id/watch",
			authdelivery.InternalKeyMiddleware(cfg.ReconcileAPIKey),
			watchHandler.Ensure)
		api.DELETE("/accounts/:id/watch",
			authdelivery.InternalKeyMiddleware(cfg.ReconcileAPIKey),
			watchHandler.Stop)

		// Manual single-account sync: authenticated and rate limited, one
		// request per 30s per user with a small burst
		accounts := api.Group("/accounts")
		accounts.Use(authdelivery.AuthMiddleware(cfg.JWTSecret))
		{
			accounts.POST("/:id/sync",
				authdelivery.RateLimitMiddleware(rate.Every(30*time.Second), 2),
				reconcileHandler.RunForAccount)
		}
	}
}
