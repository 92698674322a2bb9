package api

import (
	reconcileDelivery "inboxpilot-backend/internal/reconcile/delivery"
	reconcileusecase "inboxpilot-backend/internal/reconcile/usecase"
	watchDelivery "inboxpilot-backend/internal/watch/delivery"
	watchusecase "inboxpilot-backend/internal/watch/usecase"
	"inboxpilot-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	router *gin.Engine
}

// NewHandler wires the HTTP trigger surfaces around the reconciliation
// orchestrator
func NewHandler(orchestrator *reconcileusecase.Orchestrator, watchUsecase *watchusecase.WatchUsecase, cfg *config.Config) *Handler {
	router := gin.Default()

	reconcileHandler := reconcileDelivery.NewReconcileHandler(orchestrator)
	watchHandler := watchDelivery.NewWatchHandler(watchUsecase)
	SetupRoutes(router, reconcileHandler, watchHandler, cfg)

	return &Handler{router: router}
}

// Start runs the HTTP server on the given address
func (h *Handler) Start(addr string) error {
	return h.router.Run(addr)
}
