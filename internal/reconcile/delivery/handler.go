package delivery

import (
	"net/http"

	reconcileusecase "inboxpilot-backend/internal/reconcile/usecase"

	"github.com/gin-gonic/gin"
)

// ReconcileHandler exposes the two trigger surfaces for the anti-entropy
// engine: the cron-style full run and the user-facing single-account sync
type ReconcileHandler struct {
	orchestrator *reconcileusecase.Orchestrator
}

func NewReconcileHandler(orchestrator *reconcileusecase.Orchestrator) *ReconcileHandler {
	return &ReconcileHandler{orchestrator: orchestrator}
}

// RunAll triggers a full reconciliation run. The run itself never fails: it
// always responds 200 with aggregate metrics, error count included.
func (h *ReconcileHandler) RunAll(c *gin.Context) {
	metrics := h.orchestrator.RunAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":  "completed",
		"metrics": metrics,
	})
}

// RunForAccount triggers reconciliation for one account. Unlike the full run,
// the per-account error is surfaced to the caller directly.
func (h *ReconcileHandler) RunForAccount(c *gin.Context) {
	accountID := c.Param("id")

	result := h.orchestrator.RunForAccount(c.Request.Context(), accountID)
	if result.Err != "" {
		status := http.StatusInternalServerError
		if result.Err == "Account not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": result.Err})
		return
	}

	c.JSON(http.StatusOK, result)
}
