package delivery

import (
	"errors"
	"net/http"

	watchusecase "inboxpilot-backend/internal/watch/usecase"

	"github.com/gin-gonic/gin"
)

// WatchHandler exposes the push subscription lifecycle for operators
type WatchHandler struct {
	watchUsecase *watchusecase.WatchUsecase
}

func NewWatchHandler(watchUsecase *watchusecase.WatchUsecase) *WatchHandler {
	return &WatchHandler{watchUsecase: watchUsecase}
}

// Ensure establishes or refreshes the mailbox watch for one account
func (h *WatchHandler) Ensure(c *gin.Context) {
	accountID := c.Param("id")

	if err := h.watchUsecase.EnsureWatch(c.Request.Context(), accountID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, watchusecase.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "watching"})
}

// Stop tears down the mailbox watch for one account
func (h *WatchHandler) Stop(c *gin.Context) {
	accountID := c.Param("id")

	if err := h.watchUsecase.StopWatch(c.Request.Context(), accountID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, watchusecase.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
