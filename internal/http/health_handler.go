package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthHandler responde las sondas de vida y disponibilidad.
type HealthHandler struct {
	logger *zap.Logger
	ping   func(ctx context.Context) error
}

func NewHealthHandler(logger *zap.Logger, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{logger: logger, ping: ping}
}

// Root maneja GET /.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notes-otp"})
}

// Ready maneja GET /healthz verificando la base de datos.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ping == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
