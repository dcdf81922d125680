package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/apex-career/backend/internal/config"
	"github.com/apex-career/backend/internal/logger"
	"github.com/apex-career/backend/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	app config.AppConfig
	db  Pinger
}

func NewHealthHandler(app config.AppConfig, db Pinger) *HealthHandler {
	return &HealthHandler{app: app, db: db}
}

// Root godoc
// @Summary Service banner
// @Tags service
// @Produce json
// @Success 200 {object} model.RootResponse
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Message: "Welcome to Apex Career Navigator API",
		Version: h.app.Version,
		Docs:    h.app.APIPrefix + "/openapi.json",
	})
}

// Health godoc
// @Summary Health check
// @Tags service
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Failure 503 {object} model.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logger.From(ctx).Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, model.HealthResponse{Status: "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, model.HealthResponse{Status: "healthy"})
}
