package handlers

import (
	"net/http"
	"time"

	"dashboard-gateway/internal/build"

	"github.com/gin-gonic/gin"
)

// HealthHandler містить handlers для health check
type HealthHandler struct {
	service string
}

// NewHealthHandler створює новий HealthHandler
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health повертає статус сервісу і коміт збірки
// @Summary Health Check
// @Description Повертає статус сервісу і інформацію про збірку
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/healthcheck [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   h.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   build.Version,
		"git": gin.H{
			"commit_sha": build.CommitSHA(),
		},
	})
}
