package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asset-uploader/internal/models"
)

const readinessTimeout = 3 * time.Second

// HealthHandler godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Accept      json
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func HealthHandler(c *gin.Context) {
	response := models.HealthResponse{
		Status: "ok",
	}
	c.JSON(http.StatusOK, response)
}

// DependencyCheck is one named dependency probed by the readiness endpoint.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReadinessHandler godoc
// @Summary     Readiness check
// @Description Probes the record store and the object store
// @Tags        health
// @Produce     json
// @Success     200 {object} models.ReadinessResponse
// @Failure     503 {object} models.ReadinessResponse
// @Router      /ready [get]
func ReadinessHandler(checks ...DependencyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		for _, dep := range checks {
			if err := dep.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, models.ReadinessResponse{
					Status: "unavailable",
					Failed: dep.Name,
					Error:  err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, models.ReadinessResponse{Status: "ready"})
	}
}
