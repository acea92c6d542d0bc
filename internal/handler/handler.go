// Package handler exposes the ledger, tracker and target engines over HTTP
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/service"
)

// Services bundles the engines the handlers call into
type Services struct {
	Clock       service.Clock
	Auth        *service.AuthService
	Vehicles    *service.VehicleService
	Catalog     *service.CatalogService
	Costs       *service.CostService
	Maintenance *service.MaintenanceService
	Earnings    *service.EarningsService
	Tracker     *service.TrackerService
	Settings    *service.SettingsService
	Targets     *service.TargetService
	Snapshot    *service.SnapshotService
	Export      *service.ExportService
}

// Handler serves the /api/v1 routes
type Handler struct {
	svc Services
	hub *LiveHub
}

// New creates a handler; hub may be nil when the websocket feed is disabled
func New(svc Services, hub *LiveHub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// RegisterRoutes 注册需要认证的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	h.registerVehicleRoutes(r)
	h.registerCostRoutes(r)
	h.registerMaintenanceRoutes(r)
	h.registerTrackerRoutes(r)
	h.registerEarningsRoutes(r)
	h.registerTargetRoutes(r)
	h.registerBackupRoutes(r)
}

// respondError maps engine errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body and answers 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
