package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/model"
)

func (h *Handler) registerMaintenanceRoutes(r *gin.RouterGroup) {
	m := r.Group("/maintenances")
	{
		m.GET("", h.ListMaintenances)
		m.POST("", h.CreateMaintenance)
		m.POST("/:id/complete", h.CompleteMaintenance)
		m.DELETE("/:id", h.DeleteMaintenance)
	}
}

// ListMaintenances 获取保养项目，可按 vehicle_id 过滤
func (h *Handler) ListMaintenances(c *gin.Context) {
	items := h.svc.Maintenance.List(c.Query("vehicle_id"))
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": len(items),
	})
}

// CreateMaintenance 创建保养项目
func (h *Handler) CreateMaintenance(c *gin.Context) {
	var req model.CreateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := h.svc.Maintenance.ParseMaintenanceRequest(req)
	if err != nil {
		respondError(c, err)
		return
	}
	item, err := h.svc.Maintenance.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// CompleteMaintenance records a service and schedules the next one
func (h *Handler) CompleteMaintenance(c *gin.Context) {
	var req model.CompleteMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Maintenance.Complete(c.Request.Context(), c.Param("id"), req.Km, req.CostID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteMaintenance 停用保养项目
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	if err := h.svc.Maintenance.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "maintenance deactivated"})
}
