package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/model"
	"driverops/internal/service"
)

func (h *Handler) registerCostRoutes(r *gin.RouterGroup) {
	costs := r.Group("/costs")
	{
		costs.GET("", h.ListCosts)
		costs.POST("", h.CreateCost)
		costs.POST("/sweep", h.SweepCosts)
		costs.DELETE("/:id", h.DeleteCost)
	}
	r.GET("/cost-configs", h.ListCostConfigs)
	r.DELETE("/cost-configs/:id", h.DeleteCostConfig)
}

// ListCosts returns the ledger rows of a month (?month=YYYY-MM, default current)
func (h *Handler) ListCosts(c *gin.Context) {
	year, month, err := h.svc.Clock.ParseMonth(c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MonthlyCostResponse{
		Month: fmt.Sprintf("%04d-%02d", year, int(month)),
		Total: h.svc.Costs.MonthlyCostTotal(year, month),
		Costs: h.svc.Costs.CostsForMonth(year, month),
	})
}

// CreateCost expands a cost template into its ledger rows
func (h *Handler) CreateCost(c *gin.Context) {
	var req model.CreateCostRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := h.svc.Clock.ParseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.svc.Costs.CreateFromTemplate(c.Request.Context(), service.CostTemplate{
		CategoryID:   req.CategoryID,
		VehicleID:    req.VehicleID,
		Type:         req.Type,
		Description:  req.Description,
		Value:        req.Value,
		StartDate:    start,
		Installments: req.Installments,
		IntervalKm:   req.IntervalKm,
		IntervalDays: req.IntervalDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteCost 删除成本记录
func (h *Handler) DeleteCost(c *gin.Context) {
	if err := h.svc.Costs.DeleteCost(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cost deleted"})
}

// SweepCosts runs the fixed-monthly sweep now instead of waiting for the scheduler
func (h *Handler) SweepCosts(c *gin.Context) {
	generated, err := h.svc.Costs.Sweep(c.Request.Context(), h.svc.Clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": generated})
}

// ListCostConfigs 获取周期成本配置
func (h *Handler) ListCostConfigs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Costs.Configs()})
}

// DeleteCostConfig stops a recurring cost; rows already generated stay in the ledger
func (h *Handler) DeleteCostConfig(c *gin.Context) {
	if err := h.svc.Costs.DeactivateConfig(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cost config deactivated"})
}
