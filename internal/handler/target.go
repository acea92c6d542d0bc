package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/model"
	"driverops/internal/service"
)

func (h *Handler) registerTargetRoutes(r *gin.RouterGroup) {
	targets := r.Group("/targets")
	{
		targets.GET("/daily", h.GetDailyTarget)
		targets.GET("/account", h.GetDailyAccount)
		targets.GET("/progress", h.GetTargetProgress)
		targets.GET("/monthly-cost", h.GetMonthlyCost)
	}

	settings := r.Group("/settings")
	{
		settings.GET("/schedule", h.GetSchedule)
		settings.PUT("/schedule", h.UpdateSchedule)
		settings.GET("/profit", h.GetProfit)
		settings.PUT("/profit", h.UpdateProfit)
	}
}

// GetDailyTarget 获取某日收入目标
func (h *Handler) GetDailyTarget(c *gin.Context) {
	day, err := h.svc.Clock.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Targets.DailyTarget(day))
}

// GetDailyAccount splits today's net earnings into cost recovery and profit
func (h *Handler) GetDailyAccount(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Targets.DailyAccount(h.svc.Clock.Now()))
}

// GetTargetProgress 获取今日目标进度
func (h *Handler) GetTargetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Targets.TargetProgress(h.svc.Clock.Now()))
}

// GetMonthlyCost 获取月度成本合计
func (h *Handler) GetMonthlyCost(c *gin.Context) {
	year, month, err := h.svc.Clock.ParseMonth(c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"month":         fmt.Sprintf("%04d-%02d", year, int(month)),
		"total":         h.svc.Costs.MonthlyCostTotal(year, month),
		"cost_per_hour": h.svc.Targets.CostPerHour(year, month),
	})
}

// GetSchedule 获取工作日程
func (h *Handler) GetSchedule(c *gin.Context) {
	schedule := h.svc.Settings.Schedule()
	c.JSON(http.StatusOK, gin.H{
		"schedule": schedule,
		"summary":  service.ScheduleSummary(schedule),
	})
}

// UpdateSchedule 更新工作日程
func (h *Handler) UpdateSchedule(c *gin.Context) {
	var req model.UpdateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.svc.Settings.UpdateSchedule(c.Request.Context(), req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule": schedule,
		"summary":  service.ScheduleSummary(*schedule),
	})
}

// GetProfit 获取利润设置
func (h *Handler) GetProfit(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Settings.Profit())
}

// UpdateProfit 更新利润设置
func (h *Handler) UpdateProfit(c *gin.Context) {
	var req model.UpdateProfitRequest
	if !bindJSON(c, &req) {
		return
	}
	profit, err := h.svc.Settings.UpdateProfit(c.Request.Context(), req.Enabled, req.Percentage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profit)
}
