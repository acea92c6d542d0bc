package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/model"
	"driverops/internal/service"
)

func (h *Handler) registerEarningsRoutes(r *gin.RouterGroup) {
	earnings := r.Group("/earnings")
	{
		earnings.GET("", h.ListEarnings)
		earnings.POST("", h.CreateEarnings)
		earnings.DELETE("/:id", h.DeleteEarnings)
	}
}

// ListEarnings returns a day's records (?date=YYYY-MM-DD, default today)
func (h *Handler) ListEarnings(c *gin.Context) {
	day, err := h.svc.Clock.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	records := h.svc.Earnings.ForDate(day)
	c.JSON(http.StatusOK, gin.H{
		"date":         day.Format(model.DateLayout),
		"data":         records,
		"net_earnings": h.svc.Earnings.NetForDay(day),
	})
}

// CreateEarnings 录入收入
func (h *Handler) CreateEarnings(c *gin.Context) {
	var req model.CreateEarningsRequest
	if !bindJSON(c, &req) {
		return
	}
	day, err := h.svc.Clock.ParseDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	record, err := h.svc.Earnings.Create(c.Request.Context(), service.EarningsInput{
		Date:          day,
		AppID:         req.AppID,
		GrossEarnings: req.GrossEarnings,
		VariableCosts: req.VariableCosts,
		HoursWorked:   req.HoursWorked,
		KmDriven:      req.KmDriven,
		VehicleID:     req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// DeleteEarnings 删除收入记录
func (h *Handler) DeleteEarnings(c *gin.Context) {
	if err := h.svc.Earnings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "earnings deleted"})
}
