package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/model"
)

func (h *Handler) registerVehicleRoutes(r *gin.RouterGroup) {
	vehicles := r.Group("/vehicles")
	{
		vehicles.GET("", h.ListVehicles)
		vehicles.POST("", h.CreateVehicle)
		vehicles.PUT("/:id", h.UpdateVehicle)
		vehicles.PUT("/:id/km", h.UpdateVehicleKm)
		vehicles.DELETE("/:id", h.DeleteVehicle)
	}

	// 成本分类
	r.GET("/categories", h.ListCategories)
	r.POST("/categories", h.CreateCategory)
	r.DELETE("/categories/:id", h.DeleteCategory)

	// 平台
	r.GET("/apps", h.ListApps)
	r.POST("/apps", h.CreateApp)
	r.DELETE("/apps/:id", h.DeleteApp)
}

// ListVehicles 获取车辆列表
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles := h.svc.Vehicles.List()
	c.JSON(http.StatusOK, gin.H{
		"data":  vehicles,
		"total": len(vehicles),
	})
}

// CreateVehicle 创建车辆
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req model.CreateVehicleRequest
	if !bindJSON(c, &req) {
		return
	}
	vehicle, err := h.svc.Vehicles.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

// UpdateVehicle 更新车辆
func (h *Handler) UpdateVehicle(c *gin.Context) {
	var req model.UpdateVehicleRequest
	if !bindJSON(c, &req) {
		return
	}
	vehicle, err := h.svc.Vehicles.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// UpdateVehicleKm sets the odometer; readings below the current value are rejected
func (h *Handler) UpdateVehicleKm(c *gin.Context) {
	var req model.UpdateKmRequest
	if !bindJSON(c, &req) {
		return
	}
	vehicle, err := h.svc.Vehicles.SetKm(c.Request.Context(), c.Param("id"), req.CurrentKm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// DeleteVehicle 停用车辆
func (h *Handler) DeleteVehicle(c *gin.Context) {
	if err := h.svc.Vehicles.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vehicle deactivated"})
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListCategories 获取成本分类
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Catalog.Categories()})
}

// CreateCategory 创建成本分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.svc.Catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// DeleteCategory 停用成本分类
func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.svc.Catalog.DeactivateCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deactivated"})
}

// ListApps 获取平台列表
func (h *Handler) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Catalog.Apps()})
}

// CreateApp 创建平台
func (h *Handler) CreateApp(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.svc.Catalog.CreateApp(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// DeleteApp 停用平台
func (h *Handler) DeleteApp(c *gin.Context) {
	if err := h.svc.Catalog.DeactivateApp(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "app deactivated"})
}
