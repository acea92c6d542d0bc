package model

import (
	"time"
)

// MaintenanceStatus is the derived urgency of a maintenance item
type MaintenanceStatus string

const (
	MaintenanceOK        MaintenanceStatus = "ok"
	MaintenanceUpcoming  MaintenanceStatus = "upcoming"
	MaintenanceUrgent    MaintenanceStatus = "urgent"
	MaintenanceOverdue   MaintenanceStatus = "overdue"
	MaintenanceCompleted MaintenanceStatus = "completed"
)

// Maintenance is a recurring service item of a vehicle. Status is always derived.
type Maintenance struct {
	ID           string                  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VehicleID    string                  `json:"vehicle_id" gorm:"column:vehicle_id;type:varchar(36);not null"`
	Name         string                  `json:"name" gorm:"type:varchar(100);not null"`
	IntervalKm   *float64                `json:"interval_km,omitempty" gorm:"column:interval_km"`
	IntervalDays *int                    `json:"interval_days,omitempty" gorm:"column:interval_days"`
	LastKm       *float64                `json:"last_km,omitempty" gorm:"column:last_km"`
	LastDate     *time.Time              `json:"last_date,omitempty" gorm:"column:last_date"`
	NextKm       *float64                `json:"next_km,omitempty" gorm:"column:next_km"`
	NextDate     *time.Time              `json:"next_date,omitempty" gorm:"column:next_date"`
	Status       MaintenanceStatus       `json:"status" gorm:"type:varchar(20);not null"`
	Active       bool                    `json:"active" gorm:"not null;default:true"`
	History      []MaintenanceCompletion `json:"history" gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time               `json:"created_at" gorm:"not null"`
}

func (Maintenance) TableName() string {
	return "maintenances"
}

func (m Maintenance) GetID() string { return m.ID }

// MaintenanceCompletion records one service done on the item
type MaintenanceCompletion struct {
	Date   time.Time `json:"date"`
	Km     float64   `json:"km"`
	CostID *string   `json:"cost_id,omitempty"`
	Notes  string    `json:"notes,omitempty"`
}

// CreateMaintenanceRequest 创建保养项请求
type CreateMaintenanceRequest struct {
	VehicleID    string   `json:"vehicle_id" binding:"required"`
	Name         string   `json:"name" binding:"required"`
	IntervalKm   *float64 `json:"interval_km"`
	IntervalDays *int     `json:"interval_days"`
	LastKm       *float64 `json:"last_km"`
	LastDate     string   `json:"last_date"` // YYYY-MM-DD
}

// CompleteMaintenanceRequest 完成保养请求
type CompleteMaintenanceRequest struct {
	Km     float64 `json:"km"`
	CostID *string `json:"cost_id"`
	Notes  string  `json:"notes"`
}
