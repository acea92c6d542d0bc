package model

import (
	"time"
)

// VariableCost is an ad-hoc cost attached to an earnings record
type VariableCost struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

// EarningsRecord is one day's takings from one app.
// NetEarnings = GrossEarnings - TotalVariableCosts.
type EarningsRecord struct {
	ID                 string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Date               time.Time      `json:"date" gorm:"not null"`
	AppID              string         `json:"app_id" gorm:"column:app_id;type:varchar(36);not null"`
	AppName            string         `json:"app_name" gorm:"column:app_name;type:varchar(80);not null"`
	GrossEarnings      float64        `json:"gross_earnings" gorm:"column:gross_earnings;not null"`
	VariableCosts      []VariableCost `json:"variable_costs" gorm:"column:variable_costs;type:jsonb;serializer:json"`
	TotalVariableCosts float64        `json:"total_variable_costs" gorm:"column:total_variable_costs;not null"`
	NetEarnings        float64        `json:"net_earnings" gorm:"column:net_earnings;not null"`
	HoursWorked        *float64       `json:"hours_worked,omitempty" gorm:"column:hours_worked"`
	KmDriven           *float64       `json:"km_driven,omitempty" gorm:"column:km_driven"`
	VehicleID          *string        `json:"vehicle_id,omitempty" gorm:"column:vehicle_id;type:varchar(36)"`
	SessionID          *string        `json:"session_id,omitempty" gorm:"column:session_id;type:varchar(36)"`
	CreatedAt          time.Time      `json:"created_at" gorm:"not null"`
}

func (EarningsRecord) TableName() string {
	return "earnings"
}

func (e EarningsRecord) GetID() string { return e.ID }

// CreateEarningsRequest 创建收入记录请求
type CreateEarningsRequest struct {
	Date          string         `json:"date"` // YYYY-MM-DD, defaults to today
	AppID         string         `json:"app_id" binding:"required"`
	GrossEarnings float64        `json:"gross_earnings"`
	VariableCosts []VariableCost `json:"variable_costs"`
	HoursWorked   *float64       `json:"hours_worked"`
	KmDriven      *float64       `json:"km_driven"`
	VehicleID     *string        `json:"vehicle_id"`
}
