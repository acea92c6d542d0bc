package model

import (
	"time"
)

// CostType is the recurrence rule of a cost template
type CostType string

const (
	CostTypeUnique       CostType = "unique"
	CostTypeFixedMonthly CostType = "fixed_monthly"
	CostTypeInstallments CostType = "installments"
	CostTypeKmBased      CostType = "km_based"
	CostTypeCustomDays   CostType = "custom_days"
)

// Valid reports whether t is a known cost type
func (t CostType) Valid() bool {
	switch t {
	case CostTypeUnique, CostTypeFixedMonthly, CostTypeInstallments, CostTypeKmBased, CostTypeCustomDays:
		return true
	}
	return false
}

// CostConfig is a cost template that produces one or more ledger rows.
// km_based configs always carry a vehicle reference.
type CostConfig struct {
	ID                string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID        string     `json:"category_id" gorm:"column:category_id;type:varchar(36);not null"`
	CategoryName      string     `json:"category_name" gorm:"column:category_name;type:varchar(80)"`
	VehicleID         *string    `json:"vehicle_id,omitempty" gorm:"column:vehicle_id;type:varchar(36)"`
	Type              CostType   `json:"type" gorm:"type:varchar(20);not null"`
	Description       string     `json:"description" gorm:"type:text"`
	Value             float64    `json:"value" gorm:"not null"`
	StartDate         time.Time  `json:"start_date" gorm:"column:start_date;not null"`
	Active            bool       `json:"active" gorm:"not null;default:true"`
	InstallmentsTotal *int       `json:"installments_total,omitempty" gorm:"column:installments_total"`
	InstallmentsPaid  *int       `json:"installments_paid,omitempty" gorm:"column:installments_paid"`
	IntervalKm        *float64   `json:"interval_km,omitempty" gorm:"column:interval_km"`
	LastKm            *float64   `json:"last_km,omitempty" gorm:"column:last_km"`
	IntervalDays      *int       `json:"interval_days,omitempty" gorm:"column:interval_days"`
	LastDate          *time.Time `json:"last_date,omitempty" gorm:"column:last_date"`
	CreatedAt         time.Time  `json:"created_at" gorm:"not null"`
}

func (CostConfig) TableName() string {
	return "cost_configs"
}

func (c CostConfig) GetID() string { return c.ID }

// Cost is an append-only ledger entry. The category is a snapshot taken at creation.
type Cost struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID   string    `json:"category_id" gorm:"column:category_id;type:varchar(36);not null"`
	CategoryName string    `json:"category_name" gorm:"column:category_name;type:varchar(80);not null"`
	VehicleID    *string   `json:"vehicle_id,omitempty" gorm:"column:vehicle_id;type:varchar(36)"`
	ConfigID     *string   `json:"config_id,omitempty" gorm:"column:config_id;type:varchar(36)"`
	Description  string    `json:"description" gorm:"type:text"`
	Value        float64   `json:"value" gorm:"not null"`
	Date         time.Time `json:"date" gorm:"not null"`
	TypeSnapshot CostType  `json:"type_snapshot" gorm:"column:type_snapshot;type:varchar(20);not null"`
	IsFixed      bool      `json:"is_fixed" gorm:"column:is_fixed;not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
}

func (Cost) TableName() string {
	return "costs"
}

func (c Cost) GetID() string { return c.ID }

// CreateCostRequest is the body of a cost template submission
type CreateCostRequest struct {
	CategoryID   string   `json:"category_id" binding:"required"`
	VehicleID    *string  `json:"vehicle_id"`
	Type         CostType `json:"type" binding:"required"`
	Description  string   `json:"description"`
	Value        float64  `json:"value" binding:"required,gt=0"`
	StartDate    string   `json:"start_date"` // YYYY-MM-DD, defaults to today
	Installments int      `json:"installments"`
	IntervalKm   float64  `json:"interval_km"`
	IntervalDays int      `json:"interval_days"`
}

// MonthlyCostResponse 月度成本响应
type MonthlyCostResponse struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Costs []Cost  `json:"costs,omitempty"`
}
