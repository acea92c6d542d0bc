package model

import (
	"time"
)

// VehicleType distinguishes motorcycles from cars
type VehicleType string

const (
	VehicleTypeMoto VehicleType = "moto"
	VehicleTypeCar  VehicleType = "car"
)

// Valid reports whether t is a known vehicle type
func (t VehicleType) Valid() bool {
	return t == VehicleTypeMoto || t == VehicleTypeCar
}

// Vehicle is a driver's vehicle with its odometer state
type Vehicle struct {
	ID           string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type         VehicleType `json:"type" gorm:"type:varchar(10);not null"`
	Brand        string      `json:"brand" gorm:"type:varchar(50)"`
	Model        string      `json:"model" gorm:"type:varchar(50)"`
	Year         int         `json:"year"`
	Plate        string      `json:"plate" gorm:"type:varchar(20)"`
	CurrentKm    float64     `json:"current_km" gorm:"column:current_km;not null;default:0"`
	FuelEconomy  *float64    `json:"fuel_economy,omitempty" gorm:"column:fuel_economy"` // km per litre
	Active       bool        `json:"active" gorm:"not null;default:true"`
	LastKmUpdate *time.Time  `json:"last_km_update,omitempty" gorm:"column:last_km_update"`
	CreatedAt    time.Time   `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"not null"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

func (v Vehicle) GetID() string { return v.ID }

// Category groups costs; names are unique case-insensitively among active categories
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(80);not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Category) TableName() string {
	return "categories"
}

func (c Category) GetID() string { return c.ID }

// App is a revenue source (ride-hailing or delivery platform)
type App struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(80);not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (App) TableName() string {
	return "apps"
}

func (a App) GetID() string { return a.ID }

// CreateVehicleRequest 创建车辆请求
type CreateVehicleRequest struct {
	Type        VehicleType `json:"type" binding:"required"`
	Brand       string      `json:"brand"`
	Model       string      `json:"model"`
	Year        int         `json:"year"`
	Plate       string      `json:"plate"`
	CurrentKm   float64     `json:"current_km"`
	FuelEconomy *float64    `json:"fuel_economy"`
}

// UpdateVehicleRequest carries the descriptive fields of a vehicle; the odometer has its own endpoint
type UpdateVehicleRequest struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	Plate       string   `json:"plate"`
	FuelEconomy *float64 `json:"fuel_economy"`
	Active      *bool    `json:"active"`
}

// UpdateKmRequest sets the odometer reading
type UpdateKmRequest struct {
	CurrentKm float64 `json:"current_km"`
}
