package model

import (
	"time"
)

// WeeksPerMonth extrapolates weekly schedule figures to a month
const WeeksPerMonth = 4.33

// SettingsID is the id of the singleton settings rows
const SettingsID = "default"

// WorkDay is one weekday of the schedule
type WorkDay struct {
	Enabled bool    `json:"enabled"`
	Hours   float64 `json:"hours"`
}

// WorkSchedule holds seven work days indexed by time.Weekday (Sunday first)
type WorkSchedule struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Days      [7]WorkDay `json:"days" gorm:"type:jsonb;serializer:json"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"not null"`
}

func (WorkSchedule) TableName() string {
	return "work_schedules"
}

func (w WorkSchedule) GetID() string { return w.ID }

// Day returns the schedule entry for a weekday
func (w WorkSchedule) Day(d time.Weekday) WorkDay {
	return w.Days[int(d)]
}

// ScheduleSummary is derived from a WorkSchedule
type ScheduleSummary struct {
	DaysPerWeek   int     `json:"days_per_week"`
	HoursPerWeek  float64 `json:"hours_per_week"`
	DaysPerMonth  float64 `json:"days_per_month"`
	HoursPerMonth float64 `json:"hours_per_month"`
}

// ProfitSettings sets the profit premium applied over the daily cost target
type ProfitSettings struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Enabled    bool      `json:"enabled" gorm:"not null;default:false"`
	Percentage float64   `json:"percentage" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (ProfitSettings) TableName() string {
	return "profit_settings"
}

func (p ProfitSettings) GetID() string { return p.ID }

// DailyTarget is the earnings goal for one day
type DailyTarget struct {
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	CostPerHour  float64 `json:"cost_per_hour"`
	CostTarget   float64 `json:"cost_target"`
	ProfitTarget float64 `json:"profit_target"`
	Total        float64 `json:"total"`
}

// DailyAccount splits today's net earnings between cost recovery and profit
type DailyAccount struct {
	Date          string  `json:"date"`
	NetEarnings   float64 `json:"net_earnings"`
	CostTarget    float64 `json:"cost_target"`
	CostRecovered float64 `json:"cost_recovered"`
	CostMet       bool    `json:"cost_met"`
	ProfitTarget  float64 `json:"profit_target"`
	Profit        float64 `json:"profit"`
	ProfitMet     bool    `json:"profit_met"`
}

// TargetProgress is today's progress toward the daily target
type TargetProgress struct {
	Date       string  `json:"date"`
	Target     float64 `json:"target"`
	Earned     float64 `json:"earned"`
	Percentage float64 `json:"percentage"`
	Achieved   bool    `json:"achieved"`
}

// UpdateProfitRequest 更新利润设置请求
type UpdateProfitRequest struct {
	Enabled    bool    `json:"enabled"`
	Percentage float64 `json:"percentage"`
}

// UpdateScheduleRequest 更新工作日程请求
type UpdateScheduleRequest struct {
	Days [7]WorkDay `json:"days"`
}
