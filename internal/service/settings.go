package service

import (
	"context"

	"driverops/internal/model"
	"driverops/internal/state"
)

// SettingsService manages the work schedule and profit settings
type SettingsService struct {
	state *state.Store
	clock Clock
}

// NewSettingsService creates a new settings service
func NewSettingsService(st *state.Store, clock Clock) *SettingsService {
	return &SettingsService{state: st, clock: clock}
}

// Schedule returns the weekly schedule
func (s *SettingsService) Schedule() model.WorkSchedule {
	return s.state.Schedule()
}

// UpdateSchedule replaces the seven work days
func (s *SettingsService) UpdateSchedule(ctx context.Context, days [7]model.WorkDay) (*model.WorkSchedule, error) {
	for i, d := range days {
		if d.Hours < 0 || d.Hours > 24 {
			return nil, invalidf("hours of day %d must be between 0 and 24", i)
		}
		if !d.Enabled {
			days[i].Hours = 0
		}
	}

	schedule := model.WorkSchedule{ID: model.SettingsID, Days: days, UpdatedAt: s.clock.Now()}
	if err := s.state.Apply(ctx, func(tx *state.Tx) error {
		tx.Update(&schedule, "days", "updated_at")
		return nil
	}); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Profit returns the profit settings
func (s *SettingsService) Profit() model.ProfitSettings {
	return s.state.Profit()
}

// UpdateProfit changes the profit premium
func (s *SettingsService) UpdateProfit(ctx context.Context, enabled bool, percentage float64) (*model.ProfitSettings, error) {
	if percentage < 0 {
		return nil, invalidf("percentage must not be negative")
	}

	profit := model.ProfitSettings{ID: model.SettingsID, Enabled: enabled, Percentage: percentage, UpdatedAt: s.clock.Now()}
	if err := s.state.Apply(ctx, func(tx *state.Tx) error {
		tx.Update(&profit, "enabled", "percentage", "updated_at")
		return nil
	}); err != nil {
		return nil, err
	}
	return &profit, nil
}

// ScheduleSummary derives weekly totals and extrapolates them with WeeksPerMonth
func ScheduleSummary(w model.WorkSchedule) model.ScheduleSummary {
	var (
		days  int
		hours []float64
	)
	for _, d := range w.Days {
		if d.Enabled && d.Hours > 0 {
			days++
			hours = append(hours, d.Hours)
		}
	}
	perWeek := sum(hours...)
	return model.ScheduleSummary{
		DaysPerWeek:   days,
		HoursPerWeek:  perWeek,
		DaysPerMonth:  mul(float64(days), model.WeeksPerMonth),
		HoursPerMonth: mul(perWeek, model.WeeksPerMonth),
	}
}
