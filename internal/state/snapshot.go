package state

import (
	"context"
	"time"

	"driverops/internal/model"
)

// Snapshot is the complete application state as one document
type Snapshot struct {
	SchemaVersion  int                      `json:"schema_version"`
	ExportedAt     time.Time                `json:"exported_at"`
	Categories     []model.Category         `json:"categories"`
	Apps           []model.App              `json:"apps"`
	Vehicles       []model.Vehicle          `json:"vehicles"`
	CostConfigs    []model.CostConfig       `json:"cost_configs"`
	Costs          []model.Cost             `json:"costs"`
	Maintenances   []model.Maintenance      `json:"maintenances"`
	Sessions       []model.KMTrackerSession `json:"tracker_sessions"`
	Earnings       []model.EarningsRecord   `json:"earnings"`
	WorkSchedule   model.WorkSchedule       `json:"work_schedule"`
	ProfitSettings model.ProfitSettings     `json:"profit_settings"`
}

// Snapshot copies the current state
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Categories:     s.Categories(),
		Apps:           s.Apps(),
		Vehicles:       s.Vehicles(),
		CostConfigs:    s.CostConfigs(),
		Costs:          s.Costs(),
		Maintenances:   s.Maintenances(),
		Sessions:       s.Sessions(),
		Earnings:       s.Earnings(),
		WorkSchedule:   s.Schedule(),
		ProfitSettings: s.Profit(),
	}
}

// Replace swaps the whole state for snap in one atomic write.
// Rows are removed children first and inserted parents first.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	return s.Apply(ctx, func(tx *Tx) error {
		current := s.Snapshot()
		for i := range current.Earnings {
			tx.Delete(&current.Earnings[i])
		}
		for i := range current.Sessions {
			tx.Delete(&current.Sessions[i])
		}
		for i := range current.Maintenances {
			tx.Delete(&current.Maintenances[i])
		}
		for i := range current.Costs {
			tx.Delete(&current.Costs[i])
		}
		for i := range current.CostConfigs {
			tx.Delete(&current.CostConfigs[i])
		}
		for i := range current.Vehicles {
			tx.Delete(&current.Vehicles[i])
		}
		for i := range current.Apps {
			tx.Delete(&current.Apps[i])
		}
		for i := range current.Categories {
			tx.Delete(&current.Categories[i])
		}

		for i := range snap.Categories {
			tx.Insert(&snap.Categories[i])
		}
		for i := range snap.Apps {
			tx.Insert(&snap.Apps[i])
		}
		for i := range snap.Vehicles {
			tx.Insert(&snap.Vehicles[i])
		}
		for i := range snap.CostConfigs {
			tx.Insert(&snap.CostConfigs[i])
		}
		for i := range snap.Costs {
			tx.Insert(&snap.Costs[i])
		}
		for i := range snap.Maintenances {
			tx.Insert(&snap.Maintenances[i])
		}
		for i := range snap.Sessions {
			tx.Insert(&snap.Sessions[i])
		}
		for i := range snap.Earnings {
			tx.Insert(&snap.Earnings[i])
		}

		schedule := snap.WorkSchedule
		schedule.ID = model.SettingsID
		tx.Update(&schedule, "days", "updated_at")
		profit := snap.ProfitSettings
		profit.ID = model.SettingsID
		tx.Update(&profit, "enabled", "percentage", "updated_at")
		return nil
	})
}
