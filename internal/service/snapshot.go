package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"driverops/internal/model"
	"driverops/internal/state"
)

// SnapshotSchemaVersion is the version written to and accepted from backups
const SnapshotSchemaVersion = 1

// SnapshotService reads and replaces the complete application state
type SnapshotService struct {
	state *state.Store
	clock Clock
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(st *state.Store, clock Clock) *SnapshotService {
	return &SnapshotService{state: st, clock: clock}
}

// Export returns the current state as a versioned document
func (s *SnapshotService) Export() state.Snapshot {
	snap := s.state.Snapshot()
	snap.SchemaVersion = SnapshotSchemaVersion
	snap.ExportedAt = s.clock.Now()
	return snap
}

// ExportJSON encodes Export as indented JSON
func (s *SnapshotService) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

// Import replaces all state with data after checking its version and references
func (s *SnapshotService) Import(ctx context.Context, data []byte) error {
	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return invalidf("backup is not valid JSON: %v", err)
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return invalidf("unsupported backup schema version %d", snap.SchemaVersion)
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	if err := s.state.Replace(ctx, snap); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}
	log.Printf("[Backup] Imported %d vehicles, %d costs, %d earnings",
		len(snap.Vehicles), len(snap.Costs), len(snap.Earnings))
	return nil
}

func validateSnapshot(snap state.Snapshot) error {
	categories := make(map[string]bool, len(snap.Categories))
	for _, c := range snap.Categories {
		categories[c.ID] = true
	}
	vehicles := make(map[string]bool, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		if v.CurrentKm < 0 {
			return invalidf("vehicle %s has negative km", v.ID)
		}
		vehicles[v.ID] = true
	}
	configs := make(map[string]bool, len(snap.CostConfigs))
	for _, c := range snap.CostConfigs {
		if !categories[c.CategoryID] {
			return invalidf("cost config %s references unknown category %s", c.ID, c.CategoryID)
		}
		if c.Type == model.CostTypeKmBased && (c.VehicleID == nil || !vehicles[*c.VehicleID]) {
			return invalidf("km_based cost config %s has no vehicle", c.ID)
		}
		configs[c.ID] = true
	}
	for _, c := range snap.Costs {
		if !categories[c.CategoryID] {
			return invalidf("cost %s references unknown category %s", c.ID, c.CategoryID)
		}
		if c.ConfigID != nil && !configs[*c.ConfigID] {
			return invalidf("cost %s references unknown config %s", c.ID, *c.ConfigID)
		}
	}
	for _, m := range snap.Maintenances {
		if !vehicles[m.VehicleID] {
			return invalidf("maintenance %s references unknown vehicle %s", m.ID, m.VehicleID)
		}
	}
	open := 0
	for _, sess := range snap.Sessions {
		if sess.Open() {
			open++
		}
	}
	if open > 1 {
		return invalidf("backup has %d open tracking sessions", open)
	}
	return nil
}
