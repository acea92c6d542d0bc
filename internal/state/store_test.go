package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"driverops/internal/model"
	"driverops/internal/store"
)

func newLoadedStore(t *testing.T) (*Store, *store.MemoryPort) {
	t.Helper()
	port := store.NewMemoryPort()
	s := New(port)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, port
}

func TestLoadSeedsSettingsRows(t *testing.T) {
	t.Parallel()

	_, port := newLoadedStore(t)
	if got := port.Count("work_schedules"); got != 1 {
		t.Fatalf("expected seeded schedule row, got %d", got)
	}
	if got := port.Count("profit_settings"); got != 1 {
		t.Fatalf("expected seeded profit row, got %d", got)
	}
}

func TestApplyFailureLeavesMemoryUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, port := newLoadedStore(t)
	if err := s.Apply(ctx, func(tx *Tx) error {
		tx.Insert(&model.Category{ID: "cat_1", Name: "Fuel", Active: true})
		return nil
	}); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	unavailable := errors.New("store unavailable")
	port.FailOn = func(op, table string) error {
		if table == "costs" {
			return unavailable
		}
		return nil
	}

	err := s.Apply(ctx, func(tx *Tx) error {
		tx.Insert(&model.Category{ID: "cat_2", Name: "Rent", Active: true})
		tx.Insert(&model.Cost{ID: "cost_1", CategoryID: "cat_1", Value: 10, Date: time.Now()})
		return nil
	})
	if !errors.Is(err, unavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}

	if _, ok := s.Category("cat_2"); ok {
		t.Fatal("category from failed write visible in memory")
	}
	if len(s.Costs()) != 0 {
		t.Fatalf("expected no costs in memory, got %d", len(s.Costs()))
	}
	if got := port.Count("categories"); got != 1 {
		t.Fatalf("expected 1 persisted category, got %d", got)
	}
}

func TestApplyBuildErrorWritesNothing(t *testing.T) {
	t.Parallel()

	s, port := newLoadedStore(t)
	invalid := errors.New("invalid")
	err := s.Apply(context.Background(), func(tx *Tx) error {
		tx.Insert(&model.App{ID: "app_1", Name: "Uber"})
		return invalid
	})
	if !errors.Is(err, invalid) {
		t.Fatalf("expected build error, got %v", err)
	}
	if port.Count("apps") != 0 || len(s.Apps()) != 0 {
		t.Fatal("build error must not persist anything")
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newLoadedStore(t)
	sess := &model.KMTrackerSession{
		ID:        "sess_1",
		StartTime: time.Now(),
		Status:    model.SessionActive,
		Points:    []model.GPSPoint{{Latitude: 1, Longitude: 1}},
	}
	if err := s.Apply(ctx, func(tx *Tx) error { tx.Insert(sess); return nil }); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	sess.Points[0].Latitude = 99

	got, ok := s.Session("sess_1")
	if !ok {
		t.Fatal("session not found")
	}
	if got.Points[0].Latitude != 1 {
		t.Fatalf("stored point mutated through caller slice: %v", got.Points[0].Latitude)
	}
	got.Points[0].Latitude = 42
	again, _ := s.Session("sess_1")
	if again.Points[0].Latitude != 1 {
		t.Fatalf("stored point mutated through returned slice: %v", again.Points[0].Latitude)
	}
}

func TestReplaceRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, port := newLoadedStore(t)
	if err := s.Apply(ctx, func(tx *Tx) error {
		tx.Insert(&model.Category{ID: "old", Name: "Old", Active: true})
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snap := Snapshot{
		Categories: []model.Category{{ID: "cat_1", Name: "Fuel", Active: true}},
		Vehicles:   []model.Vehicle{{ID: "veh_1", Type: model.VehicleTypeCar, CurrentKm: 1200, Active: true}},
		Costs: []model.Cost{{
			ID: "cost_1", CategoryID: "cat_1", CategoryName: "Fuel", Value: 50,
			Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), TypeSnapshot: model.CostTypeUnique,
		}},
		ProfitSettings: model.ProfitSettings{Enabled: true, Percentage: 20},
	}
	if err := s.Replace(ctx, snap); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if _, ok := s.Category("old"); ok {
		t.Fatal("old category survived replace")
	}
	if v, ok := s.Vehicle("veh_1"); !ok || v.CurrentKm != 1200 {
		t.Fatalf("vehicle not restored: %+v", v)
	}
	if p := s.Profit(); !p.Enabled || p.Percentage != 20 || p.ID != model.SettingsID {
		t.Fatalf("profit not restored: %+v", p)
	}

	reloaded := New(port)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Costs()) != 1 || len(reloaded.Categories()) != 1 {
		t.Fatalf("persisted state differs: %d costs, %d categories", len(reloaded.Costs()), len(reloaded.Categories()))
	}
}
