package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"driverops/internal/model"
	"driverops/internal/notify"
)

func TestAddMonthsClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		start time.Time
		n     int
		want  time.Time
	}{
		{date(2026, 1, 31), 1, date(2026, 2, 28)},
		{date(2026, 1, 31), 2, date(2026, 3, 31)},
		{date(2024, 1, 31), 1, date(2024, 2, 29)},
		{date(2026, 8, 31), 1, date(2026, 9, 30)},
		{date(2026, 12, 15), 1, date(2027, 1, 15)},
		{date(2026, 3, 30), 11, date(2027, 2, 28)},
		{date(2026, 5, 10), 0, date(2026, 5, 10)},
	}
	for _, tt := range tests {
		if got := AddMonthsClamped(tt.start, tt.n); !got.Equal(tt.want) {
			t.Fatalf("AddMonthsClamped(%s, %d) = %s, want %s",
				tt.start.Format(model.DateLayout), tt.n, got.Format(model.DateLayout), tt.want.Format(model.DateLayout))
		}
	}
}

func TestInstallmentsGenerateAllRowsWithClampedDates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 1, 31, 10))
	cat := env.category("Insurance")

	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID:   cat.ID,
		Type:         model.CostTypeInstallments,
		Description:  "Policy",
		Value:        150,
		StartDate:    date(2026, 1, 31),
		Installments: 6,
	})
	if err != nil {
		t.Fatalf("create installments: %v", err)
	}

	if created.Config == nil || *created.Config.InstallmentsTotal != 6 || *created.Config.InstallmentsPaid != 1 {
		t.Fatalf("unexpected config: %+v", created.Config)
	}
	wantDates := map[string]bool{
		"2026-01-31": true,
		"2026-02-28": true,
		"2026-03-31": true,
		"2026-04-30": true,
		"2026-05-31": true,
		"2026-06-30": true,
	}
	costs := env.state.Costs()
	if len(costs) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(costs))
	}
	for i, c := range costs {
		key := c.Date.Format(model.DateLayout)
		if !wantDates[key] {
			t.Fatalf("unexpected installment date %s", key)
		}
		delete(wantDates, key)
		if want := fmt.Sprintf("Policy (%d/6)", i+1); c.Description != want {
			t.Fatalf("row %d description = %q, want %q", i, c.Description, want)
		}
		if c.ConfigID == nil || *c.ConfigID != created.Config.ID || !c.IsFixed {
			t.Fatalf("row %d not linked to its config: %+v", i, c)
		}
		if i > 0 && !c.Date.After(costs[i-1].Date) {
			t.Fatalf("installment dates not increasing at %d", i)
		}
	}
	if len(wantDates) != 0 {
		t.Fatalf("missing installment dates: %v", wantDates)
	}
}

func TestFixedMonthlySweepEmitsOncePerMonth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 1, 9))
	cat := env.category("Rent")

	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID,
		Type:       model.CostTypeFixedMonthly,
		Value:      500,
		StartDate:  date(2026, 3, 1),
	})
	if err != nil {
		t.Fatalf("create fixed monthly: %v", err)
	}
	if created.Config == nil {
		t.Fatal("fixed monthly must persist its config")
	}

	for _, now := range []time.Time{at(2026, 3, 1, 12), at(2026, 3, 15, 8), at(2026, 4, 2, 7)} {
		env.setNow(now)
		if _, err := env.costs.Sweep(env.ctx, now); err != nil {
			t.Fatalf("sweep at %s: %v", now, err)
		}
	}
	// again within April
	if n, err := env.costs.Sweep(env.ctx, at(2026, 4, 20, 7)); err != nil || n != 0 {
		t.Fatalf("repeat sweep generated %d rows, err %v", n, err)
	}

	wantDates := map[string]bool{"2026-03-01": true, "2026-04-01": true}
	costs := env.state.Costs()
	if len(costs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(costs))
	}
	for _, c := range costs {
		if !wantDates[c.Date.Format(model.DateLayout)] {
			t.Fatalf("unexpected row date %s", c.Date.Format(model.DateLayout))
		}
		if c.Value != 500 || c.TypeSnapshot != model.CostTypeFixedMonthly {
			t.Fatalf("unexpected row %+v", c)
		}
	}
	if got := env.notes.count(notify.KindCostGenerated); got != 1 {
		t.Fatalf("expected 1 cost notification, got %d", got)
	}
	if got := env.port.Count("costs"); got != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", got)
	}
}

func TestSweepSkipsConfigsStartingLater(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 10, 9))
	cat := env.category("Parking")
	if _, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID,
		Type:       model.CostTypeFixedMonthly,
		Value:      80,
		StartDate:  date(2026, 5, 1),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, now := range []time.Time{at(2026, 3, 11, 0), at(2026, 4, 1, 0), at(2026, 5, 2, 0)} {
		if n, err := env.costs.Sweep(env.ctx, now); err != nil || n != 0 {
			t.Fatalf("sweep at %s generated %d, err %v", now.Format(model.DateLayout), n, err)
		}
	}
	if n, err := env.costs.Sweep(env.ctx, at(2026, 6, 1, 0)); err != nil || n != 1 {
		t.Fatalf("June sweep generated %d, err %v", n, err)
	}
}

func TestDeactivatedConfigIsNotSwept(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 1, 9))
	cat := env.category("Phone")
	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{CategoryID: cat.ID, Type: model.CostTypeFixedMonthly, Value: 40})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.costs.DeactivateConfig(env.ctx, created.Config.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if n, _ := env.costs.Sweep(env.ctx, at(2026, 4, 1, 0)); n != 0 {
		t.Fatalf("inactive config generated %d rows", n)
	}
}

func TestKmBasedRequiresVehicle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 1, 9))
	cat := env.category("Tires")

	_, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID,
		Type:       model.CostTypeKmBased,
		Value:      900,
		IntervalKm: 40000,
	})
	if !errors.Is(err, ErrVehicleRequired) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrVehicleRequired, got %v", err)
	}
	if env.port.Count("cost_configs") != 0 || env.port.Count("costs") != 0 {
		t.Fatal("rejected template wrote rows")
	}
}

func TestKmBasedEmitsOncePerThresholdCrossing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 1, 9))
	v := env.vehicle(10000)
	cat := env.category("Oil")

	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID,
		VehicleID:  &v.ID,
		Type:       model.CostTypeKmBased,
		Value:      120,
		IntervalKm: 1000,
	})
	if err != nil {
		t.Fatalf("create km based: %v", err)
	}
	if *created.Config.LastKm != 10000 {
		t.Fatalf("lastKm should start at the odometer, got %v", *created.Config.LastKm)
	}

	steps := []struct {
		km       float64
		wantRows int
		wantLast float64
	}{
		{10500, 1, 10000},
		{11250, 2, 11250},
		{12000, 2, 11250},
		{12300, 3, 12300},
	}
	for _, step := range steps {
		if _, err := env.vehicles.SetKm(env.ctx, v.ID, step.km); err != nil {
			t.Fatalf("set km %v: %v", step.km, err)
		}
		if got := len(env.state.Costs()); got != step.wantRows {
			t.Fatalf("at %v km: %d rows, want %d", step.km, got, step.wantRows)
		}
		cfg, _ := env.state.CostConfig(created.Config.ID)
		if *cfg.LastKm != step.wantLast {
			t.Fatalf("at %v km: lastKm %v, want %v", step.km, *cfg.LastKm, step.wantLast)
		}
	}
}

func TestKmBasedEmissionIsAtomic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 1, 9))
	v := env.vehicle(5000)
	cat := env.category("Chain")
	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID, VehicleID: &v.ID, Type: model.CostTypeKmBased, Value: 60, IntervalKm: 500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env.port.FailOn = func(op, table string) error {
		if op == "update" && table == "cost_configs" {
			return errors.New("constraint violation")
		}
		return nil
	}

	updated, err := env.vehicles.SetKm(env.ctx, v.ID, 5600)
	if err != nil {
		t.Fatalf("odometer update must succeed: %v", err)
	}
	if updated.CurrentKm != 5600 {
		t.Fatalf("expected 5600 km, got %v", updated.CurrentKm)
	}
	if got := env.port.Count("costs"); got != 1 {
		t.Fatalf("cost row written without its config update: %d rows", got)
	}
	if got := len(env.state.Costs()); got != 1 {
		t.Fatalf("memory diverged from store: %d rows", got)
	}
	cfg, _ := env.state.CostConfig(created.Config.ID)
	if *cfg.LastKm != 5000 {
		t.Fatalf("lastKm moved on failed write: %v", *cfg.LastKm)
	}
}

func TestMonthlyCostTotalProjectsFixedMonthly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 5, 9))
	rent := env.category("Rent")
	fuel := env.category("Fuel")
	if _, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{CategoryID: rent.ID, Type: model.CostTypeFixedMonthly, Value: 500, StartDate: date(2026, 3, 1)}); err != nil {
		t.Fatalf("create rent: %v", err)
	}
	if _, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{CategoryID: fuel.ID, Type: model.CostTypeUnique, Value: 120.35}); err != nil {
		t.Fatalf("create fuel: %v", err)
	}

	want := map[time.Month]float64{
		time.February: 0,
		time.March:    620.35,
		time.April:    500,
	}
	for month, total := range want {
		if got := env.costs.MonthlyCostTotal(2026, month); got != total {
			t.Fatalf("total for %s = %v, want %v", month, got, total)
		}
	}
	if rows := len(env.state.Costs()); rows != 2 {
		t.Fatalf("projection must not write rows, got %d", rows)
	}
}

func TestUniqueCostHasNoConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 5, 9))
	cat := env.category("Wash")
	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{CategoryID: cat.ID, Type: model.CostTypeUnique, Value: 30})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Config != nil || env.port.Count("cost_configs") != 0 {
		t.Fatal("unique cost must not persist a config")
	}
	if len(created.Costs) != 1 || created.Costs[0].ConfigID != nil || created.Costs[0].Description != "Wash" {
		t.Fatalf("unexpected rows: %+v", created.Costs)
	}
}

func TestRefreshInstallmentsCountsDueRows(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 1, 15, 9))
	cat := env.category("Phone")
	created, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{
		CategoryID: cat.ID, Type: model.CostTypeInstallments, Value: 100, StartDate: date(2026, 1, 10), Installments: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.costs.RefreshInstallments(env.ctx, at(2026, 2, 20, 0)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	cfg, _ := env.state.CostConfig(created.Config.ID)
	if *cfg.InstallmentsPaid != 2 {
		t.Fatalf("expected 2 paid, got %d", *cfg.InstallmentsPaid)
	}
}

func TestCreateRejectsInvalidTemplates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, at(2026, 3, 5, 9))
	cat := env.category("Misc")

	tests := map[string]CostTemplate{
		"zero value":       {CategoryID: cat.ID, Type: model.CostTypeUnique},
		"negative value":   {CategoryID: cat.ID, Type: model.CostTypeUnique, Value: -1},
		"unknown type":     {CategoryID: cat.ID, Type: "weekly", Value: 10},
		"no installments":  {CategoryID: cat.ID, Type: model.CostTypeInstallments, Value: 10},
		"no interval days": {CategoryID: cat.ID, Type: model.CostTypeCustomDays, Value: 10},
	}
	for name, tmpl := range tests {
		if _, err := env.costs.CreateFromTemplate(env.ctx, tmpl); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := env.costs.CreateFromTemplate(env.ctx, CostTemplate{CategoryID: "missing", Type: model.CostTypeUnique, Value: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown category, got %v", err)
	}
	if env.port.Count("costs") != 0 {
		t.Fatal("invalid templates wrote rows")
	}
}
