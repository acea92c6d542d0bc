package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"driverops/internal/model"
	"driverops/internal/notify"
	"driverops/internal/state"
	"driverops/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Dispatch(ctx context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	port  *store.MemoryPort
	state *state.Store
	clock Clock
	notes *recordingNotifier

	mu  sync.Mutex
	now time.Time

	events      *KmEvents
	vehicles    *VehicleService
	catalog     *CatalogService
	costs       *CostService
	maintenance *MaintenanceService
	earnings    *EarningsService
	tracker     *TrackerService
	settings    *SettingsService
	targets     *TargetService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	env := &testEnv{t: t, ctx: context.Background(), now: now, notes: &recordingNotifier{}}
	env.clock = Clock{now: env.currentTime, loc: now.Location()}
	env.port = store.NewMemoryPort()
	env.state = state.New(env.port)
	if err := env.state.Load(env.ctx); err != nil {
		t.Fatalf("load state: %v", err)
	}

	env.events = NewKmEvents()
	env.vehicles = NewVehicleService(env.state, env.clock, env.events)
	env.catalog = NewCatalogService(env.state, env.clock)
	env.costs = NewCostService(env.state, env.clock, env.notes)
	env.maintenance = NewMaintenanceService(env.state, env.clock, env.notes)
	env.events.Subscribe(env.costs)
	env.events.Subscribe(env.maintenance)
	env.earnings = NewEarningsService(env.state, env.clock, env.vehicles)
	env.tracker = NewTrackerService(env.state, env.clock, DefaultTrackerConfig, env.vehicles, env.earnings, nil)
	env.settings = NewSettingsService(env.state, env.clock)
	env.targets = NewTargetService(env.state, env.clock, env.costs, env.earnings)
	return env
}

func (e *testEnv) currentTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) vehicle(km float64) model.Vehicle {
	e.t.Helper()
	v, err := e.vehicles.Create(e.ctx, model.CreateVehicleRequest{Type: model.VehicleTypeCar, Brand: "Fiat", Model: "Argo", CurrentKm: km})
	if err != nil {
		e.t.Fatalf("create vehicle: %v", err)
	}
	return *v
}

func (e *testEnv) category(name string) model.Category {
	e.t.Helper()
	c, err := e.catalog.CreateCategory(e.ctx, name)
	if err != nil {
		e.t.Fatalf("create category: %v", err)
	}
	return *c
}

func (e *testEnv) app(name string) model.App {
	e.t.Helper()
	a, err := e.catalog.CreateApp(e.ctx, name)
	if err != nil {
		e.t.Fatalf("create app: %v", err)
	}
	return *a
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func approx(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
