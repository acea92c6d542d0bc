// Package state holds the in-memory aggregate the engines read and write.
// Every mutation goes through Apply, which persists first and touches memory
// only after the durable write committed.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"driverops/internal/model"
	"driverops/internal/store"
)

type opKind int

const (
	opInsert opKind = iota
	opUpdate
	opDelete
)

type op struct {
	kind   opKind
	entity store.Entity
	fields []string
}

// Tx collects the writes of one mutation. Entities must be pointers to model types.
type Tx struct {
	ops []op
}

// Insert stages a new entity
func (t *Tx) Insert(e store.Entity) {
	t.ops = append(t.ops, op{kind: opInsert, entity: e})
}

// Update stages a partial update of the named columns; e carries the full new state
func (t *Tx) Update(e store.Entity, fields ...string) {
	t.ops = append(t.ops, op{kind: opUpdate, entity: e, fields: fields})
}

// Delete stages a removal
func (t *Tx) Delete(e store.Entity) {
	t.ops = append(t.ops, op{kind: opDelete, entity: e})
}

// Len returns the number of staged writes
func (t *Tx) Len() int {
	return len(t.ops)
}

// Store is the application state: one writer at a time, many readers
type Store struct {
	port store.Port

	wmu sync.Mutex
	mu  sync.RWMutex

	categories   map[string]model.Category
	apps         map[string]model.App
	vehicles     map[string]model.Vehicle
	costConfigs  map[string]model.CostConfig
	costs        map[string]model.Cost
	maintenances map[string]model.Maintenance
	sessions     map[string]model.KMTrackerSession
	earnings     map[string]model.EarningsRecord
	schedule     model.WorkSchedule
	profit       model.ProfitSettings
}

// New creates an empty store over port
func New(port store.Port) *Store {
	s := &Store{port: port}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.categories = make(map[string]model.Category)
	s.apps = make(map[string]model.App)
	s.vehicles = make(map[string]model.Vehicle)
	s.costConfigs = make(map[string]model.CostConfig)
	s.costs = make(map[string]model.Cost)
	s.maintenances = make(map[string]model.Maintenance)
	s.sessions = make(map[string]model.KMTrackerSession)
	s.earnings = make(map[string]model.EarningsRecord)
	s.schedule = model.WorkSchedule{ID: model.SettingsID}
	s.profit = model.ProfitSettings{ID: model.SettingsID}
}

// Load reads every table from the port and seeds the settings rows if missing
func (s *Store) Load(ctx context.Context) error {
	var (
		categories   []model.Category
		apps         []model.App
		vehicles     []model.Vehicle
		costConfigs  []model.CostConfig
		costs        []model.Cost
		maintenances []model.Maintenance
		sessions     []model.KMTrackerSession
		earnings     []model.EarningsRecord
		schedules    []model.WorkSchedule
		profits      []model.ProfitSettings
	)
	for _, dest := range []any{&categories, &apps, &vehicles, &costConfigs, &costs,
		&maintenances, &sessions, &earnings, &schedules, &profits} {
		if err := s.port.GetAll(ctx, dest); err != nil {
			return fmt.Errorf("load state: %w", err)
		}
	}

	s.mu.Lock()
	s.reset()
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	for _, a := range apps {
		s.apps[a.ID] = a
	}
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	for _, c := range costConfigs {
		s.costConfigs[c.ID] = c
	}
	for _, c := range costs {
		s.costs[c.ID] = c
	}
	for _, m := range maintenances {
		s.maintenances[m.ID] = m
	}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	for _, e := range earnings {
		s.earnings[e.ID] = e
	}
	if len(schedules) > 0 {
		s.schedule = schedules[0]
	}
	if len(profits) > 0 {
		s.profit = profits[0]
	}
	s.mu.Unlock()

	return s.Apply(ctx, func(tx *Tx) error {
		now := time.Now()
		if len(schedules) == 0 {
			tx.Insert(&model.WorkSchedule{ID: model.SettingsID, UpdatedAt: now})
		}
		if len(profits) == 0 {
			tx.Insert(&model.ProfitSettings{ID: model.SettingsID, UpdatedAt: now})
		}
		return nil
	})
}

// Apply runs build to stage writes, persists them in one atomic unit and,
// only if that succeeds, applies them to memory. Writers are serialized.
// build may read the store freely; it must not call Apply.
func (s *Store) Apply(ctx context.Context, build func(tx *Tx) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx := &Tx{}
	if err := build(tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	err := s.port.RunAtomic(ctx, func(p store.Port) error {
		for _, o := range tx.ops {
			var err error
			switch o.kind {
			case opInsert:
				err = p.Insert(ctx, o.entity)
			case opUpdate:
				err = p.Update(ctx, o.entity, o.fields...)
			case opDelete:
				err = p.Delete(ctx, o.entity)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	s.mu.Lock()
	for _, o := range tx.ops {
		s.applyLocked(o)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) applyLocked(o op) {
	remove := o.kind == opDelete
	switch e := o.entity.(type) {
	case *model.Category:
		if remove {
			delete(s.categories, e.ID)
		} else {
			s.categories[e.ID] = *e
		}
	case *model.App:
		if remove {
			delete(s.apps, e.ID)
		} else {
			s.apps[e.ID] = *e
		}
	case *model.Vehicle:
		if remove {
			delete(s.vehicles, e.ID)
		} else {
			s.vehicles[e.ID] = *e
		}
	case *model.CostConfig:
		if remove {
			delete(s.costConfigs, e.ID)
		} else {
			s.costConfigs[e.ID] = *e
		}
	case *model.Cost:
		if remove {
			delete(s.costs, e.ID)
		} else {
			s.costs[e.ID] = *e
		}
	case *model.Maintenance:
		if remove {
			delete(s.maintenances, e.ID)
		} else {
			s.maintenances[e.ID] = cloneMaintenance(*e)
		}
	case *model.KMTrackerSession:
		if remove {
			delete(s.sessions, e.ID)
		} else {
			s.sessions[e.ID] = cloneSession(*e)
		}
	case *model.EarningsRecord:
		if remove {
			delete(s.earnings, e.ID)
		} else {
			s.earnings[e.ID] = cloneEarnings(*e)
		}
	case *model.WorkSchedule:
		if !remove {
			s.schedule = *e
		}
	case *model.ProfitSettings:
		if !remove {
			s.profit = *e
		}
	}
}

func cloneMaintenance(m model.Maintenance) model.Maintenance {
	m.History = append([]model.MaintenanceCompletion(nil), m.History...)
	return m
}

func cloneSession(sess model.KMTrackerSession) model.KMTrackerSession {
	sess.Points = append([]model.GPSPoint(nil), sess.Points...)
	return sess
}

func cloneEarnings(e model.EarningsRecord) model.EarningsRecord {
	e.VariableCosts = append([]model.VariableCost(nil), e.VariableCosts...)
	return e
}

// Category returns a category by id
func (s *Store) Category(id string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	return c, ok
}

// Categories returns all categories ordered by name
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// App returns a revenue source by id
func (s *Store) App(id string) (model.App, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	return a, ok
}

// Apps returns all revenue sources ordered by name
func (s *Store) Apps() []model.App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.App, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Vehicle returns a vehicle by id
func (s *Store) Vehicle(id string) (model.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	return v, ok
}

// Vehicles returns all vehicles, oldest first
func (s *Store) Vehicles() []model.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CostConfig returns a cost template by id
func (s *Store) CostConfig(id string) (model.CostConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.costConfigs[id]
	return c, ok
}

// CostConfigs returns all cost templates, oldest first
func (s *Store) CostConfigs() []model.CostConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CostConfig, 0, len(s.costConfigs))
	for _, c := range s.costConfigs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Cost returns a ledger row by id
func (s *Store) Cost(id string) (model.Cost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.costs[id]
	return c, ok
}

// Costs returns all ledger rows ordered by date
func (s *Store) Costs() []model.Cost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Cost, 0, len(s.costs))
	for _, c := range s.costs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Maintenance returns a maintenance item by id
func (s *Store) Maintenance(id string) (model.Maintenance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maintenances[id]
	if !ok {
		return model.Maintenance{}, false
	}
	return cloneMaintenance(m), true
}

// Maintenances returns all maintenance items, oldest first
func (s *Store) Maintenances() []model.Maintenance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Maintenance, 0, len(s.maintenances))
	for _, m := range s.maintenances {
		out = append(out, cloneMaintenance(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Session returns a tracking session by id
func (s *Store) Session(id string) (model.KMTrackerSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.KMTrackerSession{}, false
	}
	return cloneSession(sess), true
}

// OpenSession returns the single active or paused session, if any
func (s *Store) OpenSession() (model.KMTrackerSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Open() {
			return cloneSession(sess), true
		}
	}
	return model.KMTrackerSession{}, false
}

// Sessions returns all sessions, newest first
func (s *Store) Sessions() []model.KMTrackerSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.KMTrackerSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

// EarningsRecord returns an earnings record by id
func (s *Store) EarningsRecord(id string) (model.EarningsRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.earnings[id]
	if !ok {
		return model.EarningsRecord{}, false
	}
	return cloneEarnings(e), true
}

// Earnings returns all earnings records ordered by date, then creation
func (s *Store) Earnings() []model.EarningsRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EarningsRecord, 0, len(s.earnings))
	for _, e := range s.earnings {
		out = append(out, cloneEarnings(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Schedule returns the weekly work schedule
func (s *Store) Schedule() model.WorkSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule
}

// Profit returns the profit settings
func (s *Store) Profit() model.ProfitSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profit
}
