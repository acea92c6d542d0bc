package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"driverops/internal/model"
	"driverops/internal/notify"
	"driverops/internal/state"
)

// CostTemplate is a cost submission before it is expanded into ledger rows
type CostTemplate struct {
	CategoryID   string
	VehicleID    *string
	Type         model.CostType
	Description  string
	Value        float64
	StartDate    time.Time // zero means today
	Installments int
	IntervalKm   float64
	IntervalDays int
}

// CostCreation is what a template produced
type CostCreation struct {
	Config *model.CostConfig `json:"config,omitempty"`
	Costs  []model.Cost      `json:"costs"`
}

// CostService expands cost templates into ledger rows and keeps recurring ones emitting
type CostService struct {
	state    *state.Store
	clock    Clock
	notifier Notifier
}

// NewCostService creates a new cost service
func NewCostService(st *state.Store, clock Clock, notifier Notifier) *CostService {
	return &CostService{state: st, clock: clock, notifier: orNop(notifier)}
}

// CreateFromTemplate validates t and writes its config and initial rows in one atomic unit
func (s *CostService) CreateFromTemplate(ctx context.Context, t CostTemplate) (*CostCreation, error) {
	if !t.Type.Valid() {
		return nil, invalidf("unknown cost type %q", t.Type)
	}
	if t.Value <= 0 {
		return nil, invalidf("cost value must be positive")
	}
	start := s.clock.Today()
	if !t.StartDate.IsZero() {
		start = model.DateOnly(s.clock.Local(t.StartDate))
	}

	var out CostCreation
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		out = CostCreation{}

		category, ok := s.state.Category(t.CategoryID)
		if !ok {
			return notFound("category", t.CategoryID)
		}
		if !category.Active {
			return invalidf("category %s is inactive", category.Name)
		}

		var vehicle *model.Vehicle
		if t.VehicleID != nil && *t.VehicleID != "" {
			v, ok := s.state.Vehicle(*t.VehicleID)
			if !ok {
				return notFound("vehicle", *t.VehicleID)
			}
			vehicle = &v
		}

		description := strings.TrimSpace(t.Description)
		if description == "" {
			description = category.Name
		}

		now := s.clock.Now()
		cfg := &model.CostConfig{
			ID:           model.NewID(),
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Type:         t.Type,
			Description:  description,
			Value:        t.Value,
			StartDate:    start,
			Active:       true,
			CreatedAt:    now,
		}
		if vehicle != nil {
			cfg.VehicleID = &vehicle.ID
		}

		row := func(date time.Time, desc string, fixed bool) model.Cost {
			c := model.Cost{
				ID:           model.NewID(),
				CategoryID:   category.ID,
				CategoryName: category.Name,
				VehicleID:    cfg.VehicleID,
				Description:  desc,
				Value:        t.Value,
				Date:         date,
				TypeSnapshot: t.Type,
				IsFixed:      fixed,
				CreatedAt:    now,
			}
			if t.Type != model.CostTypeUnique {
				c.ConfigID = &cfg.ID
			}
			return c
		}

		var costs []model.Cost
		switch t.Type {
		case model.CostTypeUnique:
			costs = append(costs, row(start, description, false))
			cfg = nil

		case model.CostTypeFixedMonthly:
			costs = append(costs, row(start, description, true))

		case model.CostTypeInstallments:
			n := t.Installments
			if n < 1 {
				return invalidf("installments must be at least 1")
			}
			today := s.clock.Today()
			paid := 0
			for i := 0; i < n; i++ {
				date := AddMonthsClamped(start, i)
				if !date.After(today) {
					paid++
				}
				costs = append(costs, row(date, fmt.Sprintf("%s (%d/%d)", description, i+1, n), true))
			}
			if paid == 0 {
				paid = 1
			}
			cfg.InstallmentsTotal = &n
			cfg.InstallmentsPaid = &paid

		case model.CostTypeKmBased:
			if vehicle == nil {
				return ErrVehicleRequired
			}
			if t.IntervalKm <= 0 {
				return invalidf("interval_km must be positive")
			}
			interval := t.IntervalKm
			last := vehicle.CurrentKm
			cfg.IntervalKm = &interval
			cfg.LastKm = &last
			costs = append(costs, row(start, description, false))

		case model.CostTypeCustomDays:
			if t.IntervalDays <= 0 {
				return invalidf("interval_days must be positive")
			}
			days := t.IntervalDays
			lastDate := start
			cfg.IntervalDays = &days
			cfg.LastDate = &lastDate
			costs = append(costs, row(start, description, false))
		}

		if cfg != nil {
			tx.Insert(cfg)
		}
		for i := range costs {
			tx.Insert(&costs[i])
		}
		out.Config = cfg
		out.Costs = costs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Sweep emits the current month's row for every active fixed_monthly config that
// started on or before this month and has none yet. Re-running it in the same month
// emits nothing. A failing config does not stop the others.
func (s *CostService) Sweep(ctx context.Context, now time.Time) (int, error) {
	now = s.clock.Local(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var (
		generated int
		errs      []error
	)
	for _, cfg := range s.state.CostConfigs() {
		if !cfg.Active || cfg.Type != model.CostTypeFixedMonthly {
			continue
		}

		var emitted *model.Cost
		err := s.state.Apply(ctx, func(tx *state.Tx) error {
			emitted = nil
			current, ok := s.state.CostConfig(cfg.ID)
			if !ok || !current.Active {
				return nil
			}
			if monthIndex(s.clock.Local(current.StartDate)) > monthIndex(now) {
				return nil
			}
			if s.hasRowInMonth(current.ID, now) {
				return nil
			}
			c := s.rowFromConfig(current, monthStart)
			c.IsFixed = true
			tx.Insert(&c)
			emitted = &c
			return nil
		})
		if err != nil {
			log.Printf("[Costs] Sweep failed for config %s: %v", cfg.ID, err)
			errs = append(errs, fmt.Errorf("config %s: %w", cfg.ID, err))
			continue
		}
		if emitted != nil {
			generated++
			s.notifyGenerated(ctx, *emitted)
		}
	}

	if generated > 0 {
		log.Printf("[Costs] Sweep generated %d cost(s) for %s", generated, monthStart.Format("2006-01"))
	}
	return generated, errors.Join(errs...)
}

// RefreshInstallments sets installmentsPaid to the number of rows dated on or before now
func (s *CostService) RefreshInstallments(ctx context.Context, now time.Time) error {
	today := model.DateOnly(s.clock.Local(now))
	var errs []error
	for _, cfg := range s.state.CostConfigs() {
		if cfg.Type != model.CostTypeInstallments {
			continue
		}
		err := s.state.Apply(ctx, func(tx *state.Tx) error {
			current, ok := s.state.CostConfig(cfg.ID)
			if !ok {
				return nil
			}
			paid := 0
			for _, c := range s.state.Costs() {
				if c.ConfigID != nil && *c.ConfigID == current.ID && !s.clock.Local(c.Date).After(today) {
					paid++
				}
			}
			if current.InstallmentsPaid != nil && *current.InstallmentsPaid == paid {
				return nil
			}
			current.InstallmentsPaid = &paid
			tx.Update(&current, "installments_paid")
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("config %s: %w", cfg.ID, err))
		}
	}
	return errors.Join(errs...)
}

// OnVehicleKmChanged emits a row for each km_based config of the vehicle whose
// threshold lastKm+intervalKm was reached. lastKm moves to the triggering reading.
func (s *CostService) OnVehicleKmChanged(ctx context.Context, change KmChange) error {
	var errs []error
	for _, cfg := range s.state.CostConfigs() {
		if !cfg.Active || cfg.Type != model.CostTypeKmBased || cfg.VehicleID == nil || *cfg.VehicleID != change.VehicleID {
			continue
		}

		var emitted *model.Cost
		err := s.state.Apply(ctx, func(tx *state.Tx) error {
			emitted = nil
			current, ok := s.state.CostConfig(cfg.ID)
			if !ok || !current.Active || current.IntervalKm == nil || current.LastKm == nil {
				return nil
			}
			if change.CurrentKm < *current.LastKm+*current.IntervalKm {
				return nil
			}
			c := s.rowFromConfig(current, model.DateOnly(s.clock.Local(change.At)))
			km := change.CurrentKm
			current.LastKm = &km
			tx.Insert(&c)
			tx.Update(&current, "last_km")
			emitted = &c
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("km cost %s: %w", cfg.ID, err))
			continue
		}
		if emitted != nil {
			s.notifyGenerated(ctx, *emitted)
		}
	}
	return errors.Join(errs...)
}

// MonthlyCostTotal sums the month's ledger rows plus the value of every active
// fixed_monthly config that has not produced its row for that month yet
func (s *CostService) MonthlyCostTotal(year int, month time.Month) float64 {
	target := time.Date(year, month, 1, 0, 0, 0, 0, s.clock.Location())

	var values []float64
	for _, c := range s.CostsForMonth(year, month) {
		values = append(values, c.Value)
	}
	for _, cfg := range s.state.CostConfigs() {
		if !cfg.Active || cfg.Type != model.CostTypeFixedMonthly {
			continue
		}
		if monthIndex(s.clock.Local(cfg.StartDate)) > monthIndex(target) {
			continue
		}
		if !s.hasRowInMonth(cfg.ID, target) {
			values = append(values, cfg.Value)
		}
	}
	return sum(values...)
}

// CostsForMonth returns the ledger rows dated in the month
func (s *CostService) CostsForMonth(year int, month time.Month) []model.Cost {
	var out []model.Cost
	for _, c := range s.state.Costs() {
		d := s.clock.Local(c.Date)
		if d.Year() == year && d.Month() == month {
			out = append(out, c)
		}
	}
	return out
}

// Configs returns all cost templates
func (s *CostService) Configs() []model.CostConfig {
	return s.state.CostConfigs()
}

// DeactivateConfig stops a template from generating further rows
func (s *CostService) DeactivateConfig(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		cfg, ok := s.state.CostConfig(id)
		if !ok {
			return notFound("cost config", id)
		}
		cfg.Active = false
		tx.Update(&cfg, "active")
		return nil
	})
}

// DeleteCost removes a ledger row
func (s *CostService) DeleteCost(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		c, ok := s.state.Cost(id)
		if !ok {
			return notFound("cost", id)
		}
		tx.Delete(&c)
		return nil
	})
}

func (s *CostService) rowFromConfig(cfg model.CostConfig, date time.Time) model.Cost {
	categoryName := cfg.CategoryName
	if category, ok := s.state.Category(cfg.CategoryID); ok {
		categoryName = category.Name
	}
	configID := cfg.ID
	return model.Cost{
		ID:           model.NewID(),
		CategoryID:   cfg.CategoryID,
		CategoryName: categoryName,
		VehicleID:    cfg.VehicleID,
		ConfigID:     &configID,
		Description:  cfg.Description,
		Value:        cfg.Value,
		Date:         date,
		TypeSnapshot: cfg.Type,
		CreatedAt:    s.clock.Now(),
	}
}

func (s *CostService) hasRowInMonth(configID string, month time.Time) bool {
	for _, c := range s.state.Costs() {
		if c.ConfigID != nil && *c.ConfigID == configID && model.SameMonth(s.clock.Local(c.Date), month) {
			return true
		}
	}
	return false
}

func (s *CostService) notifyGenerated(ctx context.Context, c model.Cost) {
	data := map[string]string{
		"cost_id": c.ID,
		"date":    c.Date.Format(model.DateLayout),
	}
	if c.ConfigID != nil {
		data["config_id"] = *c.ConfigID
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Kind:  notify.KindCostGenerated,
		Title: "Cost generated",
		Body:  fmt.Sprintf("%s: %s", c.Description, formatMoney(c.Value)),
		Data:  data,
		At:    s.clock.Now(),
	})
}

// AddMonthsClamped adds n calendar months to t. When the day does not exist in the
// target month it clamps to that month's last day.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
