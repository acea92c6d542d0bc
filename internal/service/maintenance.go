package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"driverops/internal/model"
	"driverops/internal/notify"
	"driverops/internal/state"
)

// Thresholds of the maintenance status classification
const (
	UrgentKm     = 500
	UrgentDays   = 30
	UpcomingKm   = 1000
	UpcomingDays = 60
)

// MaintenanceStatus classifies m against the vehicle's odometer and today's date.
// The km and date triggers are independent; the more urgent one wins.
func MaintenanceStatus(m model.Maintenance, currentKm float64, today time.Time) model.MaintenanceStatus {
	if !m.Active {
		return model.MaintenanceCompleted
	}

	hasKm, hasDays := m.NextKm != nil, m.NextDate != nil
	var kmRemaining float64
	var daysRemaining int
	if hasKm {
		kmRemaining = *m.NextKm - currentKm
	}
	if hasDays {
		daysRemaining = daysBetween(today, *m.NextDate, today.Location())
	}

	switch {
	case (hasKm && kmRemaining < 0) || (hasDays && daysRemaining < 0):
		return model.MaintenanceOverdue
	case (hasKm && kmRemaining <= UrgentKm) || (hasDays && daysRemaining <= UrgentDays):
		return model.MaintenanceUrgent
	case (hasKm && kmRemaining <= UpcomingKm) || (hasDays && daysRemaining <= UpcomingDays):
		return model.MaintenanceUpcoming
	default:
		return model.MaintenanceOK
	}
}

// scheduleNext derives nextKm and nextDate from the last service and the intervals
func scheduleNext(m *model.Maintenance) {
	m.NextKm = nil
	m.NextDate = nil
	if m.IntervalKm != nil && m.LastKm != nil {
		next := *m.LastKm + *m.IntervalKm
		m.NextKm = &next
	}
	if m.IntervalDays != nil && m.LastDate != nil {
		next := m.LastDate.AddDate(0, 0, *m.IntervalDays)
		m.NextDate = &next
	}
}

// MaintenanceInput is a new maintenance item
type MaintenanceInput struct {
	VehicleID    string
	Name         string
	IntervalKm   *float64
	IntervalDays *int
	LastKm       *float64   // defaults to the vehicle's odometer
	LastDate     *time.Time // defaults to today
}

// MaintenanceService keeps maintenance items and their derived status
type MaintenanceService struct {
	state    *state.Store
	clock    Clock
	notifier Notifier
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(st *state.Store, clock Clock, notifier Notifier) *MaintenanceService {
	return &MaintenanceService{state: st, clock: clock, notifier: orNop(notifier)}
}

// List returns maintenance items, optionally of one vehicle
func (s *MaintenanceService) List(vehicleID string) []model.Maintenance {
	all := s.state.Maintenances()
	if vehicleID == "" {
		return all
	}
	out := all[:0]
	for _, m := range all {
		if m.VehicleID == vehicleID {
			out = append(out, m)
		}
	}
	return out
}

// Create adds a maintenance item and computes its schedule and status
func (s *MaintenanceService) Create(ctx context.Context, in MaintenanceInput) (*model.Maintenance, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("maintenance name is required")
	}
	if in.IntervalKm == nil && in.IntervalDays == nil {
		return nil, invalidf("interval_km or interval_days is required")
	}
	if in.IntervalKm != nil && *in.IntervalKm <= 0 {
		return nil, invalidf("interval_km must be positive")
	}
	if in.IntervalDays != nil && *in.IntervalDays <= 0 {
		return nil, invalidf("interval_days must be positive")
	}
	if in.LastKm != nil && *in.LastKm < 0 {
		return nil, ErrInvalidKm
	}

	var created model.Maintenance
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		vehicle, ok := s.state.Vehicle(in.VehicleID)
		if !ok {
			return notFound("vehicle", in.VehicleID)
		}

		lastKm := vehicle.CurrentKm
		if in.LastKm != nil {
			lastKm = *in.LastKm
		}
		lastDate := s.clock.Today()
		if in.LastDate != nil {
			lastDate = model.DateOnly(s.clock.Local(*in.LastDate))
		}

		created = model.Maintenance{
			ID:           model.NewID(),
			VehicleID:    vehicle.ID,
			Name:         name,
			IntervalKm:   in.IntervalKm,
			IntervalDays: in.IntervalDays,
			LastKm:       &lastKm,
			LastDate:     &lastDate,
			Active:       true,
			History:      []model.MaintenanceCompletion{},
			CreatedAt:    s.clock.Now(),
		}
		scheduleNext(&created)
		created.Status = MaintenanceStatus(created, vehicle.CurrentKm, s.clock.Today())
		tx.Insert(&created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created.Status == model.MaintenanceOverdue {
		s.notifyOverdue(ctx, created)
	}
	return &created, nil
}

// Complete records a service at km today and reschedules the item
func (s *MaintenanceService) Complete(ctx context.Context, id string, km float64, costID *string, notes string) (*model.Maintenance, error) {
	if km < 0 {
		return nil, ErrInvalidKm
	}

	var updated model.Maintenance
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		m, ok := s.state.Maintenance(id)
		if !ok {
			return notFound("maintenance", id)
		}
		if costID != nil && *costID != "" {
			if _, ok := s.state.Cost(*costID); !ok {
				return notFound("cost", *costID)
			}
		}
		vehicle, _ := s.state.Vehicle(m.VehicleID)

		today := s.clock.Today()
		m.History = append(m.History, model.MaintenanceCompletion{
			Date:   today,
			Km:     km,
			CostID: costID,
			Notes:  strings.TrimSpace(notes),
		})
		m.LastKm = &km
		m.LastDate = &today
		scheduleNext(&m)
		m.Status = MaintenanceStatus(m, vehicle.CurrentKm, today)
		updated = m
		tx.Update(&updated, "history", "last_km", "last_date", "next_km", "next_date", "status")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deactivate retires a maintenance item; its status becomes completed
func (s *MaintenanceService) Deactivate(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		m, ok := s.state.Maintenance(id)
		if !ok {
			return notFound("maintenance", id)
		}
		m.Active = false
		m.Status = model.MaintenanceCompleted
		tx.Update(&m, "active", "status")
		return nil
	})
}

// OnVehicleKmChanged recomputes the status of every maintenance item of the vehicle
func (s *MaintenanceService) OnVehicleKmChanged(ctx context.Context, change KmChange) error {
	return s.recompute(ctx, func(m model.Maintenance) bool { return m.VehicleID == change.VehicleID }, s.clock.Local(change.At))
}

// RecomputeAll re-evaluates every item against now; calendar triggers move with the date
func (s *MaintenanceService) RecomputeAll(ctx context.Context, now time.Time) error {
	return s.recompute(ctx, func(model.Maintenance) bool { return true }, s.clock.Local(now))
}

func (s *MaintenanceService) recompute(ctx context.Context, match func(model.Maintenance) bool, now time.Time) error {
	today := model.DateOnly(now)

	var overdue []model.Maintenance
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		overdue = overdue[:0]
		for _, m := range s.state.Maintenances() {
			if !match(m) {
				continue
			}
			vehicle, ok := s.state.Vehicle(m.VehicleID)
			if !ok {
				continue
			}
			status := MaintenanceStatus(m, vehicle.CurrentKm, today)
			if status == m.Status {
				continue
			}
			if status == model.MaintenanceOverdue {
				overdue = append(overdue, m)
			}
			m.Status = status
			changed := m
			tx.Update(&changed, "status")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recompute maintenance: %w", err)
	}

	for _, m := range overdue {
		s.notifyOverdue(ctx, m)
	}
	return nil
}

func (s *MaintenanceService) notifyOverdue(ctx context.Context, m model.Maintenance) {
	s.notifier.Dispatch(ctx, notify.Event{
		Kind:  notify.KindMaintenanceOverdue,
		Title: "Maintenance overdue",
		Body:  overdueBody(m),
		Data:  map[string]string{"maintenance_id": m.ID, "vehicle_id": m.VehicleID},
		At:    s.clock.Now(),
	})
}

// ParseMaintenanceRequest converts an HTTP request body into a MaintenanceInput
func (s *MaintenanceService) ParseMaintenanceRequest(req model.CreateMaintenanceRequest) (MaintenanceInput, error) {
	in := MaintenanceInput{
		VehicleID:    req.VehicleID,
		Name:         req.Name,
		IntervalKm:   req.IntervalKm,
		IntervalDays: req.IntervalDays,
		LastKm:       req.LastKm,
	}
	if req.LastDate != "" {
		d, err := s.clock.ParseDate(req.LastDate)
		if err != nil {
			return MaintenanceInput{}, err
		}
		in.LastDate = &d
	}
	return in, nil
}
