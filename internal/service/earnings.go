package service

import (
	"context"
	"strings"
	"time"

	"driverops/internal/model"
	"driverops/internal/state"
)

// EarningsInput is a new earnings record
type EarningsInput struct {
	Date          time.Time // zero means today
	AppID         string
	GrossEarnings float64
	VariableCosts []model.VariableCost
	HoursWorked   *float64
	KmDriven      *float64
	VehicleID     *string
}

// EarningsService records takings per app and day
type EarningsService struct {
	state    *state.Store
	clock    Clock
	vehicles *VehicleService
}

// NewEarningsService creates a new earnings service
func NewEarningsService(st *state.Store, clock Clock, vehicles *VehicleService) *EarningsService {
	return &EarningsService{state: st, clock: clock, vehicles: vehicles}
}

// ForDate returns the records of one day
func (s *EarningsService) ForDate(date time.Time) []model.EarningsRecord {
	day := s.clock.Local(date)
	var out []model.EarningsRecord
	for _, e := range s.state.Earnings() {
		if model.SameDay(s.clock.Local(e.Date), day) {
			out = append(out, e)
		}
	}
	return out
}

// List returns all records
func (s *EarningsService) List() []model.EarningsRecord {
	return s.state.Earnings()
}

// NetForDay sums the net earnings of one day
func (s *EarningsService) NetForDay(date time.Time) float64 {
	var values []float64
	for _, e := range s.ForDate(date) {
		values = append(values, e.NetEarnings)
	}
	return sum(values...)
}

// Create records earnings. The app must be active. Driven km advance the vehicle
// odometer in the same write as the record; if either fails nothing is stored.
func (s *EarningsService) Create(ctx context.Context, in EarningsInput) (*model.EarningsRecord, error) {
	if in.GrossEarnings < 0 {
		return nil, invalidf("gross_earnings must not be negative")
	}
	if in.HoursWorked != nil && *in.HoursWorked < 0 {
		return nil, invalidf("hours_worked must not be negative")
	}
	if in.KmDriven != nil && *in.KmDriven < 0 {
		return nil, ErrInvalidKm
	}
	costs := make([]model.VariableCost, 0, len(in.VariableCosts))
	values := make([]float64, 0, len(in.VariableCosts))
	for _, vc := range in.VariableCosts {
		if vc.Value < 0 {
			return nil, invalidf("variable cost %q must not be negative", vc.Description)
		}
		vc.Description = strings.TrimSpace(vc.Description)
		costs = append(costs, vc)
		values = append(values, vc.Value)
	}
	totalVariable := sum(values...)

	date := s.clock.Today()
	if !in.Date.IsZero() {
		date = model.DateOnly(s.clock.Local(in.Date))
	}

	var (
		record model.EarningsRecord
		change *KmChange
	)
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		app, ok := s.state.App(in.AppID)
		if !ok {
			return notFound("app", in.AppID)
		}
		if !app.Active {
			return ErrInactiveApp
		}
		vehicleID := in.VehicleID
		if vehicleID != nil && *vehicleID != "" {
			if _, ok := s.state.Vehicle(*vehicleID); !ok {
				return notFound("vehicle", *vehicleID)
			}
		} else {
			vehicleID = nil
		}

		record = model.EarningsRecord{
			ID:                 model.NewID(),
			Date:               date,
			AppID:              app.ID,
			AppName:            app.Name,
			GrossEarnings:      in.GrossEarnings,
			VariableCosts:      costs,
			TotalVariableCosts: totalVariable,
			NetEarnings:        sum(in.GrossEarnings, -totalVariable),
			HoursWorked:        in.HoursWorked,
			KmDriven:           in.KmDriven,
			VehicleID:          vehicleID,
			CreatedAt:          s.clock.Now(),
		}
		tx.Insert(&record)

		if record.KmDriven == nil || *record.KmDriven <= 0 || s.vehicles == nil {
			return nil
		}
		target := s.vehicles.resolveVehicle(record.VehicleID)
		if target == "" {
			return nil
		}
		_, c, err := s.vehicles.stageAdvance(tx, target, *record.KmDriven)
		if err != nil {
			return err
		}
		change = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.vehicles != nil {
		s.vehicles.publishKm(ctx, change)
	}
	return &record, nil
}

// Delete removes a record; the odometer is not rolled back
func (s *EarningsService) Delete(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		e, ok := s.state.EarningsRecord(id)
		if !ok {
			return notFound("earnings record", id)
		}
		tx.Delete(&e)
		return nil
	})
}

// AttributeSession adds a completed session's distance and hours to the earnings of
// its end date. A record of that day without km is preferred, otherwise the most
// recent one of the day. Without any record, a zero-earnings record is created for
// the first active app; with no active app nothing is written.
func (s *EarningsService) AttributeSession(ctx context.Context, sess model.KMTrackerSession) (*model.EarningsRecord, error) {
	end := s.clock.Now()
	if sess.EndTime != nil {
		end = *sess.EndTime
	}
	day := model.DateOnly(s.clock.Local(end))
	km := round2(sess.TotalDistanceKm)
	hours := round2(float64(sess.Duration) / 3600)

	var result *model.EarningsRecord
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		result = nil
		target := pickAttributionTarget(s.ForDate(day))
		if target != nil {
			target.KmDriven = addOptional(target.KmDriven, km)
			target.HoursWorked = addOptional(target.HoursWorked, hours)
			target.SessionID = &sess.ID
			if target.VehicleID == nil {
				target.VehicleID = sess.VehicleID
			}
			tx.Update(target, "km_driven", "hours_worked", "session_id", "vehicle_id")
			result = target
			return nil
		}

		var app *model.App
		for _, a := range s.state.Apps() {
			if a.Active {
				app = &a
				break
			}
		}
		if app == nil {
			return nil
		}
		sessionID := sess.ID
		record := model.EarningsRecord{
			ID:            model.NewID(),
			Date:          day,
			AppID:         app.ID,
			AppName:       app.Name,
			VariableCosts: []model.VariableCost{},
			HoursWorked:   &hours,
			KmDriven:      &km,
			VehicleID:     sess.VehicleID,
			SessionID:     &sessionID,
			CreatedAt:     s.clock.Now(),
		}
		tx.Insert(&record)
		result = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// pickAttributionTarget prefers the most recent record without km, else the most recent one
func pickAttributionTarget(records []model.EarningsRecord) *model.EarningsRecord {
	var withoutKm, latest *model.EarningsRecord
	for i := range records {
		r := &records[i]
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
		if r.KmDriven == nil || *r.KmDriven == 0 {
			if withoutKm == nil || !r.CreatedAt.Before(withoutKm.CreatedAt) {
				withoutKm = r
			}
		}
	}
	if withoutKm != nil {
		return withoutKm
	}
	return latest
}

func addOptional(current *float64, delta float64) *float64 {
	v := delta
	if current != nil {
		v = sum(*current, delta)
	}
	return &v
}
