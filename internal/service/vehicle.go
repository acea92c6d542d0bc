package service

import (
	"context"
	"log"

	"driverops/internal/model"
	"driverops/internal/state"
)

// VehicleService manages vehicles and their odometer
type VehicleService struct {
	state  *state.Store
	clock  Clock
	events *KmEvents
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(st *state.Store, clock Clock, events *KmEvents) *VehicleService {
	return &VehicleService{state: st, clock: clock, events: events}
}

// List returns all vehicles
func (s *VehicleService) List() []model.Vehicle {
	return s.state.Vehicles()
}

// Get returns one vehicle
func (s *VehicleService) Get(id string) (*model.Vehicle, error) {
	v, ok := s.state.Vehicle(id)
	if !ok {
		return nil, notFound("vehicle", id)
	}
	return &v, nil
}

// Default returns the first active vehicle
func (s *VehicleService) Default() (*model.Vehicle, bool) {
	for _, v := range s.state.Vehicles() {
		if v.Active {
			return &v, true
		}
	}
	return nil, false
}

// Create registers a vehicle
func (s *VehicleService) Create(ctx context.Context, req model.CreateVehicleRequest) (*model.Vehicle, error) {
	if !req.Type.Valid() {
		return nil, invalidf("vehicle type %q must be moto or car", req.Type)
	}
	if req.CurrentKm < 0 {
		return nil, ErrInvalidKm
	}

	now := s.clock.Now()
	v := &model.Vehicle{
		ID:           model.NewID(),
		Type:         req.Type,
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		Plate:        req.Plate,
		CurrentKm:    req.CurrentKm,
		FuelEconomy:  req.FuelEconomy,
		Active:       true,
		LastKmUpdate: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.state.Apply(ctx, func(tx *state.Tx) error {
		tx.Insert(v)
		return nil
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// Update changes the descriptive fields of a vehicle
func (s *VehicleService) Update(ctx context.Context, id string, req model.UpdateVehicleRequest) (*model.Vehicle, error) {
	var updated model.Vehicle
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		v, ok := s.state.Vehicle(id)
		if !ok {
			return notFound("vehicle", id)
		}
		v.Brand = req.Brand
		v.Model = req.Model
		v.Year = req.Year
		v.Plate = req.Plate
		v.FuelEconomy = req.FuelEconomy
		if req.Active != nil {
			v.Active = *req.Active
		}
		v.UpdatedAt = s.clock.Now()
		updated = v
		tx.Update(&updated, "brand", "model", "year", "plate", "fuel_economy", "active", "updated_at")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deactivate marks a vehicle inactive; its history is kept
func (s *VehicleService) Deactivate(ctx context.Context, id string) error {
	return s.state.Apply(ctx, func(tx *state.Tx) error {
		v, ok := s.state.Vehicle(id)
		if !ok {
			return notFound("vehicle", id)
		}
		v.Active = false
		v.UpdatedAt = s.clock.Now()
		tx.Update(&v, "active", "updated_at")
		return nil
	})
}

// SetKm sets the odometer to km. The reading never goes backwards.
// Listeners run after the new reading is persisted.
func (s *VehicleService) SetKm(ctx context.Context, id string, km float64) (*model.Vehicle, error) {
	return s.moveKm(ctx, id, func(float64) float64 { return km })
}

// AdvanceKm moves the odometer forward by delta km
func (s *VehicleService) AdvanceKm(ctx context.Context, id string, delta float64) (*model.Vehicle, error) {
	if delta < 0 {
		return nil, ErrInvalidKm
	}
	return s.moveKm(ctx, id, func(current float64) float64 { return round2(current + delta) })
}

func (s *VehicleService) moveKm(ctx context.Context, id string, next func(current float64) float64) (*model.Vehicle, error) {
	var (
		updated model.Vehicle
		change  *KmChange
	)
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		v, c, err := s.stageKm(tx, id, next)
		if err != nil {
			return err
		}
		updated, change = v, c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishKm(ctx, change)
	return &updated, nil
}

// stageKm stages an odometer move inside a caller's Apply so the new reading commits
// together with whatever caused it. The returned change is nil when the reading did
// not increase; hand it to publishKm after the commit.
func (s *VehicleService) stageKm(tx *state.Tx, id string, next func(current float64) float64) (model.Vehicle, *KmChange, error) {
	v, ok := s.state.Vehicle(id)
	if !ok {
		return model.Vehicle{}, nil, notFound("vehicle", id)
	}
	km := next(v.CurrentKm)
	if km < 0 || km < v.CurrentKm {
		return model.Vehicle{}, nil, ErrInvalidKm
	}
	now := s.clock.Now()
	previous := v.CurrentKm
	v.CurrentKm = km
	v.LastKmUpdate = &now
	v.UpdatedAt = now
	updated := v
	tx.Update(&updated, "current_km", "last_km_update", "updated_at")
	if km == previous {
		return updated, nil, nil
	}
	return updated, &KmChange{VehicleID: id, PreviousKm: previous, CurrentKm: km, At: now}, nil
}

// stageAdvance stages a forward move of delta km
func (s *VehicleService) stageAdvance(tx *state.Tx, id string, delta float64) (model.Vehicle, *KmChange, error) {
	if delta < 0 {
		return model.Vehicle{}, nil, ErrInvalidKm
	}
	return s.stageKm(tx, id, func(current float64) float64 { return round2(current + delta) })
}

// publishKm runs the km listeners for a committed change
func (s *VehicleService) publishKm(ctx context.Context, change *KmChange) {
	if change == nil || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, *change); err != nil {
		log.Printf("[Vehicles] Km change follow-up failed for %s: %v", change.VehicleID, err)
	}
}

// resolveVehicle returns id when set, otherwise the default vehicle's id or ""
func (s *VehicleService) resolveVehicle(id *string) string {
	if id != nil && *id != "" {
		return *id
	}
	if v, ok := s.Default(); ok {
		return v.ID
	}
	return ""
}
