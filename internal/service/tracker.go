package service

import (
	"context"
	"log"
	"time"

	"driverops/internal/model"
	"driverops/internal/state"
)

// TrackerConfig tunes sample filtering and retention
type TrackerConfig struct {
	MaxAccuracyMeters float64
	MaxRetainedPoints int
}

// DefaultTrackerConfig is the 50 m accuracy filter with a 2000 point log
var DefaultTrackerConfig = TrackerConfig{MaxAccuracyMeters: 50, MaxRetainedPoints: 2000}

// TrackerService runs the GPS tracking session state machine:
// idle -> active <-> paused -> completed, with at most one open session.
type TrackerService struct {
	state    *state.Store
	clock    Clock
	cfg      TrackerConfig
	vehicles *VehicleService
	earnings *EarningsService
	live     *LiveFeed
}

// NewTrackerService creates a new tracker service; live may be nil
func NewTrackerService(st *state.Store, clock Clock, cfg TrackerConfig, vehicles *VehicleService, earnings *EarningsService, live *LiveFeed) *TrackerService {
	if cfg.MaxAccuracyMeters <= 0 {
		cfg.MaxAccuracyMeters = DefaultTrackerConfig.MaxAccuracyMeters
	}
	return &TrackerService{
		state:    st,
		clock:    clock,
		cfg:      cfg,
		vehicles: vehicles,
		earnings: earnings,
		live:     live,
	}
}

// Active returns the open session, if any
func (s *TrackerService) Active() (*model.KMTrackerSession, bool) {
	sess, ok := s.state.OpenSession()
	if !ok {
		return nil, false
	}
	return &sess, true
}

// Sessions returns all sessions, newest first
func (s *TrackerService) Sessions() []model.KMTrackerSession {
	return s.state.Sessions()
}

// ResumeFeed restarts the live feed for a session left open by a previous run
func (s *TrackerService) ResumeFeed() {
	if _, ok := s.state.OpenSession(); ok && s.live != nil {
		s.live.Begin()
	}
}

// Start opens a new session. It fails if one is already active or paused.
func (s *TrackerService) Start(ctx context.Context, vehicleID *string) (*model.KMTrackerSession, error) {
	var sess model.KMTrackerSession
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		if _, open := s.state.OpenSession(); open {
			return ErrSessionAlreadyActive
		}
		if vehicleID != nil && *vehicleID != "" {
			if _, ok := s.state.Vehicle(*vehicleID); !ok {
				return notFound("vehicle", *vehicleID)
			}
		} else {
			vehicleID = nil
		}

		sess = model.KMTrackerSession{
			ID:        model.NewID(),
			VehicleID: vehicleID,
			StartTime: s.clock.Now(),
			Status:    model.SessionActive,
			Points:    []model.GPSPoint{},
		}
		tx.Insert(&sess)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Tracker] Session %s started", sess.ID)
	if s.live != nil {
		s.live.Begin()
	}
	return &sess, nil
}

// Pause stops sample ingestion
func (s *TrackerService) Pause(ctx context.Context) (*model.KMTrackerSession, error) {
	return s.transition(ctx, model.SessionActive, model.SessionPaused, ErrSessionNotActive)
}

// Resume accepts samples again
func (s *TrackerService) Resume(ctx context.Context) (*model.KMTrackerSession, error) {
	return s.transition(ctx, model.SessionPaused, model.SessionActive, ErrSessionNotPaused)
}

func (s *TrackerService) transition(ctx context.Context, from, to model.SessionStatus, wrongState error) (*model.KMTrackerSession, error) {
	var sess model.KMTrackerSession
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		open, ok := s.state.OpenSession()
		if !ok {
			return ErrNoActiveSession
		}
		if open.Status != from {
			return wrongState
		}
		open.Status = to
		sess = open
		tx.Update(&sess, "status")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// AddPoint ingests one sample into the active session. It returns false when the
// sample was discarded as noise. Distance only ever grows.
func (s *TrackerService) AddPoint(ctx context.Context, p model.GPSPoint) (bool, error) {
	if p.Timestamp.IsZero() {
		p.Timestamp = s.clock.Now()
	}

	accepted := false
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		sess, ok := s.state.OpenSession()
		if !ok {
			return ErrNoActiveSession
		}
		if sess.Status != model.SessionActive {
			return ErrSessionNotActive
		}
		if p.Accuracy != nil && *p.Accuracy > s.cfg.MaxAccuracyMeters {
			return nil
		}

		if last, ok := sess.LastPoint(); ok {
			sess.TotalDistanceKm += HaversineKm(last, p)
		}
		if p.Speed != nil {
			kmh := msToKmh(*p.Speed)
			if sess.MaxSpeed == nil || kmh > *sess.MaxSpeed {
				sess.MaxSpeed = &kmh
			}
		}
		sess.Points = append(sess.Points, p)
		if limit := s.cfg.MaxRetainedPoints; limit > 0 && len(sess.Points) > limit {
			sess.Points = append([]model.GPSPoint(nil), sess.Points[len(sess.Points)-limit:]...)
		}
		sess.PointCount++

		accepted = true
		tx.Update(&sess, "points", "point_count", "total_distance_km", "max_speed")
		return nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// Stop completes the open session. With autoSave and a positive distance it advances
// the vehicle odometer and attributes the session to the day's earnings; failures of
// those follow-ups are logged and do not fail the stop.
func (s *TrackerService) Stop(ctx context.Context, autoSave bool) (*model.KMTrackerSession, error) {
	var sess model.KMTrackerSession
	err := s.state.Apply(ctx, func(tx *state.Tx) error {
		open, ok := s.state.OpenSession()
		if !ok {
			return ErrNoActiveSession
		}

		end := s.clock.Now()
		open.EndTime = &end
		open.Status = model.SessionCompleted
		open.Duration = int64(end.Sub(open.StartTime).Seconds())
		if open.Duration < 0 {
			open.Duration = 0
		}
		if hours := float64(open.Duration) / 3600; hours > 0 {
			avg := open.TotalDistanceKm / hours
			open.AvgSpeed = &avg
		}
		sess = open
		tx.Update(&sess, "end_time", "status", "duration", "avg_speed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.live != nil {
		s.live.End(sess)
	}
	log.Printf("[Tracker] Session %s completed: %.2f km in %ds", sess.ID, sess.TotalDistanceKm, sess.Duration)

	if autoSave && sess.TotalDistanceKm > 0 {
		s.commitSession(ctx, &sess)
	}
	return &sess, nil
}

func (s *TrackerService) commitSession(ctx context.Context, sess *model.KMTrackerSession) {
	if vehicleID := s.vehicles.resolveVehicle(sess.VehicleID); vehicleID != "" {
		saved := *sess
		saved.AutoSaved = true
		var change *KmChange
		// 里程与 auto_saved 标记同一事务提交
		err := s.state.Apply(ctx, func(tx *state.Tx) error {
			_, c, err := s.vehicles.stageAdvance(tx, vehicleID, round2(sess.TotalDistanceKm))
			if err != nil {
				return err
			}
			tx.Update(&saved, "auto_saved")
			change = c
			return nil
		})
		if err != nil {
			log.Printf("[Tracker] Failed to save km of session %s: %v", sess.ID, err)
		} else {
			sess.AutoSaved = true
			s.vehicles.publishKm(ctx, change)
		}
	}

	if s.earnings != nil {
		if _, err := s.earnings.AttributeSession(ctx, *sess); err != nil {
			log.Printf("[Tracker] Failed to attribute session %s to earnings: %v", sess.ID, err)
		}
	}
}

// PointFromRequest converts a pushed sample into a GPSPoint
func PointFromRequest(req model.PointRequest) model.GPSPoint {
	p := model.GPSPoint{
		Latitude:  req.Lat,
		Longitude: req.Lon,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
	}
	if req.Timestamp > 0 {
		p.Timestamp = time.UnixMilli(req.Timestamp)
	}
	return p
}
