package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// KmChange is published after a vehicle's odometer moved forward and was persisted
type KmChange struct {
	VehicleID  string
	PreviousKm float64
	CurrentKm  float64
	At         time.Time
}

// KmListener reacts to odometer changes
type KmListener interface {
	OnVehicleKmChanged(ctx context.Context, change KmChange) error
}

// KmEvents delivers KmChange to its listeners synchronously, in subscription order
type KmEvents struct {
	mu        sync.RWMutex
	listeners []KmListener
}

// NewKmEvents creates an event bus with no listeners
func NewKmEvents() *KmEvents {
	return &KmEvents{}
}

// Subscribe adds a listener
func (e *KmEvents) Subscribe(l KmListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Publish calls every listener; one failing listener does not stop the others
func (e *KmEvents) Publish(ctx context.Context, change KmChange) error {
	e.mu.RLock()
	listeners := append([]KmListener(nil), e.listeners...)
	e.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := l.OnVehicleKmChanged(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
