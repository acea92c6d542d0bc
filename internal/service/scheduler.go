package service

import (
	"context"
	"errors"
	"log"
	"time"
)

// Scheduler runs the daily automation pass: the fixed-monthly sweep, installment
// progress and the calendar-driven maintenance recompute
type Scheduler struct {
	costs       *CostService
	maintenance *MaintenanceService
	clock       Clock
	interval    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler running every interval (24h when unset)
func NewScheduler(costs *CostService, maintenance *MaintenanceService, clock Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{costs: costs, maintenance: maintenance, clock: clock, interval: interval}
}

// Start runs one pass immediately and then one per interval until Stop
func (s *Scheduler) Start() {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	log.Printf("[Sweep] Starting, interval %s", s.interval)
	go func() {
		defer close(s.done)
		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Stop cancels the timer and waits for a running pass to finish
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	log.Println("[Sweep] Stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		log.Printf("[Sweep] Pass finished with errors: %v", err)
	}
}

// RunOnce performs one automation pass at the clock's current time
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	var errs []error
	if _, err := s.costs.Sweep(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if err := s.costs.RefreshInstallments(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if err := s.maintenance.RecomputeAll(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
