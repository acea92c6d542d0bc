// Package notify delivers fire-and-forget notifications for engine events.
package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Event kinds
const (
	KindCostGenerated      = "cost_generated"
	KindMaintenanceOverdue = "maintenance_overdue"
)

// Event is one notification
type Event struct {
	Kind  string            `json:"kind"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	At    time.Time         `json:"at"`
}

// Sink delivers events to one channel
type Sink interface {
	Notify(ctx context.Context, e Event) error
}

// Dispatcher fans events out to all sinks in the background.
// Sink failures are logged and dropped.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over sinks
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: 10 * time.Second}
}

// Dispatch sends e to every sink without blocking the caller
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	// the caller's request may finish before delivery does
	base := context.WithoutCancel(ctx)

	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := sink.Notify(sendCtx, e); err != nil {
				log.Printf("[Notify] %s delivery failed: %v", e.Kind, err)
			}
		}(sink)
	}
}

// Wait blocks until every in-flight delivery finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
