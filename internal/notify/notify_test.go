package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	delay  time.Duration
}

func (s *recordingSink) Notify(ctx context.Context, e Event) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversToAllSinks(t *testing.T) {
	t.Parallel()

	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("push service down")}
	d := NewDispatcher(first, failing)

	d.Dispatch(context.Background(), Event{Kind: KindCostGenerated, Title: "Rent"})
	d.Wait()

	if first.count() != 1 || failing.count() != 1 {
		t.Fatalf("expected one delivery per sink, got %d and %d", first.count(), failing.count())
	}
	if first.events[0].At.IsZero() {
		t.Fatal("expected dispatch to stamp the event time")
	}
}

func TestDispatchDoesNotBlockCaller(t *testing.T) {
	t.Parallel()

	slow := &recordingSink{delay: 200 * time.Millisecond}
	d := NewDispatcher(slow)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), Event{Kind: KindMaintenanceOverdue})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("dispatch blocked on a slow sink")
	}
	d.Wait()
	if slow.count() != 1 {
		t.Fatalf("expected the slow sink to receive the event, got %d", slow.count())
	}
}

func TestDispatchSurvivesCanceledCallerContext(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDispatcher(sink)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, Event{Kind: KindCostGenerated})
	d.Wait()
	if sink.count() != 1 {
		t.Fatalf("expected delivery after caller cancel, got %d", sink.count())
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	t.Parallel()

	var d *Dispatcher
	d.Dispatch(context.Background(), Event{Kind: KindCostGenerated})
	d.Wait()
}
