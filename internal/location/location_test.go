package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"driverops/internal/model"
	"driverops/internal/service"
)

type fakeSink struct {
	points []model.GPSPoint
	err    error
}

func (f *fakeSink) AddPoint(_ context.Context, p model.GPSPoint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.points = append(f.points, p)
	return true, nil
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data    string
		wantErr bool
	}{
		"valid":             {`{"device_id":"phone","lat":-23.5,"lon":-46.6,"accuracy":8,"speed":12.5,"timestamp":1767600000000}`, false},
		"minimal":           {`{"lat":0,"lon":0}`, false},
		"broken json":       {`{"lat":`, true},
		"latitude range":    {`{"lat":91,"lon":0}`, true},
		"longitude range":   {`{"lat":0,"lon":-180.5}`, true},
		"negative accuracy": {`{"lat":0,"lon":0,"accuracy":-1}`, true},
	}
	for name, tt := range tests {
		_, err := Decode([]byte(tt.data))
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidSample) {
			t.Fatalf("%s: error does not wrap ErrInvalidSample: %v", name, err)
		}
	}
}

func TestHandleFeedsSink(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	sub := NewSubscriber(nil, sink)

	data := []byte(`{"lat":-23.5,"lon":-46.6,"accuracy":8,"speed":10,"timestamp":1767600000000}`)
	if err := sub.Handle(context.Background(), Subject("phone-1"), data); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(sink.points))
	}
	p := sink.points[0]
	if p.Latitude != -23.5 || p.Longitude != -46.6 || *p.Accuracy != 8 || *p.Speed != 10 {
		t.Fatalf("unexpected point %+v", p)
	}
	if !p.Timestamp.Equal(time.UnixMilli(1767600000000)) {
		t.Fatalf("timestamp = %s", p.Timestamp)
	}
}

func TestHandleIgnoresIdleTracker(t *testing.T) {
	t.Parallel()

	for _, sinkErr := range []error{service.ErrNoActiveSession, service.ErrSessionNotActive} {
		sub := NewSubscriber(nil, &fakeSink{err: sinkErr})
		if err := sub.Handle(context.Background(), Subject("phone"), []byte(`{"lat":1,"lon":1}`)); err != nil {
			t.Fatalf("%v should be ignored, got %v", sinkErr, err)
		}
	}

	boom := errors.New("store down")
	sub := NewSubscriber(nil, &fakeSink{err: boom})
	if err := sub.Handle(context.Background(), Subject("phone"), []byte(`{"lat":1,"lon":1}`)); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestHandleRejectsBadPayload(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	sub := NewSubscriber(nil, sink)
	if err := sub.Handle(context.Background(), Subject("phone"), []byte("not json")); !errors.Is(err, ErrInvalidSample) {
		t.Fatalf("expected invalid sample, got %v", err)
	}
	if len(sink.points) != 0 {
		t.Fatal("bad payload reached the sink")
	}
}
