// GPS 定位点接入: NATS driverops.location.<deviceID>

package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"driverops/internal/model"
	"driverops/internal/service"
)

// SubjectPrefix is followed by the device id
const SubjectPrefix = "driverops.location."

// ErrInvalidSample is returned for samples that cannot be a location
var ErrInvalidSample = errors.New("invalid location sample")

// Sample is one location sample as carried on the wire
type Sample struct {
	DeviceID string `json:"device_id,omitempty"`
	model.PointRequest
}

// Subject returns the subject samples of deviceID are published on
func Subject(deviceID string) string {
	return SubjectPrefix + deviceID
}

// Decode parses and checks a JSON sample
func Decode(data []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	if s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
		return Sample{}, fmt.Errorf("%w: coordinates %f,%f out of range", ErrInvalidSample, s.Lat, s.Lon)
	}
	if s.Accuracy != nil && *s.Accuracy < 0 {
		return Sample{}, fmt.Errorf("%w: negative accuracy", ErrInvalidSample)
	}
	return s, nil
}

// Publisher puts samples on NATS
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a publisher over an open connection
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish sends s on the device's subject
func (p *Publisher) Publish(deviceID string, s Sample) error {
	s.DeviceID = deviceID
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(deviceID), data)
}

// PointSink receives accepted samples
type PointSink interface {
	AddPoint(ctx context.Context, p model.GPSPoint) (bool, error)
}

// Subscriber feeds samples from NATS into the tracking engine
type Subscriber struct {
	nc      *nats.Conn
	sink    PointSink
	timeout time.Duration
	sub     *nats.Subscription
}

// NewSubscriber creates a subscriber; call Start to begin receiving
func NewSubscriber(nc *nats.Conn, sink PointSink) *Subscriber {
	return &Subscriber{nc: nc, sink: sink, timeout: 5 * time.Second}
}

// Start subscribes to every device subject
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Handle(ctx, msg.Subject, msg.Data); err != nil {
			log.Printf("[Location] Dropped sample on %s: %v", msg.Subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", SubjectPrefix, err)
	}
	s.sub = sub
	log.Printf("[Location] Subscribed to %s>", SubjectPrefix)
	return nil
}

// Stop unsubscribes
func (s *Subscriber) Stop() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

// Handle decodes one message and passes it to the sink. Samples arriving while
// no session is recording are ignored.
func (s *Subscriber) Handle(ctx context.Context, subject string, data []byte) error {
	sample, err := Decode(data)
	if err != nil {
		return err
	}
	if sample.DeviceID == "" {
		sample.DeviceID = strings.TrimPrefix(subject, SubjectPrefix)
	}

	_, err = s.sink.AddPoint(ctx, service.PointFromRequest(sample.PointRequest))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNoActiveSession), errors.Is(err, service.ErrSessionNotActive):
		return nil
	default:
		return fmt.Errorf("device %s: %w", sample.DeviceID, err)
	}
}
