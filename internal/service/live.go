package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"driverops/internal/model"
	"driverops/internal/state"
)

// LivePublisher receives the display-only snapshots of the running session
type LivePublisher interface {
	PublishLive(ctx context.Context, snap model.LiveSnapshot) error
}

// LiveFeed refreshes the running session's snapshot on a fixed interval.
// It only reads state and never writes the Persistence Port.
type LiveFeed struct {
	state      *state.Store
	clock      Clock
	interval   time.Duration
	publishers []LivePublisher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLiveFeed creates a feed publishing every interval
func NewLiveFeed(st *state.Store, clock Clock, interval time.Duration, publishers ...LivePublisher) *LiveFeed {
	if interval <= 0 {
		interval = time.Second
	}
	return &LiveFeed{state: st, clock: clock, interval: interval, publishers: publishers}
}

// AddPublisher registers another receiver; call before Begin
func (f *LiveFeed) AddPublisher(p LivePublisher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishers = append(f.publishers, p)
}

// Begin starts the refresh loop if it is not running
func (f *LiveFeed) Begin() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.loop(ctx, f.done)
}

// End stops the loop and publishes the final snapshot of sess
func (f *LiveFeed) End(sess model.KMTrackerSession) {
	f.Close()
	f.publish(context.Background(), LiveSnapshotOf(sess, f.clock.Now()))
}

// Close stops the loop and waits for it to exit
func (f *LiveFeed) Close() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (f *LiveFeed) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess, ok := f.state.OpenSession()
			if !ok {
				continue
			}
			f.publish(ctx, LiveSnapshotOf(sess, f.clock.Now()))
		}
	}
}

func (f *LiveFeed) publish(ctx context.Context, snap model.LiveSnapshot) {
	f.mu.Lock()
	publishers := append([]LivePublisher(nil), f.publishers...)
	f.mu.Unlock()

	for _, p := range publishers {
		if err := p.PublishLive(ctx, snap); err != nil {
			log.Printf("[Tracker] Live publish failed: %v", err)
		}
	}
}

// LiveSnapshotOf builds the display view of sess at now
func LiveSnapshotOf(sess model.KMTrackerSession, now time.Time) model.LiveSnapshot {
	end := now
	if sess.EndTime != nil {
		end = *sess.EndTime
	}
	elapsed := int64(end.Sub(sess.StartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	return model.LiveSnapshot{
		SessionID:      sess.ID,
		VehicleID:      sess.VehicleID,
		Status:         sess.Status,
		ElapsedSeconds: elapsed,
		DistanceKm:     round2(sess.TotalDistanceKm),
		MaxSpeed:       sess.MaxSpeed,
		PointCount:     sess.PointCount,
		Timestamp:      now.UnixMilli(),
	}
}

// RedisLiveStore mirrors live snapshots into a Redis hash per session
type RedisLiveStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisLiveStore creates a live store with a one hour TTL
func NewRedisLiveStore(redisClient *redis.Client) *RedisLiveStore {
	return &RedisLiveStore{redis: redisClient, ttl: time.Hour}
}

func liveKey(sessionID string) string {
	return fmt.Sprintf("driverops:live:%s", sessionID)
}

func (r *RedisLiveStore) PublishLive(ctx context.Context, snap model.LiveSnapshot) error {
	fields := map[string]interface{}{
		"status":          string(snap.Status),
		"elapsed_seconds": snap.ElapsedSeconds,
		"distance_km":     snap.DistanceKm,
		"point_count":     snap.PointCount,
		"timestamp":       snap.Timestamp,
	}
	if snap.MaxSpeed != nil {
		fields["max_speed"] = *snap.MaxSpeed
	}
	if snap.VehicleID != nil {
		fields["vehicle_id"] = *snap.VehicleID
	}

	key := liveKey(snap.SessionID)
	pipe := r.redis.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write live snapshot: %w", err)
	}
	return nil
}

// Get reads back the last snapshot of a session
func (r *RedisLiveStore) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	result, err := r.redis.HGetAll(ctx, liveKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarshalLive encodes a snapshot for push channels
func MarshalLive(snap model.LiveSnapshot) ([]byte, error) {
	return json.Marshal(snap)
}
