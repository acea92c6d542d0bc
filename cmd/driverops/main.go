package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"driverops/internal/config"
	"driverops/internal/handler"
	"driverops/internal/location"
	"driverops/internal/notify"
	"driverops/internal/server"
	"driverops/internal/service"
	"driverops/internal/state"
	"driverops/internal/store"
)

func main() {
	log.Println("[API] Starting driverops API server...")

	cfg := config.Load()
	ctx := context.Background()

	port, closeStorage := openStorage(cfg)
	defer closeStorage()

	st := state.New(port)
	if err := st.Load(ctx); err != nil {
		log.Fatalf("[API] Failed to load state: %v", err)
	}
	log.Printf("[API] State loaded from %s storage", cfg.Storage)

	// Redis 可选：实时会话影子和限流
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
			DB:   0,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("[API] Failed to connect to Redis: %v", err)
		}
		log.Println("[API] Connected to Redis")
		defer redisClient.Close()
	}

	// NATS 可选：通知事件和 GPS 定位点
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("driverops-api"))
		if err != nil {
			log.Fatalf("[API] Failed to connect to NATS: %v", err)
		}
		natsConn = nc
		log.Println("[API] Connected to NATS")
		defer natsConn.Close()
	}

	var sinks []notify.Sink
	if natsConn != nil {
		sinks = append(sinks, notify.NewNATSSink(natsConn))
	}
	if cfg.FCMCredentialsFile != "" {
		fcm, err := notify.NewFCMSink(ctx, cfg.FCMCredentialsFile, cfg.FCMTopic)
		if err != nil {
			log.Fatalf("[API] Failed to init FCM: %v", err)
		}
		sinks = append(sinks, fcm)
		log.Printf("[API] FCM notifications to topic %s", cfg.FCMTopic)
	}
	dispatcher := notify.NewDispatcher(sinks...)

	clock := service.NewClock(cfg.Location)
	hub := handler.NewLiveHub()
	live := service.NewLiveFeed(st, clock, cfg.LiveRefresh, hub)
	if redisClient != nil {
		live.AddPublisher(service.NewRedisLiveStore(redisClient))
	}

	events := service.NewKmEvents()
	vehicles := service.NewVehicleService(st, clock, events)
	costs := service.NewCostService(st, clock, dispatcher)
	maintenance := service.NewMaintenanceService(st, clock, dispatcher)
	events.Subscribe(costs)
	events.Subscribe(maintenance)
	earnings := service.NewEarningsService(st, clock, vehicles)
	tracker := service.NewTrackerService(st, clock, service.TrackerConfig{
		MaxAccuracyMeters: cfg.GPSMaxAccuracyMeters,
		MaxRetainedPoints: cfg.GPSMaxRetainedPoints,
	}, vehicles, earnings, live)
	targets := service.NewTargetService(st, clock, costs, earnings)

	h := handler.New(handler.Services{
		Clock:       clock,
		Auth:        service.NewAuthService(cfg.OwnerPasswordHash, cfg.JWTSecret, cfg.TokenTTL, clock),
		Vehicles:    vehicles,
		Catalog:     service.NewCatalogService(st, clock),
		Costs:       costs,
		Maintenance: maintenance,
		Earnings:    earnings,
		Tracker:     tracker,
		Settings:    service.NewSettingsService(st, clock),
		Targets:     targets,
		Snapshot:    service.NewSnapshotService(st, clock),
		Export:      service.NewExportService(costs, earnings, targets, clock),
	}, hub)
	if cfg.OwnerPasswordHash == "" {
		log.Println("[API] OWNER_PASSWORD_HASH is not set, login is disabled")
	}

	go hub.Run()
	tracker.ResumeFeed()

	scheduler := service.NewScheduler(costs, maintenance, clock, cfg.SweepInterval)
	scheduler.Start()

	var subscriber *location.Subscriber
	if natsConn != nil {
		subscriber = location.NewSubscriber(natsConn, tracker)
		if err := subscriber.Start(); err != nil {
			log.Fatalf("[API] Failed to subscribe to locations: %v", err)
		}
	}

	srv := server.NewServer(cfg, h, hub, redisClient)
	srv.Setup()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	go func() {
		if err := srv.Run(addr); err != nil {
			log.Fatalf("[API] Failed to start server: %v", err)
		}
	}()
	log.Printf("[API] Server ready on %s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("[API] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] HTTP shutdown: %v", err)
	}
	if subscriber != nil {
		subscriber.Stop()
	}
	scheduler.Stop()
	live.Close()
	hub.Stop()
	log.Println("[API] WebSocket hub stopped")
	dispatcher.Wait()
	log.Println("[API] Server stopped")
}

// openStorage returns the persistence port selected by STORAGE and its close func
func openStorage(cfg *config.Config) (store.Port, func()) {
	switch cfg.Storage {
	case "memory":
		log.Println("[API] Using in-memory storage, data is lost on exit")
		return store.NewMemoryPort(), func() {}

	case "postgres":
		sqlDB, db, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[API] Failed to connect to database: %v", err)
		}
		log.Println("[API] Connected to database")

		if err := store.Migrate(sqlDB); err != nil {
			log.Fatalf("[API] Failed to migrate database: %v", err)
		}
		log.Println("[API] Database migrated")
		return store.NewGormPort(db), func() { sqlDB.Close() }

	default:
		log.Fatalf("[API] Unknown STORAGE %q, want postgres or memory", cfg.Storage)
		return nil, nil
	}
}
