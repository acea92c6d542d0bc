package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"driverops/internal/config"
	"driverops/internal/location"
	"driverops/internal/relay"
)

func main() {
	log.Println("[Relay] Starting driverops GPS relay...")

	cfg := config.LoadRelay()
	log.Printf("[Relay] Configuration loaded: ID=%s, Port=%d", cfg.RelayID, cfg.Port)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("[Relay] Failed to connect to Redis: %v", err)
	}
	log.Println("[Relay] Connected to Redis")
	defer redisClient.Close()

	// Connect to NATS
	natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("driverops-relay-"+cfg.RelayID))
	if err != nil {
		log.Fatalf("[Relay] Failed to connect to NATS: %v", err)
	}
	log.Println("[Relay] Connected to NATS")
	defer natsConn.Close()

	server := relay.NewServer(cfg, redisClient, location.NewPublisher(natsConn))
	if err := server.Start(); err != nil {
		log.Fatalf("[Relay] Failed to start TCP server: %v", err)
	}
	log.Printf("[Relay] HTTP API on port %d", cfg.HTTPPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("[Relay] Shutting down...")

	server.Stop()
	natsConn.Drain()
	log.Println("[Relay] Server stopped")
}
