package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"driverops/internal/config"
	"driverops/internal/handler"
	"driverops/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	redis      *redis.Client
	handler    *handler.Handler
	hub        *handler.LiveHub
	httpServer *http.Server
}

// NewServer creates a new server instance; redisClient and hub may be nil
func NewServer(cfg *config.Config, h *handler.Handler, hub *handler.LiveHub, redisClient *redis.Client) *Server {
	return &Server{
		config:  cfg,
		handler: h,
		hub:     hub,
		redis:   redisClient,
	}
}

// Setup initializes routes and middleware
func (s *Server) Setup() {
	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	if s.config.RateLimit.Enabled && s.redis != nil {
		s.router.Use(middleware.RateLimit(middleware.NewRedisRateLimiter(s.redis), s.config))
		log.Println("[Server] Rate limiting enabled")
	}

	// Public routes
	s.router.GET("/health", s.health)
	s.router.POST("/api/v1/auth/login", s.handler.Login)

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(middleware.Auth(s.config.JWTSecret))
	s.handler.RegisterRoutes(api)
}

func (s *Server) health(c *gin.Context) {
	health := gin.H{
		"status":  "ok",
		"storage": s.config.Storage,
	}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			health["redis"] = "unavailable"
		} else {
			health["redis"] = "ok"
		}
	} else {
		health["redis"] = "disabled"
	}
	if s.hub != nil {
		health["live_clients"] = s.hub.ClientCount()
	}
	c.JSON(http.StatusOK, health)
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	log.Printf("[Server] HTTP server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
