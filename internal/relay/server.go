package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"driverops/internal/config"
	"driverops/internal/location"
)

const (
	// maxLineLength bounds one JSON sample; longer input is discarded
	maxLineLength = 4096
	sessionTTL    = 300 * time.Second
	readTimeout   = 300 * time.Second
)

var heartbeat = []byte("PING")

// SamplePublisher forwards decoded samples
type SamplePublisher interface {
	Publish(deviceID string, s location.Sample) error
}

// Server accepts line-delimited JSON samples over TCP and republishes them
type Server struct {
	config    *config.RelayConfig
	redis     *redis.Client
	publisher SamplePublisher
	listener  net.Listener
	sessions  sync.Map // map[string]*Session
	ctx       context.Context
	cancel    context.CancelFunc
}

// Session is one connected device
type Session struct {
	ConnID     string
	DeviceID   string
	Conn       net.Conn
	ClientIP   string
	Samples    int
	LastActive time.Time
	mu         sync.RWMutex
}

func (s *Session) touch() {
	s.mu.Lock()
	s.Samples++
	s.LastActive = time.Now()
	s.mu.Unlock()
}

// NewServer creates a relay; redisClient may be nil to skip the session registry
func NewServer(cfg *config.RelayConfig, redisClient *redis.Client, publisher SamplePublisher) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:    cfg,
		redis:     redisClient,
		publisher: publisher,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start listens on the relay port and the management HTTP port
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	log.Printf("[Relay] TCP server listening on %s", addr)

	go s.startHTTPServer()
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection
func (s *Server) Stop() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.sessions.Range(func(key, value interface{}) bool {
		if session, ok := value.(*Session); ok {
			session.Conn.Close()
		}
		return true
	})
}

func (s *Server) acceptLoop() {
	connID := 0
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Printf("[Relay] Accept error: %v", err)
				continue
			}
		}

		connID++
		session := &Session{
			ConnID:     fmt.Sprintf("%s-%d", s.config.RelayID, connID),
			Conn:       conn,
			ClientIP:   conn.RemoteAddr().String(),
			LastActive: time.Now(),
		}
		go s.handleConnection(session)
	}
}

func (s *Server) handleConnection(session *Session) {
	defer func() {
		s.cleanupSession(session)
		session.Conn.Close()
	}()

	log.Printf("[Relay] New connection: %s from %s", session.ConnID, session.ClientIP)

	reader := bufio.NewReader(session.Conn)
	buffer := make([]byte, 4096)
	var pending []byte

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		session.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := reader.Read(buffer)
		if err != nil {
			if err != io.EOF {
				log.Printf("[Relay] Read error from %s: %v", session.ConnID, err)
			}
			return
		}
		pending = append(pending, buffer[:n]...)

		for {
			var line []byte
			line, pending = extractLine(pending)
			if line == nil {
				break
			}
			s.handleLine(session, line)
		}
	}
}

// extractLine splits the first complete line off data. It returns a nil line when
// more input is needed; an overlong unterminated line is dropped.
func extractLine(data []byte) (line, rest []byte) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		if len(data) > maxLineLength {
			return nil, nil
		}
		return nil, data
	}
	line = bytes.TrimSpace(data[:idx])
	rest = data[idx+1:]
	if line == nil {
		line = []byte{}
	}
	return line, rest
}

func (s *Server) handleLine(session *Session, line []byte) {
	if len(line) == 0 {
		return
	}
	if bytes.Equal(line, heartbeat) {
		session.Conn.Write([]byte("PONG\n"))
		s.updateSessionTTL(session)
		return
	}

	sample, err := location.Decode(line)
	if err != nil {
		log.Printf("[Relay] Bad sample from %s: %v", session.ConnID, err)
		return
	}
	if session.DeviceID == "" {
		if sample.DeviceID == "" {
			log.Printf("[Relay] Sample without device_id from %s", session.ConnID)
			return
		}
		session.DeviceID = sample.DeviceID
		s.sessions.Store(session.DeviceID, session)
		s.registerSession(session)
	}

	if err := s.publisher.Publish(session.DeviceID, sample); err != nil {
		log.Printf("[Relay] Publish failed for %s: %v", session.DeviceID, err)
		return
	}
	session.touch()
	s.updateSessionTTL(session)
}

func sessionKey(deviceID string) string {
	return fmt.Sprintf("driverops:relay:sess:%s", deviceID)
}

func (s *Server) registerSession(session *Session) {
	if s.redis == nil {
		return
	}
	value := fmt.Sprintf("%s:%s:%s", s.config.RelayID, session.ConnID, session.ClientIP)
	if err := s.redis.Set(s.ctx, sessionKey(session.DeviceID), value, sessionTTL).Err(); err != nil {
		log.Printf("[Relay] Failed to register session: %v", err)
		return
	}
	log.Printf("[Relay] Session registered: %s -> %s", session.DeviceID, value)
}

func (s *Server) updateSessionTTL(session *Session) {
	if s.redis == nil || session.DeviceID == "" {
		return
	}
	s.redis.Expire(s.ctx, sessionKey(session.DeviceID), sessionTTL)
}

func (s *Server) cleanupSession(session *Session) {
	log.Printf("[Relay] Connection closed: %s", session.ConnID)
	if session.DeviceID == "" {
		return
	}
	// a reconnect may already own the device entry and its registration
	if !s.sessions.CompareAndDelete(session.DeviceID, session) {
		return
	}
	if s.redis != nil {
		s.redis.Del(s.ctx, sessionKey(session.DeviceID))
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sessions", s.handleSessions)
	return mux
}

func (s *Server) startHTTPServer() {
	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	log.Printf("[Relay] HTTP server listening on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: s.handler(),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Relay] HTTP server error: %v", err)
		}
	}()

	<-s.ctx.Done()
	server.Shutdown(context.Background())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"relay_id": s.config.RelayID,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := make([]map[string]interface{}, 0)
	s.sessions.Range(func(key, value interface{}) bool {
		if session, ok := value.(*Session); ok {
			session.mu.RLock()
			sessions = append(sessions, map[string]interface{}{
				"conn_id":     session.ConnID,
				"device_id":   session.DeviceID,
				"client_ip":   session.ClientIP,
				"samples":     session.Samples,
				"last_active": session.LastActive,
			})
			session.mu.RUnlock()
		}
		return true
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}
