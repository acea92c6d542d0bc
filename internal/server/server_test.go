package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"driverops/internal/config"
	"driverops/internal/handler"
	"driverops/internal/service"
	"driverops/internal/state"
	"driverops/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st := state.New(store.NewMemoryPort())
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load state: %v", err)
	}
	clock := service.NewClock(time.UTC)
	hash, err := bcrypt.GenerateFromPassword([]byte("owner-pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	events := service.NewKmEvents()
	vehicles := service.NewVehicleService(st, clock, events)
	earnings := service.NewEarningsService(st, clock, vehicles)
	h := handler.New(handler.Services{
		Clock:    clock,
		Auth:     service.NewAuthService(string(hash), "server-secret", time.Hour, clock),
		Vehicles: vehicles,
		Catalog:  service.NewCatalogService(st, clock),
		Earnings: earnings,
		Tracker:  service.NewTrackerService(st, clock, service.DefaultTrackerConfig, vehicles, earnings, nil),
	}, nil)

	cfg := &config.Config{Storage: "memory", JWTSecret: "server-secret"}
	srv := NewServer(cfg, h, nil, nil)
	srv.Setup()
	return srv
}

func serve(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["redis"] != "disabled" || body["storage"] != "memory" {
		t.Fatalf("unexpected health %v", body)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	if rec := serve(srv, http.MethodGet, "/api/v1/vehicles", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request status %d", rec.Code)
	}

	rec := serve(srv, http.MethodPost, "/api/v1/auth/login", `{"password":"owner-pw"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if rec := serve(srv, http.MethodGet, "/api/v1/vehicles", "", login.Token); rec.Code != http.StatusOK {
		t.Fatalf("authorized request status %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, "/api/v1/tracker/start", "", login.Token); rec.Code != http.StatusCreated {
		t.Fatalf("tracker start status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(srv, http.MethodOptions, "/api/v1/vehicles", "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
}
