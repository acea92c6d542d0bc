package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"driverops/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuth(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/private", Auth("key"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubject))
	})

	exp := time.Now().Add(time.Hour).Unix()
	tests := map[string]struct {
		header string
		query  string
		want   int
	}{
		"valid":        {header: "Bearer " + signed(t, "key", jwt.MapClaims{"sub": "owner", "exp": exp}), want: http.StatusOK},
		"query token":  {query: signed(t, "key", jwt.MapClaims{"sub": "owner", "exp": exp}), want: http.StatusOK},
		"missing":      {want: http.StatusUnauthorized},
		"wrong secret": {header: "Bearer " + signed(t, "other", jwt.MapClaims{"sub": "owner", "exp": exp}), want: http.StatusUnauthorized},
		"expired":      {header: "Bearer " + signed(t, "key", jwt.MapClaims{"sub": "owner", "exp": time.Now().Add(-time.Hour).Unix()}), want: http.StatusUnauthorized},
		"no expiry":    {header: "Bearer " + signed(t, "key", jwt.MapClaims{"sub": "owner"}), want: http.StatusUnauthorized},
		"no subject":   {header: "Bearer " + signed(t, "key", jwt.MapClaims{"exp": exp}), want: http.StatusUnauthorized},
		"basic scheme": {header: "Basic b3duZXI6cHc=", want: http.StatusUnauthorized},
	}
	for name, tt := range tests {
		target := "/private"
		if tt.query != "" {
			target += "?token=" + tt.query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: status %d, want %d", name, rec.Code, tt.want)
		}
		if tt.want == http.StatusOK && rec.Body.String() != "owner" {
			t.Fatalf("%s: subject %q", name, rec.Body.String())
		}
	}
}

type countingLimiter struct {
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.counts[key]++
	n := l.counts[key]
	remaining := rule.Limit - n
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{Allowed: n <= rule.Limit, Remaining: remaining, Limit: rule.Limit, ResetAt: time.Now().Unix() + 60}, nil
}

func rateLimitedRouter(limiter RateLimiter) *gin.Engine {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{
		Enabled: true,
		Rules:   []config.RateLimitRule{{Path: "/api/v1/tracker/points", Limit: 2, Window: time.Minute}},
	}}
	r := gin.New()
	r.Use(RateLimit(limiter, cfg))
	r.POST("/api/v1/tracker/points", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.GET("/api/v1/vehicles", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{counts: map[string]int{}}
	r := rateLimitedRouter(limiter)

	want := []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}
	for i, code := range want {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tracker/points", nil))
		if rec.Code != code {
			t.Fatalf("request %d: status %d, want %d", i+1, rec.Code, code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("request %d: missing limit header", i+1)
		}
	}

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unlimited route returned %d", rec.Code)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	r := rateLimitedRouter(&countingLimiter{counts: map[string]int{}, err: errors.New("redis down")})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tracker/points", nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
}
