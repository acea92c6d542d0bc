package config

import (
	"testing"
	"time"
)

func TestLoadClampsSweepInterval(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_HOURS", "6")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")

	cfg := Load()
	if cfg.SweepInterval != 24*time.Hour {
		t.Fatalf("expected sweep interval clamped to 24h, got %s", cfg.SweepInterval)
	}
	if cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("expected configured timezone, got %s", cfg.Location)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GPS_MAX_ACCURACY_METERS", "")
	t.Setenv("STORAGE", "")

	cfg := Load()
	if cfg.GPSMaxAccuracyMeters != 50 {
		t.Fatalf("expected accuracy threshold 50, got %v", cfg.GPSMaxAccuracyMeters)
	}
	if cfg.Storage != "postgres" {
		t.Fatalf("expected postgres storage by default, got %q", cfg.Storage)
	}
	if cfg.LiveRefresh != time.Second {
		t.Fatalf("expected 1s live refresh, got %s", cfg.LiveRefresh)
	}
}

func TestRuleForPath(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{Rules: []RateLimitRule{
		{Path: "/api/v1/tracker/points", Limit: 240, Window: time.Minute},
	}}}

	if rule, ok := cfg.RuleForPath("/api/v1/tracker/points"); !ok || rule.Limit != 240 {
		t.Fatalf("expected points rule, got %+v ok=%v", rule, ok)
	}
	if _, ok := cfg.RuleForPath("/api/v1/costs"); ok {
		t.Fatal("unexpected rule for /api/v1/costs")
	}
}
