package config

import (
	"os"
	"testing"
	"time"
)

// unset clears keys for the duration of the test.
func unset(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unset(t, "STORE", "HTTP_ADDR", "FINALIZE_TIMEOUT", "JWT_EXPIRES_DAYS", "SESSION_TTL", "SWEEP_INTERVAL")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":5175" || cfg.Store != StoreSQLite || cfg.FinalizeTimeout != 10*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.SessionTTL != 6*time.Hour || cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("session expiry defaults = %v, %v", cfg.SessionTTL, cfg.SweepInterval)
	}
	if cfg.TokenTTL() != 14*24*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.TokenTTL())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("FINALIZE_TIMEOUT", "3s")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("JWT_EXPIRES_DAYS", "2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != StoreMemory || cfg.FinalizeTimeout != 3*time.Second || !cfg.SecureCookies || cfg.JWTExpiresDays != 2 {
		t.Fatalf("overrides = %+v", cfg)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for STORE=redis")
	}
}

func TestLoadRejectsNonPositiveSessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for SESSION_TTL=0s")
	}
}
