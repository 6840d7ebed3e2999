package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	unsetEnv(t, "APP_ADDR", "DB_DRIVER", "SEAT_HOLD", "SWEEP_INTERVAL", "SEAT_MAP_CACHE_TTL")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if env.AppAddr != ":8080" {
		t.Fatalf("AppAddr = %q", env.AppAddr)
	}
	if env.DBDriver != DriverMySQL {
		t.Fatalf("DBDriver = %q", env.DBDriver)
	}
	if env.SeatHold != 5*time.Minute || env.SweepInterval != 30*time.Second {
		t.Fatalf("hold=%s sweep=%s", env.SeatHold, env.SweepInterval)
	}
	if env.SeatMapCacheTTL != 2*time.Second {
		t.Fatalf("SeatMapCacheTTL = %s", env.SeatMapCacheTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Memory")
	t.Setenv("SEAT_HOLD", "2m")
	t.Setenv("SWEEP_INTERVAL", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if env.DBDriver != DriverMemory {
		t.Fatalf("DBDriver = %q", env.DBDriver)
	}
	if len(env.CORSAllowedOrigins) != 2 {
		t.Fatalf("origins = %v", env.CORSAllowedOrigins)
	}
}

func TestValidateRejectsSweepNotShorterThanHold(t *testing.T) {
	env := Env{DBDriver: DriverMemory, SeatHold: time.Minute, SweepInterval: time.Minute}
	if err := env.Validate(); err == nil {
		t.Fatalf("expected error when sweep interval equals hold")
	}
	env.SweepInterval = 20 * time.Second
	if err := env.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	env := Env{DBDriver: "sqlite", SeatHold: time.Minute, SweepInterval: time.Second}
	if err := env.Validate(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestDSNDefaults(t *testing.T) {
	if dsn := (Env{DBDriver: DriverMySQL}).DSN(); dsn == "" {
		t.Fatalf("empty mysql dsn")
	}
	if dsn := (Env{DBDriver: DriverPostgres, DBDSN: "postgres://x"}).DSN(); dsn != "postgres://x" {
		t.Fatalf("explicit dsn not used: %s", dsn)
	}
}
