package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:            "postgres://localhost/staffledger",
		Environment:            "development",
		Timezone:               "UTC",
		PerDiemDivisor:         30,
		MaxBodyBytes:           1048576,
		RateLimitPerMinute:     60,
		ReportFetchConcurrency: 4,
		HousekeepingSchedule:   "0 3 * * *",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"zero divisor", func(c *Config) { c.PerDiemDivisor = 0 }},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"tiny body limit", func(c *Config) { c.MaxBodyBytes = 10 }},
		{"no fetch workers", func(c *Config) { c.ReportFetchConcurrency = 0 }},
		{"negative warm interval", func(c *Config) { c.ReportWarmInterval = -time.Second }},
		{"bad housekeeping schedule", func(c *Config) { c.HousekeepingSchedule = "every night" }},
		{"email without host", func(c *Config) { c.EmailEnabled = true }},
		{"production without secret", func(c *Config) { c.Environment = "production" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example/db")
	t.Setenv("PER_DIEM_DIVISOR", "26")
	t.Setenv("REPORT_WARM_INTERVAL", "0s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RUN_SEED", "not-a-bool")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://example/db" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.PerDiemDivisor != 26 {
		t.Fatalf("expected divisor 26, got %d", cfg.PerDiemDivisor)
	}
	if cfg.ReportWarmInterval != 0 {
		t.Fatalf("expected warm-up disabled, got %s", cfg.ReportWarmInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.RunSeed {
		t.Fatal("expected invalid bool to fall back to default")
	}
}

func TestLocationDefaultsToLocal(t *testing.T) {
	loc, err := Config{}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.Local {
		t.Fatalf("expected time.Local, got %s", loc)
	}
}
