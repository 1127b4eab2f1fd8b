package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Address)
	}
	if cfg.Jobs.MaxWorkers != 4 || cfg.Jobs.JobTimeout != 10*time.Minute || cfg.Jobs.ResultTTL != time.Hour {
		t.Errorf("unexpected job defaults %+v", cfg.Jobs)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Storage.Backend)
	}
	if cfg.Defaults.TMax != 50 || cfg.Defaults.P != 0.5 || cfg.Defaults.Trials != 20 {
		t.Errorf("unexpected simulation defaults %+v", cfg.Defaults)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("JOB_MAX_WORKERS", "8")
	t.Setenv("JOB_TIMEOUT", "90s")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("DEFAULT_PROBABILITY", "0.3")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Address != ":9090" || cfg.Jobs.MaxWorkers != 8 || cfg.Jobs.JobTimeout != 90*time.Second {
		t.Errorf("environment not applied: %+v %+v", cfg.Server, cfg.Jobs)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisURL != "redis://cache:6379/2" {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Defaults.P != 0.3 {
		t.Errorf("expected p 0.3, got %v", cfg.Defaults.P)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"no workers", "JOB_MAX_WORKERS", "0"},
		{"unknown store", "STORE_BACKEND", "etcd"},
		{"zero timeout", "JOB_TIMEOUT", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
