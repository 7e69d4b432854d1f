package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"COSTING_DB_PATH", "COSTING_LOG_LEVEL", "COSTING_ROLLUP_MAX_DEPTH", "COSTING_PROPAGATION_DEPTH", "REDIS_ADDRESS", "COSTING_LOCK_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DatabasePath != "costing.db" {
		t.Errorf("Expected default database path, got %s", cfg.DatabasePath)
	}
	if cfg.RollupMaxDepth != 64 {
		t.Errorf("Expected max depth 64, got %d", cfg.RollupMaxDepth)
	}
	if cfg.PropagationDepth != 1 {
		t.Errorf("Expected propagation depth 1, got %d", cfg.PropagationDepth)
	}
	if cfg.RedisAddress != "" {
		t.Errorf("Expected no redis address, got %s", cfg.RedisAddress)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Errorf("Expected lock ttl 30s, got %s", cfg.LockTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COSTING_DB_PATH", "/tmp/ledger.db")
	t.Setenv("COSTING_ROLLUP_MAX_DEPTH", "12")
	t.Setenv("COSTING_PROPAGATION_DEPTH", "all")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("COSTING_LOCK_TTL_SECONDS", "5")

	cfg := Load()
	if cfg.DatabasePath != "/tmp/ledger.db" {
		t.Errorf("Expected overridden path, got %s", cfg.DatabasePath)
	}
	if cfg.RollupMaxDepth != 12 {
		t.Errorf("Expected max depth 12, got %d", cfg.RollupMaxDepth)
	}
	if cfg.PropagationDepth != PropagateAll {
		t.Errorf("Expected PropagateAll, got %d", cfg.PropagationDepth)
	}
	if cfg.RedisAddress != "localhost:6379" {
		t.Errorf("Expected redis address, got %s", cfg.RedisAddress)
	}
	if cfg.LockTTL != 5*time.Second {
		t.Errorf("Expected lock ttl 5s, got %s", cfg.LockTTL)
	}
}

func TestIntFromEnv_FallsBackOnGarbage(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 7},
		{"number", "3", 3},
		{"garbage", "three", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COSTING_TEST_INT", tt.value)
			if got := intFromEnv("COSTING_TEST_INT", 7); got != tt.want {
				t.Errorf("intFromEnv(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
