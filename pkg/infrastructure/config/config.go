package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PropagateAll makes a revaluation cascade through every downstream produced lot
const PropagateAll = -1

// Config holds process-wide settings for the costing engine and CLI
type Config struct {
	DatabasePath     string
	LogLevel         string
	LogFormat        string
	RollupMaxDepth   int
	PropagationDepth int
	RedisAddress     string
	EventStream      string
	LockTTL          time.Duration
	Actor            string
}

// Default returns the configuration used when no environment is set
func Default() Config {
	return Config{
		DatabasePath:     "costing.db",
		LogLevel:         "info",
		LogFormat:        "text",
		RollupMaxDepth:   64,
		PropagationDepth: 1,
		LockTTL:          30 * time.Second,
		Actor:            "system",
	}
}

// Load reads an optional .env file and then the COSTING_* and REDIS_ADDRESS variables
func Load() Config {
	// a missing .env is not an error
	_ = godotenv.Load()

	cfg := Default()
	cfg.DatabasePath = stringFromEnv("COSTING_DB_PATH", cfg.DatabasePath)
	cfg.LogLevel = stringFromEnv("COSTING_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = stringFromEnv("COSTING_LOG_FORMAT", cfg.LogFormat)
	cfg.RollupMaxDepth = intFromEnv("COSTING_ROLLUP_MAX_DEPTH", cfg.RollupMaxDepth)
	cfg.PropagationDepth = propagationFromEnv("COSTING_PROPAGATION_DEPTH", cfg.PropagationDepth)
	cfg.RedisAddress = stringFromEnv("REDIS_ADDRESS", cfg.RedisAddress)
	cfg.EventStream = stringFromEnv("COSTING_EVENT_STREAM", cfg.EventStream)
	cfg.LockTTL = time.Duration(intFromEnv("COSTING_LOCK_TTL_SECONDS", int(cfg.LockTTL/time.Second))) * time.Second
	cfg.Actor = stringFromEnv("COSTING_ACTOR", cfg.Actor)
	return cfg
}

func stringFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// propagationFromEnv accepts a positive hop count or "all"
func propagationFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if strings.EqualFold(v, "all") {
		return PropagateAll
	}
	n := intFromEnv(key, def)
	if n == 0 || n < PropagateAll {
		return def
	}
	return n
}
