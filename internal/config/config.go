package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crunchio/activityd/internal/task"
)

const (
	defaultListenAddr     = ":8080"
	defaultDBPath         = "activityd.db"
	defaultRequestTimeout = 8 * time.Second

	envListenAddr     = "ACTIVITYD_LISTEN_ADDR"
	envDBPath         = "ACTIVITYD_DB_PATH"
	envLogLevel       = "ACTIVITYD_LOG_LEVEL"
	envRequestTimeout = "ACTIVITYD_REQUEST_TIMEOUT"
	envPoolSize       = "ACTIVITYD_POOL_SIZE"
	envFaultRate      = "ACTIVITYD_FAULT_RATE"
	envTaskMin        = "ACTIVITYD_TASK_MIN"
	envTaskMax        = "ACTIVITYD_TASK_MAX"
	envTaskCheckpoint = "ACTIVITYD_TASK_CHECKPOINT"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	DBPath         string
	LogLevel       slog.Level
	RequestTimeout time.Duration
	PoolSize       int // 0 means unbounded
	FaultRate      float64
	TaskMin        time.Duration
	TaskMax        time.Duration
	TaskCheckpoint time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DBPath:         defaultDBPath,
		LogLevel:       slog.LevelInfo,
		RequestTimeout: defaultRequestTimeout,
		PoolSize:       0,
		FaultRate:      task.DefaultFaultRate,
		TaskMin:        task.DefaultMinDuration,
		TaskMax:        task.DefaultMaxDuration,
		TaskCheckpoint: task.DefaultCheckpoint,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envRequestTimeout); v != "" {
		cfg.RequestTimeout = parseDuration(v, cfg.RequestTimeout)
	}
	if v := os.Getenv(envPoolSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv(envFaultRate); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.FaultRate = f
		}
	}
	if v := os.Getenv(envTaskMin); v != "" {
		cfg.TaskMin = parseDuration(v, cfg.TaskMin)
	}
	if v := os.Getenv(envTaskMax); v != "" {
		cfg.TaskMax = parseDuration(v, cfg.TaskMax)
	}
	if v := os.Getenv(envTaskCheckpoint); v != "" {
		cfg.TaskCheckpoint = parseDuration(v, cfg.TaskCheckpoint)
	}

	if cfg.TaskMax < cfg.TaskMin {
		cfg.TaskMax = cfg.TaskMin
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
