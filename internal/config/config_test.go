package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envListenAddr, envDBPath, envLogLevel, envRequestTimeout,
		envPoolSize, envFaultRate, envTaskMin, envTaskMax, envTaskCheckpoint,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultRequestTimeout)
	}
	if cfg.PoolSize != 0 {
		t.Errorf("PoolSize = %d, want 0 (unbounded)", cfg.PoolSize)
	}
	if cfg.FaultRate != 0.5 {
		t.Errorf("FaultRate = %v, want 0.5", cfg.FaultRate)
	}
	if cfg.TaskMin != 5*time.Second || cfg.TaskMax != 11*time.Second {
		t.Errorf("task bounds = [%v, %v], want [5s, 11s]", cfg.TaskMin, cfg.TaskMax)
	}
	if cfg.TaskCheckpoint != time.Second {
		t.Errorf("TaskCheckpoint = %v, want 1s", cfg.TaskCheckpoint)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envRequestTimeout, "5s")
	t.Setenv(envPoolSize, "16")
	t.Setenv(envFaultRate, "0.25")
	t.Setenv(envTaskMin, "100ms")
	t.Setenv(envTaskMax, "250ms")
	t.Setenv(envTaskCheckpoint, "50ms")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.PoolSize != 16 {
		t.Errorf("PoolSize = %d, want 16", cfg.PoolSize)
	}
	if cfg.FaultRate != 0.25 {
		t.Errorf("FaultRate = %v, want 0.25", cfg.FaultRate)
	}
	if cfg.TaskMin != 100*time.Millisecond || cfg.TaskMax != 250*time.Millisecond {
		t.Errorf("task bounds = [%v, %v], want [100ms, 250ms]", cfg.TaskMin, cfg.TaskMax)
	}
	if cfg.TaskCheckpoint != 50*time.Millisecond {
		t.Errorf("TaskCheckpoint = %v, want 50ms", cfg.TaskCheckpoint)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(envRequestTimeout, "not-a-duration")
	t.Setenv(envPoolSize, "-3")
	t.Setenv(envFaultRate, "1.5")

	cfg := Load()

	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want default on bad input", cfg.RequestTimeout)
	}
	if cfg.PoolSize != 0 {
		t.Errorf("PoolSize = %d, want 0 on bad input", cfg.PoolSize)
	}
	if cfg.FaultRate != 0.5 {
		t.Errorf("FaultRate = %v, want default on out-of-range input", cfg.FaultRate)
	}
}

func TestLoadSwappedTaskBounds(t *testing.T) {
	clearEnv(t)
	t.Setenv(envTaskMin, "2s")
	t.Setenv(envTaskMax, "1s")

	cfg := Load()
	if cfg.TaskMax < cfg.TaskMin {
		t.Errorf("TaskMax %v < TaskMin %v after Load", cfg.TaskMax, cfg.TaskMin)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := parseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
}
