package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != defaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, defaultAddr)
	}
	if cfg.LeaseBackend != "sqlite" {
		t.Errorf("LeaseBackend = %q, want sqlite", cfg.LeaseBackend)
	}
	if filepath.Base(cfg.DBPath) != "faultsim.db" || !filepath.IsAbs(cfg.DBPath) {
		t.Errorf("DBPath = %q, want absolute faultsim.db", cfg.DBPath)
	}
	if cfg.ArchiveDir != "" {
		t.Errorf("ArchiveDir = %q, want disabled", cfg.ArchiveDir)
	}
	if cfg.MaxIterations <= 0 {
		t.Errorf("MaxIterations = %d, want positive", cfg.MaxIterations)
	}
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("FAULTSIM_PORT", "9100")
	t.Setenv("FAULTSIM_MC_WORKERS", "4")
	t.Setenv("FAULTSIM_MC_SEED", "42")
	t.Setenv("FAULTSIM_LEASE_TTL", "10s")
	t.Setenv("FAULTSIM_LOG_LEVEL", "debug")

	cfg, err := LoadConfig([]string{"-mc-seed", "7", "-archive-dir", "archive"})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9100" {
		t.Errorf("Addr = %q, want 127.0.0.1:9100", cfg.Addr)
	}
	if cfg.MCWorkers != 4 {
		t.Errorf("MCWorkers = %d, want 4", cfg.MCWorkers)
	}
	if cfg.MCSeed != 7 {
		t.Errorf("MCSeed = %d, want flag value 7", cfg.MCSeed)
	}
	if cfg.LeaseTTL != 10*time.Second {
		t.Errorf("LeaseTTL = %v, want 10s", cfg.LeaseTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !filepath.IsAbs(cfg.ArchiveDir) || filepath.Base(cfg.ArchiveDir) != "archive" {
		t.Errorf("ArchiveDir = %q, want absolute archive", cfg.ArchiveDir)
	}
}

func TestLoadConfig_AddrOverridesPort(t *testing.T) {
	t.Setenv("FAULTSIM_PORT", "9100")
	t.Setenv("FAULTSIM_ADDR", "0.0.0.0:8000")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8000" {
		t.Errorf("Addr = %q, want 0.0.0.0:8000", cfg.Addr)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		errorSubstr string
	}{
		{
			name:        "unknown lease backend",
			args:        []string{"-lease-backend", "etcd"},
			errorSubstr: "unsupported lease backend",
		},
		{
			name:        "redis without address",
			args:        []string{"-lease-backend", "redis", "-redis-addr", " "},
			errorSubstr: "requires redis-addr",
		},
		{
			name:        "zero lease ttl",
			args:        []string{"-lease-ttl", "0s"},
			errorSubstr: "lease ttl must be positive",
		},
		{
			name:        "negative workers",
			args:        []string{"-mc-workers", "-1"},
			errorSubstr: "mc-workers cannot be negative",
		},
		{
			name:        "zero max iterations",
			args:        []string{"-max-iterations", "0"},
			errorSubstr: "max-iterations must be positive",
		},
		{
			name:        "empty addr",
			args:        []string{"-addr", ""},
			errorSubstr: "addr cannot be empty",
		},
		{
			name:        "invalid lease ttl env",
			envVars:     map[string]string{"FAULTSIM_LEASE_TTL": "soon"},
			errorSubstr: "invalid FAULTSIM_LEASE_TTL",
		},
		{
			name:        "invalid workers env",
			envVars:     map[string]string{"FAULTSIM_MC_WORKERS": "many"},
			errorSubstr: "invalid FAULTSIM_MC_WORKERS",
		},
		{
			name:        "zero archive retention",
			args:        []string{"-archive-dir", "/tmp/a", "-archive-retention", "0s"},
			errorSubstr: "archive retention and interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(tt.args)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorSubstr)
			}
			if !strings.Contains(err.Error(), tt.errorSubstr) {
				t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", "json", &buf)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("simulation_failed", "namespace", "grid")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"simulation_failed"`) || !strings.Contains(out, `"namespace":"grid"`) {
		t.Errorf("unexpected log output: %s", out)
	}

	if _, err := newLogger("loud", "json", &buf); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := newLogger("info", "xml", &buf); err == nil {
		t.Error("expected error for invalid format")
	}
	if l, err := newLogger("debug", "text", &buf); err != nil || !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected debug text logger, got err=%v", err)
	}
}
