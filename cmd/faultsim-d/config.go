package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/api"
	"github.com/adamsih300u/bastion-sub008/pkg/archive"
)

const (
	defaultAddr         = "127.0.0.1:8090"
	defaultLeaseBackend = "sqlite"
	defaultRedisAddr    = "127.0.0.1:6379"
	defaultResultTTL    = 24 * time.Hour
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
)

type Config struct {
	DBPath        string
	Addr          string
	LeaseBackend  string
	RedisAddr     string
	LeaseTTL      time.Duration
	LockWait      time.Duration
	ResultTTL     time.Duration
	MCWorkers     int
	MCSeed        int64
	MaxIterations int

	ArchiveDir       string
	ArchiveRetention time.Duration
	ArchiveInterval  time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig reads FAULTSIM_* environment variables, then lets flags in
// args override them.
func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	leaseTTL, err := envDuration("FAULTSIM_LEASE_TTL", api.DefaultLeaseTTL)
	if err != nil {
		return Config{}, err
	}
	lockWait, err := envDuration("FAULTSIM_LOCK_WAIT", api.DefaultLockWait)
	if err != nil {
		return Config{}, err
	}
	resultTTL, err := envDuration("FAULTSIM_RESULT_TTL", defaultResultTTL)
	if err != nil {
		return Config{}, err
	}
	retention, err := envDuration("FAULTSIM_ARCHIVE_RETENTION", archive.DefaultRetention)
	if err != nil {
		return Config{}, err
	}
	interval, err := envDuration("FAULTSIM_ARCHIVE_INTERVAL", archive.DefaultCheckInterval)
	if err != nil {
		return Config{}, err
	}
	workers, err := envInt("FAULTSIM_MC_WORKERS", 0)
	if err != nil {
		return Config{}, err
	}
	seed, err := envInt("FAULTSIM_MC_SEED", 0)
	if err != nil {
		return Config{}, err
	}
	maxIter, err := envInt("FAULTSIM_MAX_ITERATIONS", api.DefaultMaxIterations)
	if err != nil {
		return Config{}, err
	}

	flagSet := flag.NewFlagSet("faultsim-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", envOrDefault("FAULTSIM_DB_PATH", filepath.Join(cwd, "faultsim.db")), "path to SQLite event log")
	flagAddr := flagSet.String("addr", addrFromEnv(defaultAddr), "HTTP listen address")
	flagLease := flagSet.String("lease-backend", envOrDefault("FAULTSIM_LEASE_BACKEND", defaultLeaseBackend), "namespace lease backend: sqlite|redis")
	flagRedis := flagSet.String("redis-addr", envOrDefault("FAULTSIM_REDIS_ADDR", defaultRedisAddr), "redis address for lease-backend=redis")
	flagLeaseTTL := flagSet.Duration("lease-ttl", leaseTTL, "namespace lease TTL")
	flagLockWait := flagSet.Duration("lock-wait", lockWait, "how long a call waits for a busy namespace")
	flagResultTTL := flagSet.Duration("result-ttl", resultTTL, "how long redis keeps the latest result")
	flagWorkers := flagSet.Int("mc-workers", int(workers), "Monte Carlo workers (0 = GOMAXPROCS)")
	flagSeed := flagSet.Int64("mc-seed", seed, "Monte Carlo base seed (0 = time based)")
	flagMaxIter := flagSet.Int("max-iterations", int(maxIter), "upper bound on monte_carlo_iterations")
	flagArchiveDir := flagSet.String("archive-dir", os.Getenv("FAULTSIM_ARCHIVE_DIR"), "archive aged events under this directory (empty disables)")
	flagRetention := flagSet.Duration("archive-retention", retention, "age after which events are archived")
	flagInterval := flagSet.Duration("archive-interval", interval, "archive check interval")
	flagLevel := flagSet.String("log-level", envOrDefault("FAULTSIM_LOG_LEVEL", defaultLogLevel), "debug|info|warn|error")
	flagFormat := flagSet.String("log-format", envOrDefault("FAULTSIM_LOG_FORMAT", defaultLogFormat), "json|text")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
		}
		return Config{}, err
	}

	config := Config{
		DBPath:           resolvePath(*flagDB, cwd),
		Addr:             strings.TrimSpace(*flagAddr),
		LeaseBackend:     strings.ToLower(strings.TrimSpace(*flagLease)),
		RedisAddr:        strings.TrimSpace(*flagRedis),
		LeaseTTL:         *flagLeaseTTL,
		LockWait:         *flagLockWait,
		ResultTTL:        *flagResultTTL,
		MCWorkers:        *flagWorkers,
		MCSeed:           *flagSeed,
		MaxIterations:    *flagMaxIter,
		ArchiveDir:       resolvePath(*flagArchiveDir, cwd),
		ArchiveRetention: *flagRetention,
		ArchiveInterval:  *flagInterval,
		LogLevel:         strings.ToLower(strings.TrimSpace(*flagLevel)),
		LogFormat:        strings.ToLower(strings.TrimSpace(*flagFormat)),
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("db cannot be empty")
	}
	switch c.LeaseBackend {
	case "sqlite":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("lease-backend=redis requires redis-addr")
		}
	default:
		return fmt.Errorf("unsupported lease backend: %s", c.LeaseBackend)
	}
	if c.LeaseTTL <= 0 {
		return errors.New("lease ttl must be positive")
	}
	if c.MCWorkers < 0 {
		return errors.New("mc-workers cannot be negative")
	}
	if c.MaxIterations <= 0 {
		return errors.New("max-iterations must be positive")
	}
	if c.ArchiveDir != "" && (c.ArchiveRetention <= 0 || c.ArchiveInterval <= 0) {
		return errors.New("archive retention and interval must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("FAULTSIM_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("FAULTSIM_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
