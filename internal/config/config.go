// Package config loads server and worker settings with viper: defaults, an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alanyang/promptledger/internal/domain/page"
)

const envPrefix = "PROMPTLEDGER"

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	DatabaseURL     string           `mapstructure:"database_url"`
	MaxConns        int32            `mapstructure:"max_conns"`
	Port            int              `mapstructure:"port"`
	Storage         string           `mapstructure:"storage"`
	LogLevel        string           `mapstructure:"log_level"`
	Redis           RedisConfig      `mapstructure:"redis"`
	Pagination      PaginationConfig `mapstructure:"pagination"`
	IdempotencyTTL  time.Duration    `mapstructure:"idempotency_ttl"`
	ShutdownTimeout time.Duration    `mapstructure:"shutdown_timeout"`
	EventBus        EventBusConfig   `mapstructure:"eventbus"`
	Janitor         JanitorConfig    `mapstructure:"janitor"`
	Worker          WorkerConfig     `mapstructure:"worker"`
}

// RedisConfig points at the asynq broker. An empty Addr disables queue
// dispatch; workers then poll the ledger instead.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PaginationConfig struct {
	Prompts page.Limits `mapstructure:"prompts"`
	Runs    page.Limits `mapstructure:"runs"`
}

type EventBusConfig struct {
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// JanitorConfig controls the periodic purge of expired idempotency keys.
type JanitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// WorkerConfig also drives the stale-run reaper: runs still running after
// StaleAfter are failed, checked every ReapInterval. A zero StaleAfter
// disables the reaper.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:     8080,
		Storage:  StoragePostgres,
		LogLevel: "info",
		Pagination: PaginationConfig{
			Prompts: page.PromptLimits,
			Runs:    page.RunLimits,
		},
		IdempotencyTTL:  24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
		EventBus:        EventBusConfig{ChannelPrefix: "promptledger_"},
		Janitor:         JanitorConfig{Interval: 15 * time.Minute},
		Worker: WorkerConfig{
			Concurrency:  4,
			PollInterval: 2 * time.Second,
			StaleAfter:   time.Hour,
			ReapInterval: time.Minute,
		},
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply. Variables are named PROMPTLEDGER_<KEY> with dots
// replaced by underscores; DATABASE_URL, PORT and REDIS_ADDR are also honoured.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range map[string]string{
		"database_url": "DATABASE_URL",
		"port":         "PORT",
		"redis.addr":   "REDIS_ADDR",
	} {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), bare); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", bare, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("max_conns", d.MaxConns)
	v.SetDefault("port", d.Port)
	v.SetDefault("storage", d.Storage)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("pagination.prompts.default", d.Pagination.Prompts.Default)
	v.SetDefault("pagination.prompts.max", d.Pagination.Prompts.Max)
	v.SetDefault("pagination.runs.default", d.Pagination.Runs.Default)
	v.SetDefault("pagination.runs.max", d.Pagination.Runs.Max)
	v.SetDefault("idempotency_ttl", d.IdempotencyTTL)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("eventbus.channel_prefix", d.EventBus.ChannelPrefix)
	v.SetDefault("janitor.interval", d.Janitor.Interval)
	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.poll_interval", d.Worker.PollInterval)
	v.SetDefault("worker.stale_after", d.Worker.StaleAfter)
	v.SetDefault("worker.reap_interval", d.Worker.ReapInterval)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for postgres storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Pagination.Prompts.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pagination.prompts: %w", err))
	}
	if err := c.Pagination.Runs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pagination.runs: %w", err))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("idempotency_ttl must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be at least 1"))
	}
	if c.Worker.PollInterval <= 0 {
		errs = append(errs, errors.New("worker.poll_interval must be positive"))
	}
	if c.Worker.StaleAfter < 0 {
		errs = append(errs, errors.New("worker.stale_after must not be negative"))
	}
	if c.Worker.StaleAfter > 0 && c.Worker.ReapInterval <= 0 {
		errs = append(errs, errors.New("worker.reap_interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
