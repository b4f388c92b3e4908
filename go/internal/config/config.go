package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr           string         `yaml:"http_addr"`
	LogLevel           string         `yaml:"log_level"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	Store              StoreConfig    `yaml:"store"`
	Database           DatabaseConfig `yaml:"database"`
	NATS               NATSConfig     `yaml:"nats"`
	Raffle             RaffleConfig   `yaml:"raffle"`
}

// StoreConfig selects where the session snapshot lives.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Key        string `yaml:"key"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// NATSConfig covers both the KV session store and the event archive.
type NATSConfig struct {
	URL           string `yaml:"url"`
	KVBucket      string `yaml:"kv_bucket"`
	PublishEvents bool   `yaml:"publish_events"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RaffleConfig holds draw timings.
type RaffleConfig struct {
	RevealDuration  time.Duration `yaml:"reveal_duration"`
	RevealTick      time.Duration `yaml:"reveal_tick"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	DefaultInterval time.Duration `yaml:"default_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		CORSAllowedOrigins: []string{"*"},
		Store: StoreConfig{
			Backend:    BackendFile,
			Key:        "raffle_session",
			DataDir:    "./data",
			SQLitePath: "./data/raffle.db",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "raffle",
			SSLMode:  "disable",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			KVBucket:      "RAFFLE_SESSIONS",
			Stream:        "RAFFLE_EVENTS",
			SubjectPrefix: "raffle.events",
		},
		Raffle: RaffleConfig{
			RevealDuration:  3 * time.Second,
			RevealTick:      50 * time.Millisecond,
			SettleDelay:     3 * time.Second,
			DefaultInterval: 8 * time.Second,
		},
	}
}

// Load reads the YAML file at path, if any, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.Key = getEnv("STORE_KEY", c.Store.Key)
	c.Store.DataDir = getEnv("DATA_DIR", c.Store.DataDir)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.KVBucket = getEnv("NATS_KV_BUCKET", c.NATS.KVBucket)
	c.NATS.PublishEvents = getEnvAsBool("NATS_PUBLISH_EVENTS", c.NATS.PublishEvents)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Raffle.RevealDuration = getEnvAsDuration("REVEAL_DURATION", c.Raffle.RevealDuration)
	c.Raffle.RevealTick = getEnvAsDuration("REVEAL_TICK", c.Raffle.RevealTick)
	c.Raffle.SettleDelay = getEnvAsDuration("SETTLE_DELAY", c.Raffle.SettleDelay)
	c.Raffle.DefaultInterval = getEnvAsDuration("DEFAULT_INTERVAL", c.Raffle.DefaultInterval)
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendPostgres, BackendNATS:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Key == "" {
		errs = append(errs, errors.New("store key must not be empty"))
	}
	if c.Raffle.RevealDuration < 0 || c.Raffle.RevealTick < 0 || c.Raffle.SettleDelay < 0 {
		errs = append(errs, errors.New("raffle timings must not be negative"))
	}
	if c.Raffle.RevealDuration > 0 && c.Raffle.RevealTick == 0 {
		errs = append(errs, errors.New("reveal tick must be positive when reveal duration is set"))
	}
	if c.Raffle.DefaultInterval <= 0 {
		errs = append(errs, errors.New("default interval must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
