package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the PixelFlow server.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Session    SessionConfig
	Redis      RedisConfig
	Simulation SimulationConfig
	Classifier ClassifierConfig
	Upload     UploadConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
	SeedDemoJobs    bool
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	Driver string
	Secret string
	TTL    time.Duration
}

type RedisConfig struct {
	URL string
}

// SimulationConfig holds the artificial delays standing in for real work.
type SimulationConfig struct {
	ProcessingDelay time.Duration
	RerunDelay      time.Duration
	UploadDelay     time.Duration
	ExportDelay     time.Duration
}

type ClassifierConfig struct {
	Kind        string
	AcceptRatio float64
	Seed        uint64
}

type UploadConfig struct {
	MaxFileBytes int64
	MaxFiles     int
}

const devSessionSecret = "pixelflow-development-secret"

var (
	validStoreDrivers   = map[string]bool{"memory": true, "postgres": true}
	validSessionDrivers = map[string]bool{"memory": true, "redis": true}
	validClassifiers    = map[string]bool{"random": true, "accept": true}
)

// Load reads configuration from environment variables and returns a validated Config.
// A .env or .env.local file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	env := envString("PIXELFLOW_ENV", "development")
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("PIXELFLOW_PORT", 8080),
			Env:             env,
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 120),
			SeedDemoJobs:    envBool("SEED_DEMO_JOBS", true),
		},
		Store: StoreConfig{
			Driver: envString("STORE_DRIVER", "memory"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Session: SessionConfig{
			Driver: envString("SESSION_DRIVER", "memory"),
			Secret: os.Getenv("SESSION_SECRET"),
			TTL:    envDuration("SESSION_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Simulation: SimulationConfig{
			ProcessingDelay: envDuration("PROCESSING_DELAY", 5*time.Second),
			RerunDelay:      envDuration("RERUN_DELAY", 2*time.Second),
			UploadDelay:     envDuration("UPLOAD_DELAY", 1500*time.Millisecond),
			ExportDelay:     envDuration("EXPORT_DELAY", 2*time.Second),
		},
		Classifier: ClassifierConfig{
			Kind:        envString("CLASSIFIER", "random"),
			AcceptRatio: envFloat("CLASSIFIER_ACCEPT_RATIO", 0.7),
			Seed:        uint64(envInt("CLASSIFIER_SEED", 0)),
		},
		Upload: UploadConfig{
			MaxFileBytes: int64(envInt("UPLOAD_MAX_FILE_BYTES", 10<<20)),
			MaxFiles:     envInt("UPLOAD_MAX_FILES", 200),
		},
	}

	if cfg.Session.Secret == "" && env == "development" {
		cfg.Session.Secret = devSessionSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PIXELFLOW_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !validStoreDrivers[c.Store.Driver] {
		return fmt.Errorf("STORE_DRIVER must be one of memory, postgres; got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
	}

	if !validSessionDrivers[c.Session.Driver] {
		return fmt.Errorf("SESSION_DRIVER must be one of memory, redis; got %q", c.Session.Driver)
	}
	if c.Session.Driver == "redis" {
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_DRIVER is redis")
		}
		if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
			return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
		}
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required outside development")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if !validClassifiers[c.Classifier.Kind] {
		return fmt.Errorf("CLASSIFIER must be one of random, accept; got %q", c.Classifier.Kind)
	}
	if c.Classifier.AcceptRatio < 0 || c.Classifier.AcceptRatio > 1 {
		return fmt.Errorf("CLASSIFIER_ACCEPT_RATIO must be within [0, 1], got %v", c.Classifier.AcceptRatio)
	}

	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_BYTES must be positive")
	}
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILES must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
