package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the mediaqueue server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Executor  ExecutorConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// QueueConfig tunes the per-user workers.
type QueueConfig struct {
	PollTimeout  time.Duration
	IdleSleep    time.Duration
	TaskTimeout  time.Duration // 0 disables the per-call executor deadline
	RestartDelay time.Duration
}

type StorageConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

type ExecutorConfig struct {
	Provider string
	Remote   RemoteExecutorConfig
}

type RemoteExecutorConfig struct {
	BaseURL string
	Timeout time.Duration
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

var validProviders = map[string]bool{
	"remote": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MEDIAQUEUE_PORT", 8080),
			Env:  envString("MEDIAQUEUE_ENV", "development"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			PollTimeout:  envDuration("QUEUE_POLL_TIMEOUT", time.Second),
			IdleSleep:    envDuration("QUEUE_IDLE_SLEEP", 100*time.Millisecond),
			TaskTimeout:  envDuration("QUEUE_TASK_TIMEOUT", 10*time.Minute),
			RestartDelay: envDuration("QUEUE_RESTART_DELAY", time.Second),
		},
		Storage: StorageConfig{
			UploadDir:      envString("UPLOAD_DIR", "uploads"),
			MaxUploadBytes: int64(envInt("UPLOAD_MAX_BYTES", 50*1024*1024)),
		},
		Executor: ExecutorConfig{
			Provider: os.Getenv("EXECUTOR_PROVIDER"),
			Remote: RemoteExecutorConfig{
				BaseURL: os.Getenv("EXECUTOR_BASE_URL"),
				Timeout: envDurationSecs("EXECUTOR_TIMEOUT_SECS", 5*time.Minute),
			},
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: envString("OTEL_SERVICE_NAME", "mediaqueue"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. Used by tooling that does
// not need the rest of the server configuration.
func LoadDatabase() (DatabaseConfig, error) {
	db := loadDatabase()
	if db.URL == "" {
		return db, fmt.Errorf("DATABASE_URL is required")
	}
	return db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Executor.Provider == "" {
		return fmt.Errorf("EXECUTOR_PROVIDER is required")
	}
	if !validProviders[c.Executor.Provider] {
		return fmt.Errorf("EXECUTOR_PROVIDER must be one of remote, mock; got %q", c.Executor.Provider)
	}
	if c.Executor.Provider == "remote" {
		if c.Executor.Remote.BaseURL == "" {
			return fmt.Errorf("EXECUTOR_BASE_URL is required when EXECUTOR_PROVIDER is remote")
		}
		if !strings.HasPrefix(c.Executor.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Executor.Remote.BaseURL, "https://") {
			return fmt.Errorf("EXECUTOR_BASE_URL must start with http:// or https://, got %q", c.Executor.Remote.BaseURL)
		}
	}

	if c.Queue.PollTimeout <= 0 {
		return fmt.Errorf("QUEUE_POLL_TIMEOUT must be positive, got %s", c.Queue.PollTimeout)
	}
	if c.Queue.TaskTimeout < 0 {
		return fmt.Errorf("QUEUE_TASK_TIMEOUT must not be negative, got %s", c.Queue.TaskTimeout)
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Storage.MaxUploadBytes)
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

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
