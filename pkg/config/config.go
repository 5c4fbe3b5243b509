package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/docsapi/pkg/observability"
)

// ConfigFileEnv names the optional YAML file applied before env overrides
const ConfigFileEnv = "DOCSAPI_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Redis         RedisConfig         `yaml:"redis"`
	Cache         CacheConfig         `yaml:"cache"`
	Queue         QueueConfig         `yaml:"queue"`
	Docs          DocsConfig          `yaml:"docs"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// StorageConfig selects and sizes the SQL backend
type StorageConfig struct {
	Type            string        `yaml:"type"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL        string `yaml:"url"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// CacheConfig sizes the project cache
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Size     int           `yaml:"size"`
	LocalTTL time.Duration `yaml:"local_ttl"`
	RedisTTL time.Duration `yaml:"redis_ttl"`
}

// QueueConfig selects the task queue and tunes the worker
type QueueConfig struct {
	Type        string        `yaml:"type"`
	Name        string        `yaml:"name"`
	Size        int           `yaml:"size"`
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
	// StaleAfter is how long a task may stay in flight before it is requeued
	StaleAfter time.Duration `yaml:"stale_after"`
	// cron specs for the worker's housekeeping jobs
	DepthSchedule   string `yaml:"depth_schedule"`
	RequeueSchedule string `yaml:"requeue_schedule"`
}

// DocsConfig holds the hosts rendered into resource URLs
type DocsConfig struct {
	ProductionDomain string `yaml:"production_domain"`
	BaseURL          string `yaml:"base_url"`
}

// AuthConfig holds write authentication and throttling settings
type AuthConfig struct {
	// Throttle is off, memory or redis
	Throttle          string        `yaml:"throttle"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	WindowLimit       int64         `yaml:"window_limit"`
	Window            time.Duration `yaml:"window"`

	// Bootstrap user created at startup when missing
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Level parses the configured log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: StorageConfig{
			Type:            "sqlite",
			DSN:             "file:docsapi.db?_busy_timeout=5000",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnectTimeout:  5 * time.Second,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{PoolSize: 10, MaxRetries: 3},
		Cache: CacheConfig{
			Enabled:  true,
			Size:     1024,
			LocalTTL: 30 * time.Second,
			RedisTTL: 5 * time.Minute,
		},
		Queue: QueueConfig{
			Type:            "memory",
			Name:            "default",
			Size:            100,
			Workers:         4,
			MaxAttempts:     3,
			PollTimeout:     5 * time.Second,
			TaskTimeout:     10 * time.Minute,
			StaleAfter:      30 * time.Minute,
			DepthSchedule:   "@every 30s",
			RequeueSchedule: "@every 5m",
		},
		Docs: DocsConfig{
			ProductionDomain: "readthedocs.org",
			BaseURL:          "https://readthedocs.org",
		},
		Auth: AuthConfig{
			Throttle:          "memory",
			RequestsPerSecond: 10,
			Burst:             50,
			WindowLimit:       600,
			Window:            time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "docsapi",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by DOCSAPI_CONFIG_FILE, then DOCSAPI_* environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("DOCSAPI_HOST", s.Host)
	s.Port = getEnv("DOCSAPI_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("DOCSAPI_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("DOCSAPI_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("DOCSAPI_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("DOCSAPI_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("DOCSAPI_HEALTH_PORT", s.HealthPort)

	st := &c.Storage
	st.Type = getEnv("DOCSAPI_STORAGE_TYPE", st.Type)
	st.DSN = getEnv("DOCSAPI_DATABASE_URL", st.DSN)
	st.MaxOpenConns = getEnvInt("DOCSAPI_DB_MAX_OPEN_CONNS", st.MaxOpenConns)
	st.MaxIdleConns = getEnvInt("DOCSAPI_DB_MAX_IDLE_CONNS", st.MaxIdleConns)
	st.ConnMaxLifetime = getEnvDuration("DOCSAPI_DB_CONN_MAX_LIFETIME", st.ConnMaxLifetime)
	st.ConnectTimeout = getEnvDuration("DOCSAPI_DB_CONNECT_TIMEOUT", st.ConnectTimeout)
	st.AutoMigrate = getEnvBool("DOCSAPI_DB_AUTO_MIGRATE", st.AutoMigrate)

	r := &c.Redis
	r.URL = getEnv("DOCSAPI_REDIS_URL", r.URL)
	r.DB = getEnvInt("DOCSAPI_REDIS_DB", r.DB)
	r.PoolSize = getEnvInt("DOCSAPI_REDIS_POOL_SIZE", r.PoolSize)
	r.MaxRetries = getEnvInt("DOCSAPI_REDIS_MAX_RETRIES", r.MaxRetries)

	ca := &c.Cache
	ca.Enabled = getEnvBool("DOCSAPI_CACHE_ENABLED", ca.Enabled)
	ca.Size = getEnvInt("DOCSAPI_CACHE_SIZE", ca.Size)
	ca.LocalTTL = getEnvDuration("DOCSAPI_CACHE_LOCAL_TTL", ca.LocalTTL)
	ca.RedisTTL = getEnvDuration("DOCSAPI_CACHE_REDIS_TTL", ca.RedisTTL)

	q := &c.Queue
	q.Type = getEnv("DOCSAPI_QUEUE_TYPE", q.Type)
	q.Name = getEnv("DOCSAPI_QUEUE_NAME", q.Name)
	q.Size = getEnvInt("DOCSAPI_QUEUE_SIZE", q.Size)
	q.Workers = getEnvInt("DOCSAPI_WORKERS", q.Workers)
	q.MaxAttempts = getEnvInt("DOCSAPI_TASK_MAX_ATTEMPTS", q.MaxAttempts)
	q.PollTimeout = getEnvDuration("DOCSAPI_QUEUE_POLL_TIMEOUT", q.PollTimeout)
	q.TaskTimeout = getEnvDuration("DOCSAPI_TASK_TIMEOUT", q.TaskTimeout)
	q.StaleAfter = getEnvDuration("DOCSAPI_TASK_STALE_AFTER", q.StaleAfter)
	q.DepthSchedule = getEnv("DOCSAPI_QUEUE_DEPTH_SCHEDULE", q.DepthSchedule)
	q.RequeueSchedule = getEnv("DOCSAPI_QUEUE_REQUEUE_SCHEDULE", q.RequeueSchedule)

	d := &c.Docs
	d.ProductionDomain = getEnv("DOCSAPI_PRODUCTION_DOMAIN", d.ProductionDomain)
	d.BaseURL = getEnv("DOCSAPI_DOCS_BASE_URL", d.BaseURL)

	a := &c.Auth
	a.Throttle = getEnv("DOCSAPI_THROTTLE", a.Throttle)
	a.RequestsPerSecond = getEnvFloat("DOCSAPI_THROTTLE_RPS", a.RequestsPerSecond)
	a.Burst = getEnvInt("DOCSAPI_THROTTLE_BURST", a.Burst)
	a.WindowLimit = getEnvInt64("DOCSAPI_THROTTLE_WINDOW_LIMIT", a.WindowLimit)
	a.Window = getEnvDuration("DOCSAPI_THROTTLE_WINDOW", a.Window)
	a.AdminUser = getEnv("DOCSAPI_ADMIN_USER", a.AdminUser)
	a.AdminPassword = getEnv("DOCSAPI_ADMIN_PASSWORD", a.AdminPassword)

	o := &c.Observability
	o.LogLevel = getEnv("DOCSAPI_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("DOCSAPI_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("DOCSAPI_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("DOCSAPI_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("DOCSAPI_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("DOCSAPI_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("DOCSAPI_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be sqlite or postgres)", c.Storage.Type)
	}

	switch c.Queue.Type {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for the redis queue")
		}
	default:
		return fmt.Errorf("invalid queue type: %s (must be memory or redis)", c.Queue.Type)
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("at least one worker is required")
	}

	switch c.Auth.Throttle {
	case "off":
	case "memory":
		if c.Auth.RequestsPerSecond <= 0 || c.Auth.Burst <= 0 {
			return fmt.Errorf("throttle rate and burst must be positive")
		}
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for the redis throttle")
		}
		if c.Auth.WindowLimit <= 0 || c.Auth.Window <= 0 {
			return fmt.Errorf("throttle window and limit must be positive")
		}
	default:
		return fmt.Errorf("invalid throttle: %s (must be off, memory or redis)", c.Auth.Throttle)
	}
	if (c.Auth.AdminUser == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("admin user and admin password must be set together")
	}

	if c.Docs.ProductionDomain == "" || c.Docs.BaseURL == "" {
		return fmt.Errorf("docs production domain and base URL are required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Enabled reports whether a Redis URL is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// NewClient connects to Redis and pings it. It returns nil, nil when Redis
// is not configured.
func (r RedisConfig) NewClient(ctx context.Context) (*redis.Client, error) {
	if !r.Enabled() {
		return nil, nil
	}
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if r.DB > 0 {
		opts.DB = r.DB
	}
	if r.PoolSize > 0 {
		opts.PoolSize = r.PoolSize
	}
	if r.MaxRetries > 0 {
		opts.MaxRetries = r.MaxRetries
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
