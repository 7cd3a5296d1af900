package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported record store backends.
const (
	BackendMemory   = "memory"
	BackendJSONBin  = "jsonbin"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMinIO    = "minio"
)

const minSecretLength = 32

// Config aggregates runtime configuration for the CloudBin API.
type Config struct {
	Env       string
	Server    ServerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	JSONBin   JSONBinConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Drive     DriveConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig groups session and password settings.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	CookieSecure  bool
	CookieDomain  string
	BcryptCost    int
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Backend string
}

// JSONBinConfig carries the hosted document store credentials.
type JSONBinConfig struct {
	BaseURL   string
	BinID     string
	MasterKey string
	Timeout   time.Duration
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig contains Redis connection details.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// KafkaConfig enables change events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig holds the best-effort request budgets.
type RateLimitConfig struct {
	AuthLimit   int
	AuthWindow  time.Duration
	DriveLimit  int
	DriveWindow time.Duration
}

// DriveConfig bounds user supplied payloads.
type DriveConfig struct {
	MaxContentBytes int64
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Env: strings.ToLower(getString("CLOUDBIN_ENV", "development")),
		Server: ServerConfig{
			Host:            getString("CLOUDBIN_API_HOST", "0.0.0.0"),
			Port:            getInt("CLOUDBIN_API_PORT", 8080),
			ReadTimeout:     getDuration("CLOUDBIN_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("CLOUDBIN_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDuration("CLOUDBIN_API_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDuration("CLOUDBIN_API_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: loadAuthConfig(),
		Storage: StorageConfig{
			Backend: strings.ToLower(getString("CLOUDBIN_STORAGE_BACKEND", BackendMemory)),
		},
		JSONBin: JSONBinConfig{
			BaseURL:   strings.TrimRight(getString("JSONBIN_BASE_URL", "https://api.jsonbin.io/v3"), "/"),
			BinID:     getString("JSONBIN_BIN_ID", ""),
			MasterKey: getString("JSONBIN_MASTER_KEY", ""),
			Timeout:   getDuration("JSONBIN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "cloudbin_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "cloudbin"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		Redis: RedisConfig{
			Addr:      getString("REDIS_ADDR", "localhost:6379"),
			Password:  getString("REDIS_PASSWORD", ""),
			DB:        getInt("REDIS_DB", 0),
			KeyPrefix: getString("REDIS_KEY_PREFIX", "cloudbin:record:"),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "cloudbin"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "cloudbin-records"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getList("KAFKA_BROKERS"),
			Topic:   getString("KAFKA_TOPIC", "cloudbin.storage.changes"),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:   getInt("CLOUDBIN_AUTH_RATE_LIMIT", 10),
			AuthWindow:  getDuration("CLOUDBIN_AUTH_RATE_WINDOW", 15*time.Minute),
			DriveLimit:  getInt("CLOUDBIN_DRIVE_RATE_LIMIT", 120),
			DriveWindow: getDuration("CLOUDBIN_DRIVE_RATE_WINDOW", time.Minute),
		},
		Drive: DriveConfig{
			MaxContentBytes: int64(getInt("CLOUDBIN_MAX_CONTENT_BYTES", 5*1024*1024)),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("CLOUDBIN_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres, BackendRedis, BackendMinIO:
	case BackendJSONBin:
		if c.JSONBin.BinID == "" || c.JSONBin.MasterKey == "" {
			return errors.New("jsonbin backend requires JSONBIN_BIN_ID and JSONBIN_MASTER_KEY")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Env == "production" && len(c.Auth.SessionSecret) < minSecretLength {
		return fmt.Errorf("CLOUDBIN_SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	if c.RateLimit.AuthLimit <= 0 || c.RateLimit.DriveLimit <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadAuthConfig() AuthConfig {
	cost := getInt("CLOUDBIN_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		SessionSecret: getString("CLOUDBIN_SESSION_SECRET", "change-me-to-a-32-byte-secret-value"),
		SessionTTL:    getDuration("CLOUDBIN_SESSION_TTL", 24*time.Hour),
		CookieName:    getString("CLOUDBIN_COOKIE_NAME", "cloudbin_session"),
		CookieSecure:  getBool("CLOUDBIN_COOKIE_SECURE", true),
		CookieDomain:  getString("CLOUDBIN_COOKIE_DOMAIN", ""),
		BcryptCost:    cost,
	}
}
