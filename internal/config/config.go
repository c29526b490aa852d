package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

type Config struct {
	DB        DBConfig
	Storage   StorageConfig
	JWT       JWTConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Reconcile ReconcileConfig
}

type DBConfig struct {
	URL string
}

type StorageConfig struct {
	Driver        string
	Endpoint      string
	PublicURL     string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	MaxAttempts   int
	RetryBase     time.Duration
	OpTimeout     time.Duration
	UploadTimeout time.Duration
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port        string
	CORSOrigins string
	BodyLimitMB int
}

type RateLimitConfig struct {
	Backend   string
	RedisURL  string
	Window    time.Duration
	Max       int
	UploadMax int
}

type ReconcileConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// Load reads the process environment. A missing DATABASE_URL is the only fatal condition.
func Load() (*Config, error) {
	cfg := &Config{
		DB: DBConfig{
			URL: strings.TrimSpace(getEnv("DATABASE_URL", "")),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
			Endpoint:      getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			PublicURL:     getEnv("STORAGE_PUBLIC_URL", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:        getEnv("STORAGE_BUCKET", "drive"),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:        getEnvAsBool("STORAGE_USE_SSL", false),
			MaxAttempts:   getEnvAsInt("STORAGE_MAX_ATTEMPTS", 3),
			RetryBase:     getEnvAsDuration("STORAGE_RETRY_BASE_DELAY", time.Second),
			OpTimeout:     getEnvAsDuration("STORAGE_OP_TIMEOUT", 30*time.Second),
			UploadTimeout: getEnvAsDuration("STORAGE_UPLOAD_TIMEOUT", 2*time.Minute),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
			BodyLimitMB: getEnvAsInt("BODY_LIMIT_MB", 100),
		},
		RateLimit: RateLimitConfig{
			Backend:   strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379"),
			Window:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			Max:       getEnvAsInt("RATE_LIMIT_MAX", 60),
			UploadMax: getEnvAsInt("RATE_LIMIT_UPLOAD_MAX", 20),
		},
		Reconcile: ReconcileConfig{
			Interval: getEnvAsDuration("RECONCILE_INTERVAL", 0),
			Grace:    getEnvAsDuration("RECONCILE_GRACE", 5*time.Minute),
		},
	}

	if cfg.DB.URL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
