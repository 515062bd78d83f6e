package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Session   SessionConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	MaxRetries     int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SecretPair holds the access/refresh signing secrets for one principal kind.
type SecretPair struct {
	Access  string
	Refresh string
}

// AuthConfig defines token signing parameters per principal kind.
type AuthConfig struct {
	ConsumerSecrets SecretPair
	BusinessSecrets SecretPair
	AdminSecrets    SecretPair

	ConsumerAccessTTL  time.Duration
	BusinessAccessTTL  time.Duration
	AdminAccessTTL     time.Duration
	ConsumerRefreshTTL time.Duration
	BusinessRefreshTTL time.Duration
	AdminRefreshTTL    time.Duration

	BcryptCost int
}

// SessionConfig tunes the Redis session store.
type SessionConfig struct {
	TTL time.Duration
}

// CacheConfig tunes the Redis cache layer.
type CacheConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds fixed-window defaults.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accessSecret := getEnv("JWT_SECRET", "dev-secret")
	refreshSecret := getEnv("JWT_REFRESH_SECRET", "dev-refresh-secret")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "travel-auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			DialTimeout:    getEnvAsSeconds("REDIS_DIAL_TIMEOUT_SECONDS", 10),
			CommandTimeout: getEnvAsSeconds("REDIS_COMMAND_TIMEOUT_SECONDS", 5),
			MaxRetries:     getEnvAsInt("REDIS_MAX_RETRIES", 3),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			ConsumerSecrets: SecretPair{
				Access:  getEnv("JWT_SECRET_CONSUMER", accessSecret),
				Refresh: getEnv("JWT_REFRESH_SECRET_CONSUMER", refreshSecret),
			},
			BusinessSecrets: SecretPair{
				Access:  getEnv("JWT_SECRET_BUSINESS", accessSecret),
				Refresh: getEnv("JWT_REFRESH_SECRET_BUSINESS", refreshSecret),
			},
			AdminSecrets: SecretPair{
				Access:  getEnv("JWT_SECRET_ADMIN", accessSecret),
				Refresh: getEnv("JWT_REFRESH_SECRET_ADMIN", refreshSecret),
			},
			ConsumerAccessTTL:  getEnvAsMinutes("JWT_ACCESS_TTL_CONSUMER_MINUTES", 15),
			BusinessAccessTTL:  getEnvAsMinutes("JWT_ACCESS_TTL_BUSINESS_MINUTES", 15),
			AdminAccessTTL:     getEnvAsMinutes("JWT_ACCESS_TTL_ADMIN_MINUTES", 60),
			ConsumerRefreshTTL: getEnvAsMinutes("JWT_REFRESH_TTL_CONSUMER_MINUTES", 7*24*60),
			BusinessRefreshTTL: getEnvAsMinutes("JWT_REFRESH_TTL_BUSINESS_MINUTES", 7*24*60),
			AdminRefreshTTL:    getEnvAsMinutes("JWT_REFRESH_TTL_ADMIN_MINUTES", 30*24*60),
			BcryptCost:         getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Session: SessionConfig{
			TTL: getEnvAsSeconds("SESSION_TTL_SECONDS", 3600),
		},
		Cache: CacheConfig{
			TTL: getEnvAsSeconds("CACHE_TTL_SECONDS", 300),
		},
		RateLimit: RateLimitConfig{
			Window:      getEnvAsSeconds("RATE_LIMIT_WINDOW_SECONDS", 60),
			MaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsMinutes(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Minute
}
