package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis RedisConfig
	Cache CacheConfig
	Log   LogConfig
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// Addr returns the host:port address for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type CacheConfig struct {
	// KeyPrefix namespaces keys written through the read-through helpers.
	KeyPrefix string
	// DefaultTTL applies when a write does not specify its own TTL.
	DefaultTTL time.Duration
	// SweepInterval controls how often the in-memory tier evicts expired
	// entries in the background. Zero disables the sweeper; expired
	// entries are then only dropped lazily on read.
	SweepInterval time.Duration
	// MaxRetries bounds remote store attempts per operation.
	MaxRetries int
	// RetryBackoff is the base delay between remote retries (doubled per
	// attempt, capped at one second).
	RetryBackoff time.Duration
	// EnableMetrics registers Prometheus counters on the default registry.
	EnableMetrics bool
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Cache: CacheConfig{
			KeyPrefix:     getEnv("CACHE_KEY_PREFIX", "cache:"),
			DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", time.Minute),
			MaxRetries:    getIntEnv("CACHE_MAX_RETRIES", 3),
			RetryBackoff:  getDurationEnv("CACHE_RETRY_BACKOFF", 50*time.Millisecond),
			EnableMetrics: getBoolEnv("CACHE_ENABLE_METRICS", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
