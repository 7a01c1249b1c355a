package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the engine needs from the environment.
type Config struct {
	// Remote document store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Local cache
	CacheDSN string

	// Downstream sinks
	AMQPURL      string
	AMQPExchange string

	// Telemetry
	OTLPEndpoint string
	Environment  string

	// Engine tuning
	OpTimeout    time.Duration
	MirrorWindow int

	// Ops/bridge surface
	HTTPPort   string
	DebugToken string
	Debug      bool

	// Session bootstrap for the dev harness
	SessionUID string
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CacheDSN: getEnv("CACHE_DSN", "file:proximity-cache.db?_journal_mode=WAL"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "proximity.events"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		Environment:  getEnv("APP_ENV", "development"),

		OpTimeout:    getEnvDuration("OP_TIMEOUT", 5*time.Second),
		MirrorWindow: getEnvInt("MIRROR_WINDOW", 50),

		HTTPPort:   getEnv("PORT", "8086"),
		DebugToken: getEnv("DEBUG_TOKEN", ""),
		Debug:      getEnv("DEBUG_ROUTES", "") == "true",

		SessionUID: getEnv("SESSION_UID", ""),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
