package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendSupabase = "supabase"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	MaxUploadBytes int64

	// Persistence
	StoreBackend string

	MongoURI      string
	MongoDatabase string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Events and archive; empty disables them
	AMQPURL             string
	AMQPExchange        string
	UploadArchiveBucket string

	// SeedOnStart upserts the reference tables when the server boots.
	SeedOnStart bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:           getEnvInt("PORT", 3001),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 20<<20),

		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "marketing_budget"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "budget.events"),
		UploadArchiveBucket: getEnv("UPLOAD_ARCHIVE_BUCKET", ""),

		SeedOnStart: getEnv("SEED_ON_START", "true") == "true",
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be at least 1, got %d", c.MaxConcurrency))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE is required for the mongo backend"))
		}
	case BackendSupabase:
		if c.SupabaseURL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase backend"))
		}
		if c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_ANON_KEY is required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, mongo, supabase, got %q", c.StoreBackend))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
