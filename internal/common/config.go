package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Store    StoreConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// LLMConfig holds text-completion service configuration
type LLMConfig struct {
	Provider      string // "gemini" | "openai"
	GeminiAPIKey  string
	GeminiModel   string
	GeminiURL     string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	Temperature   float32
	Timeout       time.Duration
}

// StoreConfig holds analysis store configuration
type StoreConfig struct {
	Driver          string // "memory" | "redis" | "postgres" | "sqlite"
	TTL             time.Duration
	DSN             string
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OCRConfig holds text extractor configuration
type OCRConfig struct {
	Pdftotext string
	Tesseract string
	Timeout   time.Duration
}

// PipelineConfig holds estimation pipeline configuration
type PipelineConfig struct {
	FactorsPath      string
	EmissionsWorkers int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":8081"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL_NAME", "gemini-2.5-flash"),
			GeminiURL:     getEnv("GEMINI_API_URL", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(getEnv("STORE_DRIVER", "memory")),
			TTL:             getEnvAsDuration("STORE_TTL", 24*time.Hour),
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", ":memory:"),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			RedisDB:         getEnvAsInt("REDIS_DB", 0),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext: getEnv("PDFTOTEXT", "pdftotext"),
			Tesseract: getEnv("TESSERACT", "tesseract"),
			Timeout:   getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			FactorsPath:      getEnv("EMISSION_FACTORS_PATH", "data/emission_factors.json"),
			EmissionsWorkers: getEnvAsInt("EMISSIONS_WORKERS", 8),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. A missing completion-service key is
// not an error: extraction falls back to rules and chat reports the service unavailable.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be gemini or openai", ErrInvalidInput)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "redis":
		if c.Store.RedisAddr == "" {
			return NewAppError("CONFIG_ERROR", "REDIS_ADDR is required for the redis store", ErrInvalidInput)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be memory, redis, postgres or sqlite", ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "LLM_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}
