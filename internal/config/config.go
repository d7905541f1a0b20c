package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	MongoURI       string
	DBName         string
	Port           string
	GinMode        string
	CORSOrigins    []string
	MaxFileSize    int64
	FileStorageDir string
	BcryptCost     int

	RateLimitReqs   int
	RateLimitWindow time.Duration

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// JWT Token Secrets
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Text generation
	AIProvider      string
	GeminiAPIKey    string
	GeminiModel     string
	AITier          string
	OpenAIAPIKey    string
	OpenAIModel     string
	DailyTokenLimit int

	// Chunking and retrieval
	ChunkSize        int
	ChunkOverlap     int
	MaxContextChunks int

	// Background processing
	QueueEnabled      bool
	WorkerConcurrency int

	// Full-text search
	SearchEnabled   bool
	SearchIndexPath string

	// Maintenance
	StaleProcessingAfter time.Duration
	MaintenanceInterval  time.Duration

	// Web import
	WebImportTimeout   time.Duration
	WebImportUserAgent string

	// Telemetry
	OTELEnabled     bool
	OTELServiceName string
	OTELSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/lms"),
		DBName:         getEnv("DB_NAME", "lms"),
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 10*1024*1024),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AccessSecret:    getEnv("JWT_SECRET", ""),
		RefreshSecret:   getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		AIProvider:      strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITier:          getEnv("AI_TIER", getEnv("GEMINI_TIER", "free")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		DailyTokenLimit: getEnvInt("DAILY_TOKEN_LIMIT", 200000),

		ChunkSize:        getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 50),
		MaxContextChunks: getEnvInt("MAX_CONTEXT_CHUNKS", 3),

		QueueEnabled:      getEnvBool("QUEUE_ENABLED", false),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),

		SearchEnabled:   getEnvBool("SEARCH_ENABLED", true),
		SearchIndexPath: getEnv("SEARCH_INDEX_PATH", "./storage/search.bleve"),

		StaleProcessingAfter: getEnvDuration("STALE_PROCESSING_AFTER", 30*time.Minute),
		MaintenanceInterval:  getEnvDuration("MAINTENANCE_INTERVAL", 10*time.Minute),

		WebImportTimeout:   getEnvDuration("WEB_IMPORT_TIMEOUT", 20*time.Second),
		WebImportUserAgent: getEnv("WEB_IMPORT_USER_AGENT", "lms-ai-backend/1.0 (+document import)"),

		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "lms-ai-backend"),
		OTELSampleRatio: getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required - set it in .env file")
	}
	if len(c.AccessSecret) < 32 || len(c.RefreshSecret) < 32 {
		return fmt.Errorf("JWT secrets must be at least 32 characters")
	}

	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required - set it in .env file")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.AIProvider)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE-1")
	}
	if c.MaxContextChunks <= 0 {
		return fmt.Errorf("MAX_CONTEXT_CHUNKS must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	return nil
}

// MaxFileSizeMB is used in user-facing size errors.
func (c *Config) MaxFileSizeMB() int64 {
	return c.MaxFileSize / (1024 * 1024)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
