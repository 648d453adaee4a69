package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateNodeID creates a unique node ID using hostname and PID
func generateNodeID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "tracker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// Snowflake
	SnowflakeWorkerID int64

	// OpenAI (identity enrichment)
	OpenAIAPIKey  string
	LLMModel      string
	LLMTimeoutSec int
	LLMMaxBody    int

	// Worker pool
	NodeID          string
	WorkerMax       int
	WorkerQueueSize int
	WorkerBatchSize int
	WorkerRate      int

	// Consumer (Redis Stream)
	ConsumerGroup   string
	ConsumerBlockMS int

	// Processed-message ledger
	LedgerTTL time.Duration

	// Ghost sweeper
	SweeperEnabled    bool
	SweeperInterval   time.Duration
	SweeperIdleWindow time.Duration

	// HTTP rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "tracker"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Snowflake
		SnowflakeWorkerID: int64(getEnvInt("SNOWFLAKE_WORKER_ID", 1)),

		// OpenAI
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSec: getEnvInt("LLM_TIMEOUT_SEC", 10),
		LLMMaxBody:    getEnvInt("LLM_MAX_BODY", 3000),

		// Worker pool
		NodeID:          getEnv("NODE_ID", generateNodeID()),
		WorkerMax:       getEnvInt("WORKER_MAX", 8),
		WorkerQueueSize: getEnvInt("WORKER_QUEUE_SIZE", 1000),
		WorkerBatchSize: getEnvInt("WORKER_BATCH_SIZE", 10),
		WorkerRate:      getEnvInt("WORKER_RATE_PER_SEC", 100),

		// Consumer
		ConsumerGroup:   getEnv("CONSUMER_GROUP", "tracker"),
		ConsumerBlockMS: getEnvInt("CONSUMER_BLOCK_MS", 5000),

		// Ledger
		LedgerTTL: time.Duration(getEnvInt("LEDGER_TTL_HOURS", 720)) * time.Hour,

		// Ghost sweeper
		SweeperEnabled:    getEnvBool("SWEEPER_ENABLED", true),
		SweeperInterval:   time.Duration(getEnvInt("SWEEPER_INTERVAL_MIN", 60)) * time.Minute,
		SweeperIdleWindow: time.Duration(getEnvInt("SWEEPER_IDLE_DAYS", 21)) * 24 * time.Hour,

		// HTTP rate limiting
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MIN", 300),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 50),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
