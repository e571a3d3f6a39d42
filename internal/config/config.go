package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	OpenAI     OpenAIConfig
	NLP        NLPConfig
	Session    SessionConfig
	Cart       CartConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string, e.g. {"chat_template_kwargs":{"thinking":true}}
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// NLPConfig holds thresholds for classification and resolution
type NLPConfig struct {
	IntentConfidenceThreshold float64
	AmbiguityMargin           float64
	MinCatalogSimilarity      float64
	DegradationFactor         float64
	StageTimeout              time.Duration
}

// SessionConfig holds conversation session lifecycle configuration
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxHistory    int
}

// CartConfig holds cart business rules
type CartConfig struct {
	MaxQuantityPerLine int
	MaxLines           int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "voicecart"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			Enabled:            getEnvAsBool("PG_ENABLED", true),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 2048),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1024),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		NLP: NLPConfig{
			IntentConfidenceThreshold: getEnvAsFloat("NLP_INTENT_CONFIDENCE_THRESHOLD", 0.8),
			AmbiguityMargin:           getEnvAsFloat("NLP_AMBIGUITY_MARGIN", 0.1),
			MinCatalogSimilarity:      getEnvAsFloat("NLP_MIN_CATALOG_SIMILARITY", 0.55),
			DegradationFactor:         getEnvAsFloat("NLP_DEGRADATION_FACTOR", 0.85),
			StageTimeout:              getEnvAsDuration("NLP_STAGE_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			MaxHistory:    getEnvAsInt("SESSION_MAX_HISTORY", 20),
		},
		Cart: CartConfig{
			MaxQuantityPerLine: getEnvAsInt("CART_MAX_QUANTITY_PER_LINE", 100),
			MaxLines:           getEnvAsInt("CART_MAX_LINES", 50),
		},
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
