package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Pipeline
	WorkerCount        int
	QueueDepth         int
	ClassifierTimeout  time.Duration
	ClassifierProvider string // "lexicon" or "bedrock"

	// Constitution
	RulesPath string

	// Vault / storage
	DatabaseURL    string
	VaultMasterKey string
	RecordStore    string // "postgres" or "memory"
	KeystoreKind   string // "redis" or "memory"

	// Redis (wrapped-key store)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Caller identity
	AuthJWTSecret string

	// Bedrock classifier
	AWSRegion      string
	BedrockModelID string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		WorkerCount:        getEnvAsInt("WORKER_COUNT", 4),
		QueueDepth:         getEnvAsInt("QUEUE_DEPTH", 64),
		ClassifierTimeout:  getEnvAsDuration("CLASSIFIER_TIMEOUT", 2*time.Second),
		ClassifierProvider: strings.ToLower(strings.TrimSpace(getEnv("CLASSIFIER_PROVIDER", "lexicon"))),

		RulesPath: getEnv("RULES_PATH", ""),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		VaultMasterKey: getEnv("VAULT_MASTER_KEY", ""),
		RecordStore:    strings.ToLower(strings.TrimSpace(getEnv("RECORD_STORE", "memory"))),
		KeystoreKind:   strings.ToLower(strings.TrimSpace(getEnv("KEYSTORE", "memory"))),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
