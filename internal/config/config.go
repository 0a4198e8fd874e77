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
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Channel provider (Twilio WhatsApp) credentials.
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWebhookSecret string
	TwilioFromNumber    string

	// AI capability selection and credentials.
	AIProvider      string
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string
	Jurisdiction    string
	AnalysisEnabled bool

	// Bulk dispatch pacing between consecutive provider calls.
	BulkSendInterval time.Duration

	AdminJWTSecret string

	WebhookRateLimit float64
	WebhookRateBurst int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	ProcessedEventTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),

		AIProvider:      strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "bedrock"))),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		Jurisdiction:    getEnv("ANALYSIS_JURISDICTION", "UAE"),
		AnalysisEnabled: getEnvAsBool("ANALYSIS_ENABLED", true),

		BulkSendInterval: getEnvAsDuration("BULK_SEND_INTERVAL", 100*time.Millisecond),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 25),
		WebhookRateBurst: getEnvAsInt("WEBHOOK_RATE_BURST", 50),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		ProcessedEventTTL: getEnvAsDuration("PROCESSED_EVENT_TTL", 24*time.Hour),
	}
}

// ChannelConfigured reports whether outbound sends can reach the provider.
func (c *Config) ChannelConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// AIConfigured reports whether the document-analysis capability has credentials.
func (c *Config) AIConfigured() bool {
	if !c.AnalysisEnabled {
		return false
	}
	switch c.AIProvider {
	case "gemini":
		return c.GeminiAPIKey != ""
	default:
		return c.BedrockModelID != ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
