package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "bedrock", cfg.AIProvider)
	assert.Equal(t, "UAE", cfg.Jurisdiction)
	assert.Equal(t, 100*time.Millisecond, cfg.BulkSendInterval)
	assert.Equal(t, 24*time.Hour, cfg.ProcessedEventTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AI_PROVIDER", " Gemini ")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("BULK_SEND_INTERVAL", "250ms")
	t.Setenv("WEBHOOK_RATE_BURST", "not-a-number")

	cfg := Load()
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.Equal(t, 250*time.Millisecond, cfg.BulkSendInterval)
	assert.Equal(t, 50, cfg.WebhookRateBurst, "garbage values fall back to the default")
}

func TestChannelConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.ChannelConfigured())

	cfg.TwilioAccountSID = "AC123"
	cfg.TwilioAuthToken = "token"
	assert.False(t, cfg.ChannelConfigured(), "from number still missing")

	cfg.TwilioFromNumber = "whatsapp:+14155238886"
	assert.True(t, cfg.ChannelConfigured())
}

func TestAIConfigured(t *testing.T) {
	cfg := &Config{AnalysisEnabled: true, AIProvider: "bedrock"}
	assert.False(t, cfg.AIConfigured())

	cfg.BedrockModelID = "anthropic.claude-3-haiku"
	assert.True(t, cfg.AIConfigured())

	cfg.AnalysisEnabled = false
	assert.False(t, cfg.AIConfigured(), "kill switch wins over credentials")

	gemini := &Config{AnalysisEnabled: true, AIProvider: "gemini", GeminiAPIKey: "key"}
	assert.True(t, gemini.AIConfigured())
}
