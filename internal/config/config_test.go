package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
)

func TestLoad_RequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	_, err := Load()
	assert.EqualError(t, err, "DB_URL required")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/intake")
	t.Setenv("API_KEYS", "")
	t.Setenv("PORT", "")
	t.Setenv("APP_URL", "")
	t.Setenv("SEND_RATE_PER_MIN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tenant-key-123": "tenant1"}, cfg.APIKeys)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:5173", cfg.AppURL)
	assert.Equal(t, 60, cfg.SendRatePerMinute)
}

func TestLoad_ParsesAPIKeysAndOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/intake")
	t.Setenv("API_KEYS", "tenant1:key1, tenant2:key2")
	t.Setenv("APP_URL", "https://example.com/")
	t.Setenv("SEND_RATE_PER_MIN", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"key1": "tenant1", "key2": "tenant2"}, cfg.APIKeys)
	assert.Equal(t, "https://example.com", cfg.AppURL)
	assert.Equal(t, 10, cfg.SendRatePerMinute)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/intake")

	t.Setenv("API_KEYS", "tenant1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("API_KEYS", "")
	t.Setenv("SEND_RATE_PER_MIN", "zero")
	_, err = Load()
	assert.EqualError(t, err, "SEND_RATE_PER_MIN must be a positive integer")
}

func TestEnvSecrets_ReadsAtCallTime(t *testing.T) {
	var s EnvSecrets
	t.Setenv(StripeSecretKey, "")
	_, ok := s.Lookup(StripeSecretKey)
	assert.False(t, ok)

	t.Setenv(StripeSecretKey, "sk_test_1")
	v, ok := s.Lookup(StripeSecretKey)
	assert.True(t, ok)
	assert.Equal(t, "sk_test_1", v)
}

func TestRequire(t *testing.T) {
	s := MapSecrets{TwilioAccountSID: "AC1", TwilioAuthToken: ""}

	_, err := Require(s, TwilioAccountSID, TwilioAuthToken)
	assert.True(t, apperr.Is(err, apperr.CodeConfigMissing))
	assert.Equal(t, "TWILIO_AUTH_TOKEN is not configured", apperr.Message(err))

	vals, err := Require(s, TwilioAccountSID)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC1"}, vals)

	assert.Equal(t, "", Optional(s, TwilioWebhookURL))
}
