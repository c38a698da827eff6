package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "rent_", cfg.ReceiptPrefix)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, "payments.events", cfg.Redis.Channel)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PAYMENT_CACHE_TTL", "90s")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_abc")

	cfg, err := Load([]string{"-db-port", "6543", "-currency", "usd", "-jwt-secret", "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "rzp_test_abc", cfg.Razorpay.KeyID)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal port=6543")
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := Load([]string{"-db-port", "not-a-number"})
	assert.Error(t, err)
}

func TestLoadEnv_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RECEIPT_PREFIX_TEST_ONLY=hostel_\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RECEIPT_PREFIX_TEST_ONLY") })

	LoadEnv(path)
	assert.Equal(t, "hostel_", os.Getenv("RECEIPT_PREFIX_TEST_ONLY"))
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Currency: "INR", EventBuffer: 10}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "razorpay key secret is required")
	assert.Contains(t, err.Error(), "jwt secret is required")

	cfg.Razorpay = RazorpayConfig{KeyID: "rzp", KeySecret: "secret", WebhookSecret: "whsec"}
	cfg.JWTSecret = "jwt"
	assert.NoError(t, cfg.Validate())

	cfg.Currency = "RUPEES"
	assert.Error(t, cfg.Validate())
}
