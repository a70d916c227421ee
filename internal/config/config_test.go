package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/config"
)

const testYAML = `
server:
  port: "8081"
  shutdown_timeout: 3s
stripe:
  secret_key: sk_test_file
checkout:
  success_url: https://pagos.example.com/exito
  cancel_url: https://pagos.example.com/cancelado
  currency: usd
  payment_method_types: [card]
provisioning:
  url: https://cuentas.example.com/update-nip
  timeout: 2s
  breaker:
    enabled: true
    consecutive_failures: 3
catalog:
  prices:
    Vix: 55
  aliases:
    ViX: Vix
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "SUCCESS_URL", "CANCEL_URL",
		"UPDATE_NIP_URL", "PORT", "HOST", "LOG_LEVEL", "POSTGRES_HOST", "POSTGRES_USER",
		"POSTGRES_PASSWORD", "POSTGRES_DATABASE", "MOCKED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, testYAML)

	require.NoError(t, config.LoadConfig(path))
	c, err := config.GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", c.Server.Port)
	assert.Equal(t, 3*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "sk_test_file", c.Stripe.SecretKey)
	assert.Equal(t, "usd", c.Checkout.Currency)
	assert.Equal(t, []string{"card"}, c.Checkout.PaymentMethodTypes)
	assert.Equal(t, 2*time.Second, c.Provisioning.Timeout)
	assert.True(t, c.Provisioning.Breaker.Enabled)
	assert.Equal(t, uint32(3), c.Provisioning.Breaker.ConsecutiveFailures)
	// untouched defaults survive a partial file
	assert.Equal(t, 30*time.Second, c.Provisioning.Breaker.OpenTimeout)
	assert.Equal(t, "public/pago.html", c.Static.PagePath)
	assert.Equal(t, int64(55), c.Catalog.Prices["Vix"])
	assert.Equal(t, "Vix", c.Catalog.Aliases["ViX"])
	assert.False(t, c.Postgres.Enabled())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, testYAML)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")
	t.Setenv("SUCCESS_URL", "https://env.example.com/ok")
	t.Setenv("PORT", "9000")
	t.Setenv("POSTGRES_HOST", "db:5432")
	t.Setenv("POSTGRES_DATABASE", "relay")

	require.NoError(t, config.LoadConfig(path))
	c, err := config.GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk_test_env", c.Stripe.SecretKey)
	assert.Equal(t, "https://env.example.com/ok", c.Checkout.SuccessURL)
	assert.Equal(t, "9000", c.Server.Port)
	assert.True(t, c.Postgres.Enabled())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")
	t.Setenv("SUCCESS_URL", "https://env.example.com/ok")
	t.Setenv("CANCEL_URL", "https://env.example.com/cancel")
	t.Setenv("UPDATE_NIP_URL", "https://env.example.com/nip")

	require.NoError(t, config.LoadConfig(""))
	c, err := config.GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", c.Server.Port)
	assert.Equal(t, "mxn", c.Checkout.Currency)
	assert.Equal(t, []string{"card", "oxxo"}, c.Checkout.PaymentMethodTypes)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	clearEnv(t)

	err := config.LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "UPDATE_NIP_URL")
	assert.Contains(t, err.Error(), "SUCCESS_URL")
}

func TestMockedSkipsProcessorSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOCKED", "true")
	t.Setenv("SUCCESS_URL", "https://env.example.com/ok")
	t.Setenv("CANCEL_URL", "https://env.example.com/cancel")

	require.NoError(t, config.LoadConfig(""))
	c, err := config.GetConfig()
	require.NoError(t, err)
	assert.True(t, c.Mocked)
}

func TestStringRedactsSecrets(t *testing.T) {
	c := config.Defaults()
	c.Stripe.SecretKey = "sk_live_secret"
	c.Stripe.WebhookSecret = "whsec_secret"
	c.Postgres.Password = "hunter2"

	s := c.String()
	assert.False(t, strings.Contains(s, "sk_live_secret"))
	assert.False(t, strings.Contains(s, "whsec_secret"))
	assert.False(t, strings.Contains(s, "hunter2"))
	assert.Contains(t, s, "[REDACTED]")
}
