package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                    "",
		"POLICY_API_URL":          "",
		"POLICY_REFRESH_INTERVAL": "",
		"DEFAULT_TAX_RATE":        "",
		"RECEIPT_CURRENCY":        "",
		"QUOTE_RATE_LIMIT":        "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 5*time.Minute, cfg.PolicyRefreshInterval)
	require.Equal(t, "USD", cfg.ReceiptCurrency)
	require.Equal(t, 120, cfg.QuoteRateLimit)
	require.Zero(t, cfg.DefaultTaxRate)
	require.Empty(t, cfg.PolicyAPIURL)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                    ":9090",
		"POLICY_API_URL":          "https://config.example.test/",
		"POLICY_REFRESH_INTERVAL": "30s",
		"DEFAULT_TAX_RATE":        "8.25",
		"RECEIPT_CURRENCY":        "eur",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "https://config.example.test", cfg.PolicyAPIURL)
	require.Equal(t, 30*time.Second, cfg.PolicyRefreshInterval)
	require.Equal(t, 8.25, cfg.DefaultTaxRate)
	require.Equal(t, "EUR", cfg.ReceiptCurrency)
}

func TestLoadRejectsNegativeTaxRate(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"DEFAULT_TAX_RATE": "-1"})
	require.Error(t, err)
}

func TestLoadRejectsUnknownRateLimitStrategy(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"RATE_LIMIT_STRATEGY": "leaky"})
	require.Error(t, err)

	cfg, err := config.LoadForTests(map[string]string{"RATE_LIMIT_STRATEGY": "Fixed"})
	require.NoError(t, err)
	require.Equal(t, "fixed", cfg.RateLimitStrategy)
}

func TestLoadForTestsLeavesEnvironmentAlone(t *testing.T) {
	t.Setenv("RECEIPT_LOCALE", "id-ID")

	cfg, err := config.LoadForTests(map[string]string{"RECEIPT_LOCALE": "fr-FR", "METRICS_ENABLED": "off"})
	require.NoError(t, err)
	require.Equal(t, "fr-FR", cfg.ReceiptLocale)
	require.False(t, cfg.MetricsEnabled)
	require.Equal(t, "id-ID", os.Getenv("RECEIPT_LOCALE"))

	cfg, err = config.LoadForTests(nil)
	require.NoError(t, err)
	require.Equal(t, "id-ID", cfg.ReceiptLocale)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, int64(256<<10), cfg.MaxBodyBytes)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadReportsEveryInvalidSetting(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DEFAULT_TAX_RATE":          "-2",
		"QUOTE_RATE_LIMIT":          "-1",
		"OTEL_TRACES_SAMPLER_RATIO": "1.5",
		"OTEL_TRACES_EXPORTER":      "zipkin",
	})
	require.Error(t, err)
	for _, name := range []string{"DEFAULT_TAX_RATE", "QUOTE_RATE_LIMIT", "OTEL_TRACES_SAMPLER_RATIO", "OTEL_TRACES_EXPORTER"} {
		require.ErrorContains(t, err, name)
	}
}
