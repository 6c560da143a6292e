package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string
	LogFormat          string
	LogLevel           string
	MaxBodyBytes       int64
	ShutdownTimeout    time.Duration

	PolicyAPIURL          string
	PolicyAPIToken        string
	PolicyAPITimeout      time.Duration
	PolicyRefreshInterval time.Duration
	PolicyCacheKey        string
	PolicyCacheTTL        time.Duration
	PolicyChannel         string

	DefaultTaxName string
	DefaultTaxRate float64

	ReceiptLocale   string
	ReceiptCurrency string

	QuoteRateLimit    int
	QuoteRateWindow   time.Duration
	RateLimitStrategy string
	IdempotencyTTL    time.Duration

	OTELEnabled       bool
	OTELEndpoint      string
	OTELExporter      string
	OTELSamplingRatio float64

	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string

	PprofEnabled bool
	PprofUser    string
	PprofPass    string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	return build(k)
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests layers overrides on top of the process environment without
// mutating it. An empty override masks the variable.
func LoadForTests(overrides map[string]string) (*Config, error) {
	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}
	return build(k)
}

func fromEnv() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

func build(k *koanf.Koanf) (*Config, error) {
	str := func(key, fallback string) string { return valueOrDefault(k.String(key), fallback) }

	cfg := &Config{
		AppEnv:             str("APP_ENV", "development"),
		Port:               str("PORT", "8080"),
		RedisURL:           str("REDIS_URL", ""),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		LogFormat:          str("LOG_FORMAT", "json"),
		LogLevel:           str("LOG_LEVEL", "info"),
		MaxBodyBytes:       int64(common.AtoiDefault(k.String("SECURE_MAX_BODY_BYTES"), 256<<10)),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),

		PolicyAPIURL:          strings.TrimRight(str("POLICY_API_URL", ""), "/"),
		PolicyAPIToken:        str("POLICY_API_TOKEN", ""),
		PolicyAPITimeout:      parseDuration(k.String("POLICY_API_TIMEOUT"), "3s"),
		PolicyRefreshInterval: parseDuration(k.String("POLICY_REFRESH_INTERVAL"), "5m"),
		PolicyCacheKey:        str("POLICY_CACHE_KEY", "pos:policies:current"),
		PolicyCacheTTL:        parseDuration(k.String("POLICY_CACHE_TTL"), "168h"),
		PolicyChannel:         str("POLICY_CHANNEL", "pos:policies:changed"),

		DefaultTaxName: str("DEFAULT_TAX_NAME", "Sales Tax"),
		DefaultTaxRate: parseFloat(k.String("DEFAULT_TAX_RATE"), 0),

		ReceiptLocale:   str("RECEIPT_LOCALE", "en-US"),
		ReceiptCurrency: strings.ToUpper(str("RECEIPT_CURRENCY", "USD")),

		QuoteRateLimit:    common.AtoiDefault(k.String("QUOTE_RATE_LIMIT"), 120),
		QuoteRateWindow:   parseDuration(k.String("QUOTE_RATE_WINDOW"), "1m"),
		RateLimitStrategy: strings.ToLower(str("RATE_LIMIT_STRATEGY", "sliding")),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "1m"),

		OTELEnabled:       parseBool(k.String("OTEL_ENABLED"), false),
		OTELEndpoint:      str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELExporter:      strings.ToLower(str("OTEL_TRACES_EXPORTER", "otlp")),
		OTELSamplingRatio: parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),

		MetricsEnabled:   parseBool(k.String("METRICS_ENABLED"), true),
		MetricsNamespace: str("METRICS_NAMESPACE", "pos"),
		MetricsBuckets:   str("METRICS_BUCKETS_MS", ""),

		PprofEnabled: parseBool(k.String("PPROF_ENABLED"), false),
		PprofUser:    str("PPROF_BASIC_AUTH_USER", ""),
		PprofPass:    str("PPROF_BASIC_AUTH_PASS", ""),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DefaultTaxRate < 0 {
		errs = append(errs, errors.New("DEFAULT_TAX_RATE must not be negative"))
	}
	if c.PolicyRefreshInterval <= 0 {
		errs = append(errs, errors.New("POLICY_REFRESH_INTERVAL must be positive"))
	}
	if c.QuoteRateLimit < 0 {
		errs = append(errs, errors.New("QUOTE_RATE_LIMIT must not be negative"))
	}
	if c.OTELSamplingRatio < 0 || c.OTELSamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_RATIO must be within [0,1]"))
	}
	switch c.RateLimitStrategy {
	case "sliding", "fixed":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STRATEGY must be sliding or fixed, got %q", c.RateLimitStrategy))
	}
	switch c.OTELExporter {
	case "otlp", "none":
	default:
		errs = append(errs, fmt.Errorf("OTEL_TRACES_EXPORTER must be otlp or none, got %q", c.OTELExporter))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return v
	}
	return fallback
}
