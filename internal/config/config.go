package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/pkg/errors"
)

const (
	BillingEnvProduction = "production"
	BillingEnvSandbox    = "sandbox"

	DefaultProductionURL = "https://www.asaas.com/api/v3"
	DefaultSandboxURL    = "https://sandbox.asaas.com/api/v3"
)

var config *Config

// Config holds every setting of the console binaries. Values come from the
// process environment, optionally seeded from a .env file. No other part of
// the code reads the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV"`
	AppName             string `env:"APP_NAME"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr     string        `env:"HTTP_LISTEN_ADDR"`
	HttpRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT"`

	BillingEnvironment              string        `env:"BILLING_ENVIRONMENT"`
	BillingBaseURL                  string        `env:"BILLING_BASE_URL"`
	BillingProductionURL            string        `env:"BILLING_PRODUCTION_URL"`
	BillingSandboxURL               string        `env:"BILLING_SANDBOX_URL"`
	BillingTimeout                  time.Duration `env:"BILLING_TIMEOUT"`
	BillingMaxConns                 int           `env:"BILLING_MAX_CONNS"`
	BillingIncludeDateOnValueUpdate string        `env:"BILLING_INCLUDE_DATE_ON_VALUE_UPDATE"`
	BillingEnrichConcurrency        int           `env:"BILLING_ENRICH_CONCURRENCY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisUsername string `env:"REDIS_USER"`
	RedisPassword string `env:"REDIS_PASS"`
	RedisDatabase int    `env:"REDIS_DATABASE"`

	SessionKeyPrefix    string        `env:"SESSION_KEY_PREFIX"`
	SessionTTL          time.Duration `env:"SESSION_TTL"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE"`

	IdempotencyKeyPrefix string        `env:"IDEMPOTENCY_KEY_PREFIX"`
	IdempotencyLockTTL   time.Duration `env:"IDEMPOTENCY_LOCK_TTL"`
	IdempotencyTTL       time.Duration `env:"IDEMPOTENCY_TTL"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel string `env:"LOG_LEVEL"`

	SandboxListenAddr string `env:"SANDBOX_LISTEN_ADDR"`
	SandboxAPIKey     string `env:"SANDBOX_API_KEY"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	c.setDefaults()
	if err := c.Validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set replaces the loaded configuration. Used by tests and tools that build a
// Config by hand.
func Set(c *Config) {
	c.setDefaults()
	config = c
}

func (c *Config) setDefaults() {
	if c.AppEnv == "" {
		c.AppEnv = "dev"
	}
	if c.AppName == "" {
		c.AppName = "billing_console"
	}
	if c.HttpListenAddr == "" {
		c.HttpListenAddr = ":8080"
	}
	if c.HttpRequestTimeout <= 0 {
		c.HttpRequestTimeout = 60 * time.Second
	}
	if c.BillingEnvironment == "" {
		c.BillingEnvironment = BillingEnvProduction
	}
	if c.BillingProductionURL == "" {
		c.BillingProductionURL = DefaultProductionURL
	}
	if c.BillingSandboxURL == "" {
		c.BillingSandboxURL = DefaultSandboxURL
	}
	if c.BillingTimeout <= 0 {
		c.BillingTimeout = 30 * time.Second
	}
	if c.BillingMaxConns <= 0 {
		c.BillingMaxConns = 64
	}
	if c.BillingEnrichConcurrency <= 0 {
		c.BillingEnrichConcurrency = 4
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "127.0.0.1:6379"
	}
	if c.SessionKeyPrefix == "" {
		c.SessionKeyPrefix = "console:session:"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.IdempotencyKeyPrefix == "" {
		c.IdempotencyKeyPrefix = "console:"
	}
	if c.IdempotencyLockTTL <= 0 {
		c.IdempotencyLockTTL = 30 * time.Second
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
	if c.PromNamespace == "" {
		c.PromNamespace = "billing_console"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SandboxListenAddr == "" {
		c.SandboxListenAddr = ":8081"
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	env := strings.ToLower(c.BillingEnvironment)
	if env != BillingEnvProduction && env != BillingEnvSandbox {
		return errors.Errorf("invalid BILLING_ENVIRONMENT %q: want %q or %q", c.BillingEnvironment, BillingEnvProduction, BillingEnvSandbox)
	}
	u, err := url.Parse(c.BillingURL())
	if err != nil {
		return errors.Wrap(err, "invalid billing base url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid billing base url %q", c.BillingURL())
	}
	return nil
}

// BillingURL resolves the upstream base URL: an explicit BILLING_BASE_URL wins,
// otherwise the URL of the selected environment is used.
func (c *Config) BillingURL() string {
	if c.BillingBaseURL != "" {
		return strings.TrimRight(c.BillingBaseURL, "/")
	}
	if strings.EqualFold(c.BillingEnvironment, BillingEnvSandbox) {
		return strings.TrimRight(c.BillingSandboxURL, "/")
	}
	return strings.TrimRight(c.BillingProductionURL, "/")
}

// IncludeDateOnValueUpdate reports whether subscription value updates forward
// the optional date field. Enabled unless explicitly switched off.
func (c *Config) IncludeDateOnValueUpdate() bool {
	switch strings.ToLower(strings.TrimSpace(c.BillingIncludeDateOnValueUpdate)) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}
