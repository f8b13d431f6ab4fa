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
	t.Setenv("BILLING_ENVIRONMENT", "")
	t.Setenv("BILLING_BASE_URL", "")

	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, "dev", c.AppEnv)
	assert.Equal(t, ":8080", c.HttpListenAddr)
	assert.Equal(t, DefaultProductionURL, c.BillingURL())
	assert.Equal(t, 30*time.Second, c.BillingTimeout)
	assert.Equal(t, 4, c.BillingEnrichConcurrency)
	assert.Equal(t, 12*time.Hour, c.SessionTTL)
	assert.True(t, c.IncludeDateOnValueUpdate())
}

func TestLoad_FromEnviron(t *testing.T) {
	t.Setenv("BILLING_ENVIRONMENT", "sandbox")
	t.Setenv("BILLING_TIMEOUT", "5s")
	t.Setenv("BILLING_ENRICH_CONCURRENCY", "1")
	t.Setenv("BILLING_INCLUDE_DATE_ON_VALUE_UPDATE", "false")
	t.Setenv("SESSION_TTL", "30m")

	require.NoError(t, Load(""))
	c := Get()

	assert.Equal(t, DefaultSandboxURL, c.BillingURL())
	assert.Equal(t, 5*time.Second, c.BillingTimeout)
	assert.Equal(t, 1, c.BillingEnrichConcurrency)
	assert.False(t, c.IncludeDateOnValueUpdate())
	assert.Equal(t, 30*time.Minute, c.SessionTTL)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SANDBOX_API_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SANDBOX_API_KEY") })

	require.NoError(t, Load(path))
	assert.Equal(t, "from-file", Get().SandboxAPIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration file")
}

func TestConfig_BillingURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name:     "production",
			cfg:      Config{BillingEnvironment: "production"},
			expected: DefaultProductionURL,
		},
		{
			name:     "sandbox is case insensitive",
			cfg:      Config{BillingEnvironment: "SANDBOX"},
			expected: DefaultSandboxURL,
		},
		{
			name:     "explicit base url wins",
			cfg:      Config{BillingEnvironment: "sandbox", BillingBaseURL: "http://localhost:8081/api/v3/"},
			expected: "http://localhost:8081/api/v3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.setDefaults()
			assert.Equal(t, tt.expected, tt.cfg.BillingURL())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("unknown environment", func(t *testing.T) {
		c := &Config{BillingEnvironment: "staging"}
		c.setDefaults()
		err := c.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "BILLING_ENVIRONMENT")
	})

	t.Run("base url without scheme", func(t *testing.T) {
		c := &Config{BillingBaseURL: "localhost:8081"}
		c.setDefaults()
		assert.Error(t, c.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		c := &Config{BillingBaseURL: "http://127.0.0.1:9000"}
		c.setDefaults()
		assert.NoError(t, c.Validate())
	})
}

func TestConfig_IncludeDateOnValueUpdate(t *testing.T) {
	for _, v := range []string{"", "1", "true", "yes"} {
		assert.True(t, (&Config{BillingIncludeDateOnValueUpdate: v}).IncludeDateOnValueUpdate(), v)
	}
	for _, v := range []string{"0", "false", "No", "off"} {
		assert.False(t, (&Config{BillingIncludeDateOnValueUpdate: v}).IncludeDateOnValueUpdate(), v)
	}
}
