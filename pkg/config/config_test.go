package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverChromedp, cfg.BrowserDriver)
	assert.Equal(t, 2, cfg.DefaultDepth)
	assert.Equal(t, 1, cfg.ExtractWorkers)
	assert.Equal(t, FailurePolicySkip, cfg.FailurePolicy)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.True(t, cfg.SameHostOnly)
	assert.False(t, cfg.CanonicalizeURLs)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("NAVIGATION_TIMEOUT", "5s")
	t.Setenv("EXTRACT_WORKERS", "4")
	t.Setenv("FAILURE_POLICY", "abort")
	t.Setenv("CANONICALIZE_URLS", "true")
	t.Setenv("BROWSER_DRIVER", "rod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 5*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 4, cfg.ExtractWorkers)
	assert.Equal(t, FailurePolicyAbort, cfg.FailurePolicy)
	assert.True(t, cfg.CanonicalizeURLs)
	assert.Equal(t, DriverRod, cfg.BrowserDriver)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "BROWSER_DRIVER", "selenium"},
		{"unknown policy", "FAILURE_POLICY", "retry"},
		{"zero workers", "EXTRACT_WORKERS", "0"},
		{"default depth above max", "DEFAULT_DEPTH", "9"},
		{"zero page cap", "MAX_PAGES", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresDB:       "kb",
	}
	assert.Equal(t, "postgres://u:p@db:5433/kb?sslmode=disable", cfg.PostgresDSN())
}
