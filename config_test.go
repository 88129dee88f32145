package featurekit_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featurekit/featurekit-go"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	t.Setenv("FEATUREKIT_DOCUMENT_FILE", "/etc/featurekit/document.yaml")

	cfg, err := featurekit.LoadEnvConfig()
	require.NoError(t, err)
	assert.Equal(t, "/etc/featurekit/document.yaml", cfg.DocumentFile)
	assert.Equal(t, featurekit.DefaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, featurekit.DefaultMetricsInterval, cfg.MetricsInterval)
	assert.Equal(t, featurekit.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "featurekit-go", cfg.AppName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Nil(t, cfg.AuthHeaders())
}

func TestLoadEnvConfigFromFile(t *testing.T) {
	// variables set in the environment win over the file
	t.Setenv("FEATUREKIT_RETRIES", "5")
	// godotenv writes into the process environment; t.Setenv restores it after the test
	for _, key := range []string{"FEATUREKIT_DOCUMENT_URL", "FEATUREKIT_REFRESH_INTERVAL", "FEATUREKIT_API_TOKEN", "FEATUREKIT_PROMETHEUS", "FEATUREKIT_STREAM_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := featurekit.LoadEnvConfig("testdata/test.env")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, "https://toggles.example.com/api/document", cfg.DocumentURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "secret token", cfg.APIToken)
	assert.True(t, cfg.Prometheus)
	assert.Equal(t, "https://toggles.example.com/api/stream", cfg.StreamURL)
	assert.Equal(t, map[string]string{"Authorization": "secret token"}, cfg.AuthHeaders())
	assert.Len(t, cfg.PollerOptions(), 4)
	assert.Len(t, cfg.UploaderOptions(), 4)
	assert.Len(t, cfg.StreamOptions(), 1)
}

func TestLoadEnvConfigMissingFile(t *testing.T) {
	_, err := featurekit.LoadEnvConfig("testdata/missing.env")
	assert.Error(t, err)
}

func TestLoadEnvConfigInvalidValue(t *testing.T) {
	t.Setenv("FEATUREKIT_REFRESH_INTERVAL", "soon")

	_, err := featurekit.LoadEnvConfig()
	assert.Error(t, err)
}

func TestAuthHeaders(t *testing.T) {
	t.Parallel()
	cfg := featurekit.EnvConfig{APIToken: "secret", RefreshInterval: time.Second}
	assert.Equal(t, map[string]string{"Authorization": "secret"}, cfg.AuthHeaders())
}
