package featurekit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// Time to wait for a request to complete before terminating it.
	DefaultTimeout = 10 * time.Second

	DefaultRefreshInterval = 15 * time.Second
	DefaultMetricsInterval = 60 * time.Second

	// Quiet period before a changed document file is reloaded.
	DefaultFileDebounce = 100 * time.Millisecond
)

// EnvConfig configures the collaborators around an engine from the environment.
type EnvConfig struct {
	DocumentURL     string        `env:"FEATUREKIT_DOCUMENT_URL"`
	DocumentFile    string        `env:"FEATUREKIT_DOCUMENT_FILE"`
	WatchFile       bool          `env:"FEATUREKIT_WATCH_FILE"`
	StreamURL       string        `env:"FEATUREKIT_STREAM_URL"`
	RefreshInterval time.Duration `env:"FEATUREKIT_REFRESH_INTERVAL" envDefault:"15s"`
	MetricsURL      string        `env:"FEATUREKIT_METRICS_URL"`
	MetricsInterval time.Duration `env:"FEATUREKIT_METRICS_INTERVAL" envDefault:"60s"`
	APIToken        string        `env:"FEATUREKIT_API_TOKEN"`
	AppName         string        `env:"FEATUREKIT_APP_NAME" envDefault:"featurekit-go"`
	InstanceID      string        `env:"FEATUREKIT_INSTANCE_ID"`
	Timeout         time.Duration `env:"FEATUREKIT_TIMEOUT" envDefault:"10s"`
	Retries         int           `env:"FEATUREKIT_RETRIES" envDefault:"0"`
	LogLevel        string        `env:"FEATUREKIT_LOG_LEVEL" envDefault:"info"`
	Prometheus      bool          `env:"FEATUREKIT_PROMETHEUS"`
}

// LoadEnvConfig parses EnvConfig from the environment. Listed .env files are loaded first and must
// exist; without files a .env in the working directory is used when present. Variables already set
// in the environment win over file values.
func LoadEnvConfig(files ...string) (EnvConfig, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return EnvConfig{}, fmt.Errorf("load env files: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// AuthHeaders returns the headers carrying the API token, or nil without one.
func (c EnvConfig) AuthHeaders() map[string]string {
	if c.APIToken == "" {
		return nil
	}
	return map[string]string{"Authorization": c.APIToken}
}

// PollerOptions translates the config into poller options.
func (c EnvConfig) PollerOptions() []PollerOption {
	return []PollerOption{
		WithPollInterval(c.RefreshInterval),
		WithPollTimeout(c.Timeout),
		WithPollHeaders(c.AuthHeaders()),
		WithPollRetries(c.Retries),
	}
}

// StreamOptions translates the config into update stream options.
func (c EnvConfig) StreamOptions() []StreamOption {
	return []StreamOption{
		WithStreamHeaders(c.AuthHeaders()),
	}
}

// UploaderOptions translates the config into metrics uploader options.
func (c EnvConfig) UploaderOptions() []UploaderOption {
	return []UploaderOption{
		WithUploadInterval(c.MetricsInterval),
		WithUploadTimeout(c.Timeout),
		WithUploadIdentity(c.AppName, c.InstanceID),
		WithUploadHeaders(c.AuthHeaders()),
	}
}
