package featurekit

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// MetricsSource yields usage windows. [Engine] implements it.
type MetricsSource interface {
	SnapshotAndReset() MetricsBatch
}

// MetricsUploader periodically drains a MetricsSource and posts each non-empty window. A batch that
// fails to upload is logged and dropped; counts are never merged back.
type MetricsUploader struct {
	source     MetricsSource
	client     *resty.Client
	endpoint   string
	interval   time.Duration
	appName    string
	instanceID string
	log        *slog.Logger
	onUpload   func(ok bool)
}

// metricsPayload is the body posted to the metrics endpoint.
type metricsPayload struct {
	AppName    string       `json:"appName"`
	InstanceID string       `json:"instanceId"`
	Bucket     MetricsBatch `json:"bucket"`
}

type UploaderOption func(c *uploaderConfig)

type uploaderConfig struct {
	interval   time.Duration
	timeout    time.Duration
	appName    string
	instanceID string
	headers    map[string]string
	logger     *slog.Logger
}

func WithUploadInterval(interval time.Duration) UploaderOption {
	return func(c *uploaderConfig) {
		c.interval = interval
	}
}

// WithUploadIdentity sets the application name and instance id sent with every batch. An empty
// instance id keeps the generated one.
func WithUploadIdentity(appName, instanceID string) UploaderOption {
	return func(c *uploaderConfig) {
		c.appName = appName
		if instanceID != "" {
			c.instanceID = instanceID
		}
	}
}

func WithUploadHeaders(headers map[string]string) UploaderOption {
	return func(c *uploaderConfig) {
		c.headers = headers
	}
}

func WithUploadTimeout(timeout time.Duration) UploaderOption {
	return func(c *uploaderConfig) {
		c.timeout = timeout
	}
}

func WithUploadLogger(logger *slog.Logger) UploaderOption {
	return func(c *uploaderConfig) {
		c.logger = logger
	}
}

// NewMetricsUploader creates an uploader posting to endpoint.
func NewMetricsUploader(source MetricsSource, endpoint string, options ...UploaderOption) *MetricsUploader {
	cfg := uploaderConfig{
		interval:   DefaultMetricsInterval,
		timeout:    DefaultTimeout,
		appName:    sdkName,
		instanceID: uuid.NewString(),
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(&cfg)
	}

	log := cfg.logger.With(slog.String("worker", "metrics"))
	u := &MetricsUploader{
		source:     source,
		client:     newRestyClient(log, cfg.timeout, cfg.headers),
		endpoint:   endpoint,
		interval:   cfg.interval,
		appName:    cfg.appName,
		instanceID: cfg.instanceID,
		log:        log,
	}
	if engine, ok := source.(*Engine); ok && engine.prom != nil {
		u.onUpload = engine.prom.RecordUpload
	}
	return u
}

// Start uploads a window every interval until ctx is done, then flushes once more.
func (u *MetricsUploader) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := u.Flush(ctx); err != nil {
				u.log.Warn("failed to send metrics", "error", err)
			}
		case <-ctx.Done():
			if err := u.Flush(context.WithoutCancel(ctx)); err != nil {
				u.log.Warn("failed to send final metrics", "error", err)
			}
			return
		}
	}
}

// Flush drains the source and posts the window. Empty windows are skipped.
func (u *MetricsUploader) Flush(ctx context.Context) error {
	batch := u.source.SnapshotAndReset()
	if batch.IsEmpty() {
		return nil
	}

	resp, err := u.client.R().
		SetContext(ctx).
		SetBody(metricsPayload{AppName: u.appName, InstanceID: u.instanceID, Bucket: batch}).
		Post(u.endpoint)
	if err != nil {
		u.recordUpload(false)
		return &FetchError{URL: u.endpoint, Err: err}
	}
	if !resp.IsSuccess() {
		u.recordUpload(false)
		return &FetchError{
			URL:                u.endpoint,
			ResponseStatusCode: resp.StatusCode(),
			ResponseStatus:     resp.Status(),
		}
	}
	u.recordUpload(true)
	return nil
}

func (u *MetricsUploader) recordUpload(ok bool) {
	if u.onUpload != nil {
		u.onUpload(ok)
	}
}
