package featurekit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Loader accepts a serialized toggle document. [Engine] implements it.
type Loader interface {
	Load(data []byte) error
}

// Poller keeps an engine in sync with a document served over HTTP. It sends the last ETag so an
// unchanged document costs a 304, and backs off exponentially while the server is failing.
type Poller struct {
	loader   Loader
	client   *resty.Client
	url      string
	interval time.Duration
	log      *slog.Logger
	backoff  *backoff

	etag string
}

type PollerOption func(p *pollerConfig)

type pollerConfig struct {
	interval time.Duration
	timeout  time.Duration
	headers  map[string]string
	logger   *slog.Logger
	retries  int
}

// WithPollInterval sets the time between successful refreshes.
func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *pollerConfig) {
		p.interval = interval
	}
}

// WithPollTimeout sets the per-request timeout.
func WithPollTimeout(timeout time.Duration) PollerOption {
	return func(p *pollerConfig) {
		p.timeout = timeout
	}
}

// WithPollHeaders adds headers, such as an API token, to every request.
func WithPollHeaders(headers map[string]string) PollerOption {
	return func(p *pollerConfig) {
		p.headers = headers
	}
}

func WithPollLogger(logger *slog.Logger) PollerOption {
	return func(p *pollerConfig) {
		p.logger = logger
	}
}

// WithPollRetries lets the HTTP client retry a failed request count times before the poller backs
// off.
func WithPollRetries(count int) PollerOption {
	return func(p *pollerConfig) {
		p.retries = count
	}
}

// NewPoller creates a poller fetching url into loader.
func NewPoller(loader Loader, url string, options ...PollerOption) *Poller {
	cfg := pollerConfig{
		interval: DefaultRefreshInterval,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(&cfg)
	}

	log := cfg.logger.With(
		slog.String("worker", "poller"),
		slog.String("url", url),
	)
	client := newRestyClient(log, cfg.timeout, cfg.headers)
	if cfg.retries > 0 {
		client.SetRetryCount(cfg.retries)
	}
	return &Poller{
		loader:   loader,
		client:   client,
		url:      url,
		interval: cfg.interval,
		log:      log,
		backoff:  newBackoff(),
	}
}

// Refresh fetches the document once. It reports whether a new document was loaded; a 304 is not a
// change. Load errors are returned as is.
func (p *Poller) Refresh(ctx context.Context) (bool, error) {
	req := p.client.R().SetContext(ctx)
	if p.etag != "" {
		req.SetHeader("If-None-Match", p.etag)
	}
	resp, err := req.Get(p.url)
	if err != nil {
		return false, &FetchError{URL: p.url, Err: err}
	}
	if resp.StatusCode() == http.StatusNotModified {
		return false, nil
	}
	if !resp.IsSuccess() {
		return false, &FetchError{
			URL:                p.url,
			ResponseStatusCode: resp.StatusCode(),
			ResponseStatus:     resp.Status(),
		}
	}

	if err := p.loader.Load(resp.Body()); err != nil {
		return false, err
	}
	p.etag = resp.Header().Get("ETag")
	return true, nil
}

// Start refreshes until ctx is done. It blocks; run it in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	p.log.Debug("starting")
	defer p.log.Info("stopped")

	for {
		changed, err := p.Refresh(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.log.Error("failed to refresh toggle document", "error", err)
			if !p.backoff.wait(ctx) {
				return
			}
			continue
		}
		p.backoff.reset()
		if changed {
			p.log.Debug("toggle document refreshed")
		}

		t := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
