package featurekit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Refresher fetches the current document on demand. [Poller] implements it.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// Stream listens to a server-sent event stream announcing document updates. Every event carries the
// time of the update; when it is newer than the last one seen the refresher is asked to fetch the
// document. The connection is re-established with backoff when it drops.
type Stream struct {
	refresher Refresher
	client    *resty.Client
	url       string
	log       *slog.Logger
	backoff   *backoff

	lastUpdate time.Time
}

type StreamOption func(s *streamConfig)

type streamConfig struct {
	headers map[string]string
	logger  *slog.Logger
}

// WithStreamHeaders adds headers, such as an API token, to the stream request.
func WithStreamHeaders(headers map[string]string) StreamOption {
	return func(s *streamConfig) {
		s.headers = headers
	}
}

func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(s *streamConfig) {
		s.logger = logger
	}
}

func NewStream(refresher Refresher, url string, options ...StreamOption) *Stream {
	cfg := streamConfig{logger: slog.Default()}
	for _, opt := range options {
		opt(&cfg)
	}

	log := cfg.logger.With(
		slog.String("worker", "stream"),
		slog.String("stream", url),
	)
	// No timeout: the response body stays open for the life of the connection.
	client := newRestyClient(log, 0, cfg.headers).
		SetHeader("Accept", "text/event-stream")
	return &Stream{
		refresher: refresher,
		client:    client,
		url:       url,
		log:       log,
		backoff:   newBackoff(),
	}
}

// Start keeps the stream connected until ctx is done. It blocks; run it in its own goroutine.
func (s *Stream) Start(ctx context.Context) {
	s.log.Debug("connecting to stream")
	defer s.log.Info("stopped")

	for ctx.Err() == nil {
		err := s.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Error("stream connection failed", "error", err)
		} else {
			s.log.Debug("stream closed by server")
		}
		if !s.backoff.wait(ctx) {
			return
		}
	}
}

// connect reads one connection until it ends.
func (s *Stream) connect(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(s.url)
	if err != nil {
		return &FetchError{URL: s.url, Err: err}
	}
	body := resp.RawBody()
	defer body.Close()
	if !resp.IsSuccess() {
		return &FetchError{
			URL:                s.url,
			ResponseStatusCode: resp.StatusCode(),
			ResponseStatus:     resp.Status(),
		}
	}

	s.log.Info("connected")
	s.backoff.reset()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		if err := s.handleEvent(ctx, line); err != nil {
			s.log.Error("failed to handle event", "error", err, "message", line)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Stream) handleEvent(ctx context.Context, line string) error {
	updatedAt, err := parseUpdatedAt(line)
	if err != nil {
		return err
	}
	if !updatedAt.After(s.lastUpdate) {
		return nil
	}
	if _, err := s.refresher.Refresh(ctx); err != nil {
		return err
	}
	s.lastUpdate = updatedAt
	return nil
}

// parseUpdatedAt reads an event such as `data: {"updatedAt": 1760600000.25}`, the update time in
// fractional Unix seconds.
func parseUpdatedAt(line string) (time.Time, error) {
	var event struct {
		UpdatedAt float64 `json:"updatedAt"`
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return time.Time{}, errors.New("failed to parse event data: " + err.Error())
	}
	if event.UpdatedAt <= 0 {
		return time.Time{}, errors.New("invalid 'updatedAt' value in event data")
	}

	seconds := int64(event.UpdatedAt)
	nanoseconds := int64((event.UpdatedAt - float64(seconds)) * 1e9)
	return time.Unix(seconds, nanoseconds), nil
}
