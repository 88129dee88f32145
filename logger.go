package featurekit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

type requestLogKey struct{}

type requestLog struct {
	logger  *slog.Logger
	started time.Time
}

// restySlogLogger implements a [resty.Logger] using a [slog.Logger].
type restySlogLogger struct {
	logger *slog.Logger
}

func (s restySlogLogger) Errorf(format string, v ...any) {
	s.logger.Error(fmt.Sprintf(format, v...))
}

func (s restySlogLogger) Warnf(format string, v ...any) {
	s.logger.Warn(fmt.Sprintf(format, v...))
}

func (s restySlogLogger) Debugf(format string, v ...any) {
	s.logger.Debug(fmt.Sprintf(format, v...))
}

func newRestyLogRequestMiddleware(logger *slog.Logger) resty.RequestMiddleware {
	return func(c *resty.Client, req *resty.Request) error {
		reqLogger := logger.WithGroup("http").With(
			"method", req.Method,
			"url", req.URL,
		)
		reqLogger.Debug("request")

		req.SetContext(context.WithValue(req.Context(), requestLogKey{}, requestLog{
			logger:  reqLogger,
			started: time.Now(),
		}))
		return nil
	}
}

func newRestyLogResponseMiddleware(logger *slog.Logger) resty.ResponseMiddleware {
	return func(client *resty.Client, resp *resty.Response) error {
		rl, ok := resp.Request.Context().Value(requestLogKey{}).(requestLog)
		if !ok {
			rl = requestLog{logger: logger, started: time.Now()}
		}
		reqLogger := rl.logger.With(
			slog.Int("status", resp.StatusCode()),
			slog.Duration("duration", time.Since(rl.started)),
			slog.Int64("content_length", resp.Size()),
		)
		if resp.IsError() {
			reqLogger.Error("error response")
		} else {
			reqLogger.Debug("response")
		}
		return nil
	}
}

// newRestyClient builds the HTTP client shared by the collaborators that talk to a toggle server.
func newRestyClient(logger *slog.Logger, timeout time.Duration, headers map[string]string) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetLogger(restySlogLogger{logger: logger}).
		SetHeader("User-Agent", getUserAgent()).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(newRestyLogRequestMiddleware(logger)).
		OnAfterResponse(newRestyLogResponseMiddleware(logger))
	if len(headers) > 0 {
		client.SetHeaders(headers)
	}
	return client
}
