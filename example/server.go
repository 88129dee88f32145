// Command example serves a page whose button is controlled by the secret-button toggle.
//
// Configure it through FEATUREKIT_* variables or a .env file, for example:
//
//	FEATUREKIT_DOCUMENT_FILE=toggles.yaml FEATUREKIT_WATCH_FILE=true go run ./example --addr :5000
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/featurekit/featurekit-go"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/internal/logging"
)

const toggleName = "secret-button"

var page = template.Must(template.New("home").Parse(`<!doctype html>
<html>
<body>
{{if .Identifier}}<p>Hello {{.Identifier}}</p>{{end}}
{{if .ShowButton}}<button style="background-color: {{.ButtonColour}}">Secret</button>{{end}}
</body>
</html>`))

type TemplateData struct {
	Identifier   string
	ShowButton   bool
	ButtonColour string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "example",
		Short:        "Serve a page gated by the secret-button toggle",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringP("addr", "a", ":5000", "Address to listen on")
	cmd.Flags().StringSliceP("env-file", "e", nil, "Env files to load before reading FEATUREKIT_* variables")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("failed to get addr flag: %w", err)
	}
	envFiles, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}

	cfg, err := featurekit.LoadEnvConfig(envFiles...)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := []featurekit.Option{featurekit.WithLogger(logger)}
	if cfg.Prometheus {
		options = append(options, featurekit.WithPrometheus())
	}
	engine := featurekit.New(options...)

	if err := startSources(ctx, engine, cfg, logger); err != nil {
		return fmt.Errorf("start document source: %w", err)
	}
	if cfg.MetricsURL != "" {
		uploader := featurekit.NewMetricsUploader(engine, cfg.MetricsURL,
			append(cfg.UploaderOptions(), featurekit.WithUploadLogger(logger))...)
		go uploader.Start(ctx)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", server.Addr, "version", featurekit.Version())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func startSources(ctx context.Context, engine *featurekit.Engine, cfg featurekit.EnvConfig, logger *slog.Logger) error {
	switch {
	case cfg.DocumentFile != "":
		source := featurekit.NewFileSource(engine, cfg.DocumentFile, featurekit.WithFileLogger(logger))
		if err := source.Load(); err != nil {
			return err
		}
		if cfg.WatchFile {
			go func() {
				if err := source.Watch(ctx); err != nil {
					logger.Error("file watcher stopped", "error", err)
				}
			}()
		}
	case cfg.DocumentURL != "":
		poller := featurekit.NewPoller(engine, cfg.DocumentURL,
			append(cfg.PollerOptions(), featurekit.WithPollLogger(logger))...)
		if _, err := poller.Refresh(ctx); err != nil {
			return err
		}
		if cfg.StreamURL == "" {
			go poller.Start(ctx)
			break
		}
		stream := featurekit.NewStream(poller, cfg.StreamURL,
			append(cfg.StreamOptions(), featurekit.WithStreamLogger(logger))...)
		go stream.Start(ctx)
	default:
		return errors.New("set FEATUREKIT_DOCUMENT_FILE or FEATUREKIT_DOCUMENT_URL")
	}
	return nil
}

func newRouter(engine *featurekit.Engine, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", rootHandler(engine, logger))
	r.Get("/toggles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(engine.EvaluateAll(requestContext(r)))
	})
	r.Get("/toggles/{name}", func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.Evaluate(chi.URLParam(r, "name"), requestContext(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
	if h := engine.MetricsHandler(); h != nil {
		r.Handle("/metrics", h)
	}
	return r
}

func rootHandler(engine *featurekit.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := requestContext(r)
		data := TemplateData{Identifier: ctx.UserID}

		res, err := engine.Evaluate(toggleName, ctx)
		if err == nil && res.Enabled {
			data.ShowButton = true
			if p := res.Variant.Payload; p != nil && p.Type == "json" {
				var button map[string]string
				if err := json.Unmarshal([]byte(p.Value), &button); err != nil {
					logger.Warn("malformed variant payload",
						slog.String("toggle", toggleName),
						slog.String("variant", res.Variant.Name),
						slog.Any("error", err),
					)
				}
				data.ButtonColour = button["colour"]
			}
		}
		_ = page.Execute(w, data)
	}
}

// requestContext builds an evaluation context from the identifier query parameter and any other
// parameters as custom properties.
func requestContext(r *http.Request) *contexts.Context {
	q := r.URL.Query()
	props := make(map[string]string, len(q))
	for key := range q {
		if key != "identifier" {
			props[key] = q.Get(key)
		}
	}
	ctx := contexts.New(q.Get("identifier"), props)
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx.RemoteAddress = host
	}
	return ctx
}
