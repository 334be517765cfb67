// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"rivaas.dev/router"

	"rivaas.dev/invisiblenodes"
	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/middleware/accesslog"
	"rivaas.dev/invisiblenodes/middleware/compression"
	"rivaas.dev/invisiblenodes/middleware/recovery"
	"rivaas.dev/invisiblenodes/middleware/requestid"
	"rivaas.dev/invisiblenodes/sitehttp"
	"rivaas.dev/invisiblenodes/tracing"
	"rivaas.dev/invisiblenodes/urlprovider"
)

var errRequestIDFormat = errors.New("unknown request ID format")

type serveOptions struct {
	addr            string
	metricsProvider string
	metricsEndpoint string
	tracingProvider string
	tracingEndpoint string
	watchInterval   time.Duration
	forwarded       bool
	shutdownTimeout time.Duration
	accessLog       bool
	compress        bool
	requestIDs      string
}

func serveCmd(o *rootOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content tree over HTTP",
		Long: `Serve answers every request with the content node its host and path
resolve to, as JSON. /healthz reports liveness and /metrics serves
Prometheus metrics when that provider is selected. Settings from --config
or --consul-key are reloaded when they change.`,
		Example: `  invisiblenodes serve --tree site.yaml -c invisiblenodes.yaml --addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return so.run(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&so.addr, "addr", ":8080", "listen address")
	f.StringVar(&so.metricsProvider, "metrics", "prometheus", "metrics provider: prometheus, otlp or stdout")
	f.StringVar(&so.metricsEndpoint, "metrics-endpoint", "localhost:4318", "OTLP metrics collector endpoint")
	f.StringVar(&so.tracingProvider, "tracing", "noop", "tracing provider: noop, stdout, otlp or otlp-http")
	f.StringVar(&so.tracingEndpoint, "tracing-endpoint", "localhost:4317", "OTLP tracing collector endpoint")
	f.DurationVar(&so.watchInterval, "watch", config.DefaultWatchInterval, "settings reload interval; 0 disables reloading")
	f.BoolVar(&so.forwarded, "forwarded-headers", false, "trust X-Forwarded-Proto and X-Forwarded-Host")
	f.DurationVar(&so.shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	f.BoolVar(&so.accessLog, "access-log", true, "log every request")
	f.BoolVar(&so.compress, "compress", true, "compress responses with brotli or gzip")
	f.StringVar(&so.requestIDs, "request-ids", "uuid", "generated request ID format: uuid or ulid")

	return cmd
}

func (so *serveOptions) run(cmd *cobra.Command, o *rootOptions) error {
	ctx := cmd.Context()
	logger, err := o.logger(cmd)
	if err != nil {
		return err
	}
	log := logger.Logger()

	if so.requestIDs != "uuid" && so.requestIDs != "ulid" {
		return fmt.Errorf("%w: %q", errRequestIDFormat, so.requestIDs)
	}

	rec, err := so.newRecorder(log)
	if err != nil {
		return err
	}
	tr, err := so.newTracer(log)
	if err != nil {
		return err
	}
	if err = tr.Start(ctx); err != nil {
		return err
	}

	siteOpts := []sitehttp.Option{}
	if so.forwarded {
		siteOpts = append(siteOpts, sitehttp.WithForwardedHeaders())
	}
	rt, err := o.setup(cmd,
		invisiblenodes.WithMetrics(rec),
		invisiblenodes.WithTracer(tr.Tracer()),
		invisiblenodes.WithSiteOptions(siteOpts...),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	if o.watchable() && so.watchInterval > 0 {
		go func() {
			err := config.Watch(ctx, rt.cfg, so.watchInterval, func(s *config.Settings) {
				if err := rt.engine.ApplySettings(ctx, s); err != nil {
					log.ErrorContext(ctx, "settings rejected", "error", err)
				}
			})
			if err != nil {
				log.ErrorContext(ctx, "settings watch stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              so.addr,
		Handler:           tr.Middleware(so.wrap(newHandler(rt.engine, rec), log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	err = runServer(ctx, server, log, so.shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), so.shutdownTimeout)
	defer cancel()
	if serr := rec.Shutdown(shutdownCtx); serr != nil {
		log.WarnContext(shutdownCtx, "metrics shutdown failed", "error", serr)
	}
	if serr := tr.Shutdown(shutdownCtx); serr != nil {
		log.WarnContext(shutdownCtx, "tracing shutdown failed", "error", serr)
	}

	return err
}

func (so *serveOptions) newRecorder(log *slog.Logger) (*metrics.Recorder, error) {
	provider, err := metrics.ParseProvider(so.metricsProvider)
	if err != nil {
		return nil, err
	}
	opts := []metrics.Option{
		metrics.WithServiceName(serviceName),
		metrics.WithServiceVersion(Version),
		metrics.WithLogger(log),
	}
	switch provider {
	case metrics.OTLPProvider:
		opts = append(opts, metrics.WithOTLP(so.metricsEndpoint))
	case metrics.StdoutProvider:
		opts = append(opts, metrics.WithStdout())
	default:
		opts = append(opts, metrics.WithPrometheus())
	}

	return metrics.New(opts...)
}

func (so *serveOptions) newTracer(log *slog.Logger) (*tracing.Tracer, error) {
	provider, err := tracing.ParseProvider(so.tracingProvider)
	if err != nil {
		return nil, err
	}
	opts := []tracing.Option{
		tracing.WithServiceName(serviceName),
		tracing.WithServiceVersion(Version),
		tracing.WithLogger(log),
	}
	switch provider {
	case tracing.StdoutProvider:
		opts = append(opts, tracing.WithStdout())
	case tracing.OTLPProvider:
		opts = append(opts, tracing.WithOTLP(so.tracingEndpoint))
	case tracing.OTLPHTTPProvider:
		opts = append(opts, tracing.WithOTLPHTTP(so.tracingEndpoint))
	default:
		opts = append(opts, tracing.WithNoop())
	}

	return tracing.New(opts...)
}

// wrap adds the request ID, access log, panic recovery and compression
// middleware, outermost first.
func (so *serveOptions) wrap(h http.Handler, log *slog.Logger) http.Handler {
	if so.compress {
		h = compression.New(compression.WithLogger(log))(h)
	}
	h = recovery.New(recovery.WithLogger(log))(h)
	if so.accessLog {
		h = accesslog.New(
			accesslog.WithLogger(log),
			accesslog.WithExcludePaths("/healthz", "/metrics"),
			accesslog.WithSlowThreshold(time.Second),
		)(h)
	}
	idOpts := []requestid.Option{}
	if so.requestIDs == "ulid" {
		idOpts = append(idOpts, requestid.WithULID())
	}

	return requestid.New(idOpts...)(h)
}

// contentView is the JSON body of a resolved request.
type contentView struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	ContentType string   `json:"contentType"`
	Culture     string   `json:"culture"`
	URL         string   `json:"url,omitempty"`
	OtherURLs   []string `json:"otherUrls,omitempty"`
}

func newHandler(e *invisiblenodes.Engine, rec *metrics.Recorder) http.Handler {
	r := router.MustNew()
	r.GET("/healthz", func(c *router.Context) {
		_ = c.String(http.StatusOK, "ok")
	})
	if rec != nil {
		if h, err := rec.Handler(); err == nil {
			r.GET("/metrics", func(c *router.Context) {
				h.ServeHTTP(c.Response, c.Request)
			})
		}
	}
	r.NoRoute(e.Site().RouterHandler(func(c *router.Context) {
		ctx := c.Request.Context()
		req, _ := sitehttp.RequestFrom(ctx)
		n := req.Content

		view := contentView{ID: n.ID, Name: n.Name, ContentType: n.ContentType, Culture: req.Culture}
		if info, ok := e.URLs().GetURL(ctx, n, urlprovider.ModeDefault, req.Culture, req.URL); ok {
			view.URL = info.Text
		}
		for _, info := range e.URLs().GetOtherURLs(ctx, n.ID, req.URL) {
			view.OtherURLs = append(view.OtherURLs, info.Text)
		}
		_ = c.JSON(http.StatusOK, view)
	}))

	return r
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, server *http.Server, log *slog.Logger, timeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.InfoContext(ctx, "server shutting down", "reason", context.Cause(ctx))
	}

	// ctx is already done; the shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.InfoContext(shutdownCtx, "server exited")

	return nil
}
