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

// Package accesslog writes one structured record per HTTP request.
//
// Failed (status >= 400) and slow requests are always logged. Other
// requests obey [WithErrorsOnly] and [WithSampleRate]; sampling hashes the
// request ID so every replica makes the same decision for a request.
package accesslog

import (
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"rivaas.dev/invisiblenodes/middleware/requestid"
	"rivaas.dev/invisiblenodes/telemetry/semconv"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	excludePaths    map[string]bool
	excludePrefixes []string
	sampleRate      float64
	errorsOnly      bool
	slowThreshold   time.Duration
}

func defaultConfig() *config {
	return &config{
		excludePaths: make(map[string]bool),
		sampleRate:   1.0,
	}
}

// WithLogger sets the destination. Without a logger nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths skips exact path matches.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes skips paths with any of the prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithSampleRate logs the given fraction of successful requests. The rate
// is clamped to [0, 1].
func WithSampleRate(rate float64) Option {
	return func(cfg *config) {
		cfg.sampleRate = min(max(rate, 0), 1)
	}
}

// WithErrorsOnly drops successful, fast requests.
func WithErrorsOnly() Option {
	return func(cfg *config) {
		cfg.errorsOnly = true
	}
}

// WithSlowThreshold logs requests slower than d at warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = d
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		if cfg.logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)
			cfg.log(r, rw, time.Since(start))
		})
	}
}

func (cfg *config) excluded(path string) bool {
	if cfg.excludePaths[path] {
		return true
	}
	for _, prefix := range cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (cfg *config) log(r *http.Request, rw *responseWriter, d time.Duration) {
	ctx := r.Context()
	status := rw.StatusCode()
	id := requestid.Get(ctx)
	isError := status >= 400
	isSlow := cfg.slowThreshold > 0 && d >= cfg.slowThreshold

	if !isError && !isSlow {
		if cfg.errorsOnly || !sampleByHash(id, cfg.sampleRate) {
			return
		}
	}

	attrs := []any{
		semconv.HTTPMethod, r.Method,
		semconv.HTTPTarget, r.URL.Path,
		semconv.HTTPHost, r.Host,
		semconv.HTTPStatusCode, status,
		semconv.HTTPDuration, d.Milliseconds(),
		semconv.HTTPResponseSize, rw.size,
		semconv.HTTPUserAgent, r.UserAgent(),
		semconv.NetworkPeerIP, peerIP(r.RemoteAddr),
	}
	if id != "" {
		attrs = append(attrs, semconv.RequestID, id)
	}
	if isSlow {
		attrs = append(attrs, "slow", true)
	}

	switch {
	case status >= 500:
		cfg.logger.ErrorContext(ctx, "access", attrs...)
	case isError || isSlow:
		cfg.logger.WarnContext(ctx, "access", attrs...)
	default:
		cfg.logger.InfoContext(ctx, "access", attrs...)
	}
}

func peerIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

// sampleByHash keeps a request when the hash of its ID falls under rate.
// Requests without an ID are kept.
func sampleByHash(id string, rate float64) bool {
	if rate >= 1 || id == "" {
		return true
	}
	if rate <= 0 {
		return false
	}
	h := sha256.Sum256([]byte(id))

	return binary.BigEndian.Uint64(h[:8]) <= uint64(rate*float64(^uint64(0)))
}

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)

	return n, err
}

func (rw *responseWriter) StatusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}

	return rw.status
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to [http.ResponseController].
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
