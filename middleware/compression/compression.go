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

// Package compression compresses responses with brotli or gzip, whichever
// the client prefers.
//
// Bodies shorter than the minimum size are sent as is. Responses that
// already carry a Content-Encoding, HEAD requests, 204/206/304 responses
// and streaming content types are never compressed.
package compression

import (
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	gzipLevel    int
	brotliLevel  int
	minSize      int
	enableGzip   bool
	enableBrotli bool
	excludeTypes []string
}

func defaultConfig() *config {
	return &config{
		logger:       slog.New(slog.DiscardHandler),
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  4,
		minSize:      256,
		enableGzip:   true,
		enableBrotli: true,
		excludeTypes: []string{"text/event-stream", "application/octet-stream", "application/grpc"},
	}
}

// WithLogger sets the logger for encoder errors. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithGzipLevel sets the gzip level. Invalid levels are ignored.
func WithGzipLevel(level int) Option {
	return func(cfg *config) {
		if level >= gzip.HuffmanOnly && level <= gzip.BestCompression {
			cfg.gzipLevel = level
		}
	}
}

// WithBrotliLevel sets the brotli quality, 0 to 11. Default: 4.
func WithBrotliLevel(level int) Option {
	return func(cfg *config) {
		if level >= brotli.BestSpeed && level <= brotli.BestCompression {
			cfg.brotliLevel = level
		}
	}
}

// WithMinSize sets the smallest body that is compressed. Default: 256.
func WithMinSize(n int) Option {
	return func(cfg *config) {
		cfg.minSize = max(n, 0)
	}
}

// WithoutGzip disables gzip.
func WithoutGzip() Option {
	return func(cfg *config) { cfg.enableGzip = false }
}

// WithoutBrotli disables brotli.
func WithoutBrotli() Option {
	return func(cfg *config) { cfg.enableBrotli = false }
}

// WithExcludeContentTypes adds content types that are sent uncompressed.
func WithExcludeContentTypes(types ...string) Option {
	return func(cfg *config) {
		cfg.excludeTypes = append(cfg.excludeTypes, types...)
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	pools := map[string]*sync.Pool{
		encodingGzip: {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, cfg.gzipLevel) //nolint:errcheck // level checked by WithGzipLevel
			return w
		}},
		encodingBrotli: {New: func() any {
			return brotli.NewWriterLevel(io.Discard, cfg.brotliLevel)
		}},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			encoding := cfg.negotiate(r.Header.Get("Accept-Encoding"))
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Accept-Encoding")
			cw := &compressWriter{ResponseWriter: w, cfg: cfg, encoding: encoding, pool: pools[encoding]}
			next.ServeHTTP(cw, r)
			if err := cw.Close(); err != nil {
				cfg.logger.WarnContext(r.Context(), "compression finalization failed", "error", err)
			}
		})
	}
}

// negotiate picks the enabled encoding with the highest q value, brotli
// on a tie.
func (cfg *config) negotiate(accept string) string {
	var best string
	bestQ := 0.0
	consider := func(name string, q float64) {
		if q > bestQ || (q == bestQ && q > 0 && name == encodingBrotli) {
			best, bestQ = name, q
		}
	}

	for part := range strings.SplitSeq(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := parseQ(params)
		switch name {
		case encodingBrotli:
			if cfg.enableBrotli {
				consider(name, q)
			}
		case encodingGzip:
			if cfg.enableGzip {
				consider(name, q)
			}
		case "*":
			if cfg.enableBrotli {
				consider(encodingBrotli, q)
			} else if cfg.enableGzip {
				consider(encodingGzip, q)
			}
		}
	}

	return best
}

func parseQ(params string) float64 {
	for p := range strings.SplitSeq(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}

		return q
	}

	return 1
}

func (cfg *config) skipContentType(ct string) bool {
	ct = strings.ToLower(ct)
	for _, t := range cfg.excludeTypes {
		if strings.Contains(ct, strings.ToLower(t)) {
			return true
		}
	}

	return false
}

type flusher interface {
	io.WriteCloser
	Flush() error
	Reset(io.Writer)
}

// compressWriter buffers the first minSize bytes to decide whether the
// body is worth compressing.
type compressWriter struct {
	http.ResponseWriter
	cfg      *config
	encoding string
	pool     *sync.Pool

	status  int
	buf     []byte
	decided bool
	enc     flusher
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.status != 0 {
		return
	}
	if code < http.StatusOK {
		cw.ResponseWriter.WriteHeader(code)
		return
	}
	cw.status = code
	if code == http.StatusNoContent || code == http.StatusPartialContent || code == http.StatusNotModified {
		cw.decide(false)
	}
}

func (cw *compressWriter) Write(p []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	if cw.decided {
		if cw.enc != nil {
			return cw.enc.Write(p)
		}

		return cw.ResponseWriter.Write(p)
	}

	cw.buf = append(cw.buf, p...)
	if len(cw.buf) >= cw.cfg.minSize {
		if err := cw.flushBuffer(true); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// decide sends the headers, compressed or not.
func (cw *compressWriter) decide(compress bool) {
	cw.decided = true
	h := cw.Header()
	if compress && h.Get("Content-Encoding") == "" && !cw.cfg.skipContentType(h.Get("Content-Type")) {
		h.Del("Content-Length")
		h.Set("Content-Encoding", cw.encoding)
		cw.enc = cw.pool.Get().(flusher)
		cw.enc.Reset(cw.ResponseWriter)
	}
	cw.ResponseWriter.WriteHeader(cw.status)
}

func (cw *compressWriter) flushBuffer(compress bool) error {
	cw.decide(compress)
	buf := cw.buf
	cw.buf = nil
	if len(buf) == 0 {
		return nil
	}
	var err error
	if cw.enc != nil {
		_, err = cw.enc.Write(buf)
	} else {
		_, err = cw.ResponseWriter.Write(buf)
	}

	return err
}

// Flush sends what is buffered, compressing it when enabled.
func (cw *compressWriter) Flush() {
	if !cw.decided {
		if cw.status == 0 {
			cw.status = http.StatusOK
		}
		if err := cw.flushBuffer(true); err != nil {
			return
		}
	}
	if cw.enc != nil {
		_ = cw.enc.Flush() //nolint:errcheck // http.Flusher has no error return
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Close finishes the body. A short body is written uncompressed.
func (cw *compressWriter) Close() error {
	if !cw.decided {
		if cw.status == 0 {
			return nil
		}
		if err := cw.flushBuffer(false); err != nil {
			return err
		}
	}
	if cw.enc == nil {
		return nil
	}
	err := cw.enc.Close()
	cw.enc.Reset(io.Discard)
	cw.pool.Put(cw.enc)
	cw.enc = nil

	return err
}

// Unwrap exposes the wrapped writer to [http.ResponseController].
func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
