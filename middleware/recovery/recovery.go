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

// Package recovery turns handler panics into 500 problem responses.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "rivaas.dev/invisiblenodes/errors"
	"rivaas.dev/invisiblenodes/middleware/requestid"
	"rivaas.dev/invisiblenodes/telemetry/semconv"
)

// ErrPanic is the error reported to the client for a recovered panic.
var ErrPanic = errors.New("internal server error")

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	formatter  apperrors.Formatter
	stackTrace bool
	stackSize  int
}

func defaultConfig() *config {
	return &config{
		logger:     slog.New(slog.DiscardHandler),
		formatter:  apperrors.NewRFC9457(""),
		stackTrace: true,
		stackSize:  4 << 10,
	}
}

// WithLogger logs recovered panics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithFormatter sets the error response format. Default: RFC 9457.
func WithFormatter(f apperrors.Formatter) Option {
	return func(cfg *config) {
		if f != nil {
			cfg.formatter = f
		}
	}
}

// WithStackTrace enables or disables stack capture. Default: true.
func WithStackTrace(enabled bool) Option {
	return func(cfg *config) {
		cfg.stackTrace = enabled
	}
}

// WithStackSize caps the logged stack in bytes. Default: 4KB.
func WithStackSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.stackSize = size
		}
	}
}

// New returns the middleware. [http.ErrAbortHandler] is re-raised so the
// server can abort the connection.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				cfg.recovered(w, r, v)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func (cfg *config) recovered(w http.ResponseWriter, r *http.Request, v any) {
	ctx := r.Context()
	msg := fmt.Sprintf("%v", v)
	typ := fmt.Sprintf("%T", v)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		span.SetStatus(codes.Error, "panic recovered")
		span.SetAttributes(
			attribute.Bool(semconv.ExceptionEscaped, true),
			attribute.String(semconv.ExceptionType, typ),
			attribute.String(semconv.ExceptionMessage, msg),
		)
		if err, ok := v.(error); ok {
			span.RecordError(err)
		}
	}

	attrs := []any{
		semconv.ExceptionType, typ,
		semconv.ExceptionMessage, msg,
		semconv.HTTPMethod, r.Method,
		semconv.HTTPTarget, r.URL.Path,
	}
	if id := requestid.Get(ctx); id != "" {
		attrs = append(attrs, semconv.RequestID, id)
	}
	if cfg.stackTrace {
		stack := debug.Stack()
		if len(stack) > cfg.stackSize {
			stack = stack[:cfg.stackSize]
		}
		attrs = append(attrs, semconv.ExceptionStack, string(stack))
	}
	cfg.logger.ErrorContext(ctx, "panic recovered", attrs...)

	err := apperrors.WithCode(apperrors.WithStatus(ErrPanic, http.StatusInternalServerError), "internal_error")
	if werr := apperrors.Write(w, r, cfg.formatter, err); werr != nil {
		cfg.logger.WarnContext(ctx, "writing panic response failed", "error", werr)
	}
}
