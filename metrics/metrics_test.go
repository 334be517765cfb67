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

//go:build !integration

package metrics

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	t.Parallel()

	r, reader := TestingRecorder(t)
	ctx := t.Context()

	r.RecordCacheLookup(ctx, ResultHit)
	r.RecordCacheLookup(ctx, ResultHit)
	r.RecordCacheLookup(ctx, ResultMiss)
	r.RecordEviction(ctx, "moved", 3)
	r.RecordEviction(ctx, "moved", 0)
	r.RecordResolution(ctx, OutcomeFound)
	r.RecordURL(ctx, "absolute", false)

	assert.Equal(t, int64(2), TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "hit"))
	assert.Equal(t, int64(1), TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "miss"))
	assert.Equal(t, int64(3), TestingSum(t, reader, "invisiblenodes_route_cache_evictions_total", "reason", "moved"))
	assert.Equal(t, int64(1), TestingSum(t, reader, "invisiblenodes_content_resolutions_total", "outcome", "found"))
	assert.Equal(t, int64(1), TestingSum(t, reader, "invisiblenodes_urls_generated_total", "mode", "absolute", "outcome", "none"))
}

func TestRecorder_LocateHistogram(t *testing.T) {
	t.Parallel()

	r, reader := TestingRecorder(t)

	r.RecordLocate(t.Context(), 150*time.Microsecond, true)
	r.RecordLocate(t.Context(), time.Millisecond, false)

	assert.Equal(t, uint64(2), TestingHistogramCount(t, reader, "invisiblenodes_locate_duration_seconds"))
}

func TestRecorder_NilIsNoOp(t *testing.T) {
	t.Parallel()

	var r *Recorder
	ctx := context.Background()

	assert.NotPanics(t, func() {
		r.RecordCacheLookup(ctx, ResultHit)
		r.RecordEviction(ctx, "saving", 1)
		r.RecordLocate(ctx, time.Millisecond, true)
		r.RecordResolution(ctx, OutcomeFound)
		r.RecordURL(ctx, "relative", true)
		_ = r.Shutdown(ctx)
	})
}

func TestRecorder_PrometheusHandler(t *testing.T) {
	t.Parallel()

	r, err := New(WithPrometheus(), WithServiceName("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })

	r.RecordCacheLookup(t.Context(), ResultStale)

	handler, err := r.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "invisiblenodes_route_cache_lookups_total")
	assert.Contains(t, string(body), `result="stale"`)
}

func TestRecorder_HandlerRequiresPrometheus(t *testing.T) {
	t.Parallel()

	r, _ := TestingRecorder(t)

	_, err := r.Handler()
	require.ErrorIs(t, err, ErrNotPrometheus)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "two providers", opts: []Option{WithPrometheus(), WithStdout()}},
		{name: "empty service name", opts: []Option{WithServiceName("")}},
		{name: "bad interval", opts: []Option{WithStdout(), WithExportInterval(0)}},
		{name: "nil meter provider", opts: []Option{WithMeterProvider(nil)}},
		{name: "no buckets", opts: []Option{WithDurationBuckets()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts...)
			require.Error(t, err)
		})
	}

	assert.Panics(t, func() { MustNew(WithServiceName("")) })
}

func TestRecorder_StdoutShutdown(t *testing.T) {
	t.Parallel()

	r, err := New(WithStdout(), WithExportInterval(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StdoutProvider, r.Provider())

	require.NoError(t, r.Shutdown(t.Context()))
	require.NoError(t, r.Shutdown(t.Context()), "shutdown is idempotent")
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, PrometheusProvider, p)

	p, err = ParseProvider("otlp")
	require.NoError(t, err)
	assert.Equal(t, OTLPProvider, p)

	_, err = ParseProvider("statsd")
	require.Error(t, err)
}

func TestOTLPOptions(t *testing.T) {
	t.Parallel()

	assert.Nil(t, otlpOptions(""))
	assert.Len(t, otlpOptions("http://collector:4318/v1/metrics"), 2)
	assert.Len(t, otlpOptions("collector:4318"), 1)
}

func TestDefaultEventHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := DefaultEventHandler(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	handler(Event{Type: EventWarning, Message: "careful", Args: []any{"k", "v"}})

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "k=v")
	assert.NotPanics(t, func() { DefaultEventHandler(nil)(Event{Type: EventError}) })
}
