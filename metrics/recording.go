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

package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// initializeMetrics creates the instruments.
func (r *Recorder) initializeMetrics() error {
	var err error

	r.cacheLookups, err = r.meter.Int64Counter(
		"invisiblenodes_route_cache_lookups_total",
		metric.WithDescription("Route cache lookups by result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache lookup counter: %w", err)
	}

	r.cacheEvictions, err = r.meter.Int64Counter(
		"invisiblenodes_route_cache_evictions_total",
		metric.WithDescription("Route cache entries evicted by reason"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache eviction counter: %w", err)
	}

	r.locateDuration, err = r.meter.Float64Histogram(
		"invisiblenodes_locate_duration_seconds",
		metric.WithDescription("Duration of content tree walks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create locate duration histogram: %w", err)
	}

	r.resolutions, err = r.meter.Int64Counter(
		"invisiblenodes_content_resolutions_total",
		metric.WithDescription("Content finder resolutions by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create resolution counter: %w", err)
	}

	r.urlsGenerated, err = r.meter.Int64Counter(
		"invisiblenodes_urls_generated_total",
		metric.WithDescription("URLs generated by mode and outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create url counter: %w", err)
	}

	return nil
}

// RecordCacheLookup counts a route cache lookup. result is one of
// [ResultHit], [ResultMiss] or [ResultStale].
func (r *Recorder) RecordCacheLookup(ctx context.Context, result string) {
	if r == nil {
		return
	}
	r.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordEviction counts n evicted entries.
func (r *Recorder) RecordEviction(ctx context.Context, reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cacheEvictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordLocate records the duration of one tree walk.
func (r *Recorder) RecordLocate(ctx context.Context, d time.Duration, found bool) {
	if r == nil {
		return
	}
	r.locateDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("found", strconv.FormatBool(found))))
}

// RecordResolution counts a content finder outcome.
func (r *Recorder) RecordResolution(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordURL counts a URL generation attempt.
func (r *Recorder) RecordURL(ctx context.Context, mode string, ok bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "none"
	}
	r.urlsGenerated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}
