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

// Package metrics records route resolution metrics with OpenTelemetry.
//
// A [Recorder] owns a meter provider (Prometheus, OTLP over HTTP, stdout,
// or one supplied by the caller) and a fixed set of instruments:
//
//   - invisiblenodes_route_cache_lookups_total{result}    hit, miss, stale
//   - invisiblenodes_route_cache_evictions_total{reason}  event kind or "reload"
//   - invisiblenodes_locate_duration_seconds{found}       tree walk latency
//   - invisiblenodes_content_resolutions_total{outcome}   found, not_found, error
//   - invisiblenodes_urls_generated_total{mode,outcome}   ok, none
//
// All Record methods are safe on a nil *Recorder, so components can take an
// optional recorder without guarding every call.
//
// Basic usage with Prometheus:
//
//	recorder, err := metrics.New(
//	    metrics.WithServiceName("site"),
//	    metrics.WithPrometheus(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer recorder.Shutdown(context.Background())
//
//	handler, _ := recorder.Handler()
//	http.Handle("/metrics", handler)
//
// By default the global OpenTelemetry meter provider is left untouched; use
// [WithGlobalMeterProvider] to register it.
package metrics
