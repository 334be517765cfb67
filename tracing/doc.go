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

// Package tracing builds the OpenTelemetry tracer used by the content
// finder and the URL provider, and an HTTP middleware that opens a server
// span per request.
//
// Supported providers: noop (default), stdout, OTLP over gRPC and OTLP over
// HTTP. OTLP providers dial the collector, so they are initialized by
// [Tracer.Start] with a context rather than by [New]:
//
//	tr, err := tracing.New(
//	    tracing.WithServiceName("site"),
//	    tracing.WithOTLPHTTP("collector:4318"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.Shutdown(context.Background())
//
//	engine, _ := invisiblenodes.New(tree, domains, invisiblenodes.WithTracer(tr.Tracer()))
package tracing
