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

package semconv

// Service metadata, set once on a logger.
const (
	ServiceName       = "service.name"
	ServiceVersion    = "service.version"
	DeploymentEnviron = "deployment.environment"
)

// HTTP attributes.
const (
	HTTPMethod     = "http.method"
	HTTPRoute      = "http.route"
	HTTPTarget     = "http.target"
	HTTPHost       = "http.host"
	HTTPStatusCode = "http.status_code"
	HTTPScheme     = "http.scheme"
	HTTPUserAgent  = "http.user_agent"

	// HTTPResponseSize is the number of body bytes written.
	HTTPResponseSize = "http.response_size"

	// HTTPDuration is the handler time in milliseconds.
	HTTPDuration = "http.duration_ms"
)

// Network attributes.
const (
	// NetworkPeerIP is the socket peer, which may be a proxy.
	NetworkPeerIP = "network.peer.ip"
)

// Trace correlation.
const (
	TraceID = "trace_id"
	SpanID  = "span_id"
)

// RequestID correlates the records of one request.
const RequestID = "req.id"

// Content resolution attributes.
const (
	ContentID      = "content.id"
	ContentType    = "content.type"
	ContentCulture = "content.culture"
	DomainID       = "domain.id"

	// CacheResult is hit, miss or stale.
	CacheResult = "cache.result"
)

// Panic attributes.
const (
	ExceptionType    = "exception.type"
	ExceptionMessage = "exception.message"
	ExceptionEscaped = "exception.escaped"
	ExceptionStack   = "exception.stacktrace"
)
