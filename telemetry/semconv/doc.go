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

// Package semconv defines the attribute keys shared by logs and spans.
//
// HTTP, network and trace keys follow OpenTelemetry naming. The content
// keys describe how a request was resolved against the content tree.
//
//	logger.InfoContext(ctx, "request resolved",
//	    semconv.HTTPTarget, r.URL.Path,
//	    semconv.ContentID, node.ID,
//	    semconv.ContentCulture, culture,
//	)
package semconv
