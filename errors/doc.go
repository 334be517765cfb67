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

// Package errors turns Go errors into HTTP error responses.
//
// A [Formatter] maps an error to a [Response]. [RFC9457] produces
// "application/problem+json" bodies and [Simple] produces a small JSON
// object. Errors control the outcome by implementing [ErrorType] (status),
// [ErrorCode] (machine-readable code) or [ErrorDetails] (extra data), or by
// being wrapped with [WithStatus] and [WithCode].
//
// The site HTTP adapter uses this package for requests that resolve to no
// content:
//
//	err := errors.WithCode(errors.WithStatus(fmt.Errorf("no content at %s", path), http.StatusNotFound), "content_not_found")
//	errors.Write(w, r, errors.NewRFC9457("https://invisiblenodes.dev/problems"), err)
package errors
