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

// Package sitehttp serves content trees over HTTP.
//
// A [Site] derives the domain and culture of a request from its host,
// resolves the path to a content node with the content finder, applies
// the trailing slash policy with permanent redirects and stores the node
// in the request context:
//
//	site := sitehttp.New(engine.Finder(), store)
//	mux.Handle("/", site.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    n, _ := sitehttp.ContentFrom(r.Context())
//	    fmt.Fprintln(w, n.Name)
//	})))
//
// With rivaas.dev/router the same resolution runs as middleware or as the
// router's NoRoute handler:
//
//	r := router.MustNew()
//	r.NoRoute(site.RouterHandler(render))
//
// Requests that resolve to nothing get an RFC 9457 problem with status
// 404 and code "content_not_found".
package sitehttp
