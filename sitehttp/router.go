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

package sitehttp

import (
	"rivaas.dev/router"
)

// RouterMiddleware resolves requests for a rivaas router. Handlers read
// the node with ContentFrom(c.Request.Context()).
func (s *Site) RouterMiddleware() router.HandlerFunc {
	return func(c *router.Context) {
		req, ok := s.Resolve(c.Request)
		if ok && s.redirect(c.Response, c.Request) {
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(withRequest(c.Request.Context(), req))
		c.Next()
	}
}

// RouterHandler serves resolved requests with render and writes
// [Site.NotFound] for the rest. It is meant for [router.Router.NoRoute],
// so registered routes keep precedence over content.
func (s *Site) RouterHandler(render router.HandlerFunc) router.HandlerFunc {
	return func(c *router.Context) {
		req, ok := s.Resolve(c.Request)
		if !ok {
			s.NotFound(c.Response, c.Request)
			return
		}
		if s.redirect(c.Response, c.Request) {
			return
		}
		c.Request = c.Request.WithContext(withRequest(c.Request.Context(), req))
		render(c)
	}
}
