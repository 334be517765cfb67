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
	"context"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/finder"
)

type requestKey struct{}

func withRequest(ctx context.Context, req *finder.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFrom returns the resolution stored by the site's middleware.
func RequestFrom(ctx context.Context) (*finder.Request, bool) {
	req, ok := ctx.Value(requestKey{}).(*finder.Request)
	return req, ok && req != nil
}

// ContentFrom returns the content node resolved for the request.
func ContentFrom(ctx context.Context) (*content.Node, bool) {
	req, ok := RequestFrom(ctx)
	if !ok || req.Content == nil {
		return nil, false
	}

	return req.Content, true
}
