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

package routecache

// NoOp never caches. It is used when caching is disabled.
type NoOp struct{}

// GetRoute implements [Cache]; it always misses.
func (NoOp) GetRoute(string, string) (int, bool) { return 0, false }

// StoreRoute implements [Cache].
func (NoOp) StoreRoute(string, string, int) {}

// ClearAll implements [Cache].
func (NoOp) ClearAll() {}

// ClearHost implements [Cache].
func (NoOp) ClearHost(string) {}

// ClearRoute implements [Cache].
func (NoOp) ClearRoute(string, string) {}
