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

// Package logging builds the [slog.Logger] used by the invisible nodes
// engine, its HTTP adapter and its command line tool.
//
// Every component accepts a plain *slog.Logger and defaults to a discarding
// logger, so this package is only needed where a process sets up its
// output:
//
//	logger := logging.MustNew(
//	    logging.WithConsoleHandler(),
//	    logging.WithServiceName("invisiblenodes"),
//	    logging.WithTraceCorrelation(),
//	)
//	engine, err := invisiblenodes.New(tree, domains,
//	    invisiblenodes.WithLogger(logger.Logger()),
//	)
//
// Attributes whose key names a credential ("password", "token", "secret",
// "api_key", "authorization") are redacted. [WithRedactKeys] adds more,
// which is useful for Consul ACL tokens that end up in config dumps.
//
// The level can change at runtime with [Logger.SetLevel]; loggers derived
// with With keep following it.
//
// # Testing
//
// [NewTestHelper] captures JSON output in memory and parses it back:
//
//	th := logging.NewTestHelper(t)
//	coord := invalidation.New(cache, urls, invalidation.WithLogger(th.Logger.Logger()))
//	...
//	th.AssertLog(t, "WARN", "url lookup failed", map[string]any{"node": 7})
package logging
