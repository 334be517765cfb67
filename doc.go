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

// Package invisiblenodes serves content trees in which some nodes are
// invisible: their URL segment is left out, so their children appear
// directly under the invisible node's parent.
//
// An [Engine] wires the pieces together around a host's content tree and
// domain registry:
//
//   - a [rules.Classifier] decides which content types are invisible
//   - a route cache maps (host, path) to node ids
//   - a [locator.Locator] walks the tree when the cache misses
//   - a [urlprovider.Provider] generates URLs that skip invisible ancestors
//   - an [invalidation.Coordinator] evicts cached routes on lifecycle events
//   - a [finder.ContentFinder] and a [sitehttp.Site] answer requests
//
// Basic usage:
//
//	store, err := content.LoadFile(ctx, "site.yaml")
//	if err != nil {
//	    return err
//	}
//	settings, err := config.LoadSettings(ctx, config.WithFile("invisiblenodes.yaml"))
//	if err != nil {
//	    return err
//	}
//	bus := notify.NewBus()
//	store.SetPublisher(bus)
//	engine, err := invisiblenodes.New(store, store,
//	    invisiblenodes.WithSettings(settings),
//	    invisiblenodes.WithBus(bus),
//	)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	http.Handle("/", engine.Site().Handler(render))
//
// Settings can be replaced at runtime with [Engine.ApplySettings], for
// example from [config.Watch].
package invisiblenodes
