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

// Package config loads invisible node [Settings] from layered sources.
//
// Sources are read in order and merged, later sources overriding earlier
// ones. Files and in-memory content are decoded by the codec registry
// (YAML, JSON, TOML); environment variables and Consul keys are supported
// too. The merged map is validated against a JSON schema, then bound to a
// struct with `default` tags applied first.
//
//	settings, err := config.LoadSettings(ctx,
//	    config.WithFile("invisiblenodes.yaml"),
//	    config.WithConsul("${APP_ENV}/invisiblenodes.json"),
//	    config.WithEnv(config.EnvPrefix),
//	)
//
// [Watch] keeps settings current. Consul sources use blocking queries so a
// change is picked up as soon as the key is written.
//
// Errors are returned as [*Error] carrying the failing source and
// operation.
package config
