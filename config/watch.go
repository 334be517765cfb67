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

package config

import (
	"context"
	"errors"
	"time"
)

// DefaultWatchInterval is the polling interval of [Watch].
const DefaultWatchInterval = 5 * time.Second

// Watch reloads c whenever the version of its sources changes and passes
// the new settings to fn. Consul sources block on the server until their
// key changes; files are compared by modification time and size.
//
// Watch returns when ctx is done. A failed reload is logged and the
// previous settings stay in effect.
func Watch(ctx context.Context, c *Config, interval time.Duration, fn func(*Settings)) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	last, err := c.Version(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ver, err := c.Version(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.WarnContext(ctx, "configuration version check failed", "error", err)
			continue
		}
		if ver == last {
			continue
		}

		s, err := c.Settings(ctx)
		if err != nil {
			c.logger.ErrorContext(ctx, "configuration reload failed", "error", err)
			continue
		}
		last = ver
		c.logger.InfoContext(ctx, "configuration reloaded")
		fn(s)
	}
}
