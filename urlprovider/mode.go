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

package urlprovider

import (
	"fmt"
	"strings"
)

// Mode controls whether a generated URL is absolute.
type Mode int

const (
	// ModeDefault returns a path unless the URL's authority differs from
	// the current request's, in which case it returns an absolute URL.
	ModeDefault Mode = iota
	// ModeRelative always returns the path only.
	ModeRelative
	// ModeAbsolute always returns scheme, authority and path, or nothing
	// when no authority can be resolved.
	ModeAbsolute
	// ModeAuto behaves like ModeDefault.
	ModeAuto
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeRelative:
		return "relative"
	case ModeAbsolute:
		return "absolute"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name, ignoring case. An empty name selects
// [ModeDefault].
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return ModeDefault, nil
	case "relative":
		return ModeRelative, nil
	case "absolute":
		return ModeAbsolute, nil
	case "auto":
		return ModeAuto, nil
	default:
		return 0, fmt.Errorf("urlprovider: unknown mode %q", name)
	}
}

// URLInfo is a generated URL.
type URLInfo struct {
	Text    string
	Culture string
	// IsURL is false when Text is a message rather than a link.
	IsURL bool
}
