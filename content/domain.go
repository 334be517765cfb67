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

package content

import (
	"fmt"
	"net/url"
	"strings"
)

// Domain binds a host name, optionally with a base path, to a content root
// and a culture.
type Domain struct {
	ID   int
	Name string
	// Culture is the culture served under this domain.
	Culture string
	// RootContentID is the node the domain is assigned to.
	RootContentID int
	// Wildcard domains only carry a culture and never produce URLs.
	Wildcard  bool
	SortOrder int
}

// URI parses the domain name into an absolute URL. Names without a scheme
// ("example.org/en") take defaultScheme. The returned path never ends with a
// slash and is empty for a bare host.
func (d Domain) URI(defaultScheme string) (*url.URL, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, fmt.Errorf("domain %d: empty name", d.ID)
	}
	if !strings.Contains(name, "://") {
		if defaultScheme == "" {
			defaultScheme = "https"
		}
		name = defaultScheme + "://" + name
	}
	u, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("domain %d: %w", d.ID, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("domain %d: %q has no host", d.ID, d.Name)
	}

	return &url.URL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Host),
		Path:   strings.TrimRight(u.Path, "/"),
	}, nil
}
