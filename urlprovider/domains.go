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
	"net/url"
	"slices"
	"strings"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/routecache"
)

// DomainAndURI pairs a domain with its parsed base URI.
type DomainAndURI struct {
	Domain content.Domain
	URI    *url.URL
}

// NewDomainAndURI parses d. Scheme-less domain names take the scheme of
// current, or https.
func NewDomainAndURI(d content.Domain, current *url.URL) (DomainAndURI, error) {
	scheme := "https"
	if current != nil && current.Scheme != "" {
		scheme = current.Scheme
	}
	u, err := d.URI(scheme)
	if err != nil {
		return DomainAndURI{}, err
	}

	return DomainAndURI{Domain: d, URI: u}, nil
}

// DomainMapper picks domains for URL generation.
type DomainMapper interface {
	// MapDomain selects the domain to build a URL under.
	MapDomain(candidates []DomainAndURI, current *url.URL, culture, defaultCulture string) (DomainAndURI, bool)
	// MapDomains returns the domains a node has alternate URLs under.
	MapDomains(candidates []DomainAndURI, current *url.URL, excludeCurrent bool, culture, defaultCulture string) []DomainAndURI
}

// SiteDomainMapper is the default [DomainMapper].
//
// MapDomain with a culture only considers domains of that culture,
// preferring the one serving the current request, then sort order; it
// fails when no domain has the culture. Without a culture it prefers the
// current domain, then the default culture's domain, then the first one.
//
// MapDomains keeps the candidates of culture (all when culture is empty)
// and, with excludeCurrent, drops the domain serving the current request.
type SiteDomainMapper struct{}

// MapDomain implements [DomainMapper].
func (SiteDomainMapper) MapDomain(candidates []DomainAndURI, current *url.URL, culture, defaultCulture string) (DomainAndURI, bool) {
	if len(candidates) == 0 {
		return DomainAndURI{}, false
	}
	pool := candidates
	if culture != "" {
		pool = filterCulture(candidates, culture)
		if len(pool) == 0 {
			return DomainAndURI{}, false
		}
	}
	if d, ok := MatchCurrent(pool, current); ok {
		return d, true
	}
	if culture == "" && defaultCulture != "" {
		if i := slices.IndexFunc(pool, func(d DomainAndURI) bool {
			return content.SameCulture(d.Domain.Culture, defaultCulture)
		}); i >= 0 {
			return pool[i], true
		}
	}

	return pool[0], true
}

// MapDomains implements [DomainMapper].
func (SiteDomainMapper) MapDomains(candidates []DomainAndURI, current *url.URL, excludeCurrent bool, culture, _ string) []DomainAndURI {
	pool := candidates
	if culture != "" {
		pool = filterCulture(candidates, culture)
	}
	if !excludeCurrent {
		return slices.Clone(pool)
	}
	cur, ok := MatchCurrent(pool, current)
	if !ok {
		return slices.Clone(pool)
	}

	return slices.DeleteFunc(slices.Clone(pool), func(d DomainAndURI) bool {
		return d.Domain.ID == cur.Domain.ID
	})
}

// MatchCurrent returns the candidate serving current: same authority and the
// longest base path that prefixes current's path.
func MatchCurrent(candidates []DomainAndURI, current *url.URL) (DomainAndURI, bool) {
	if current == nil || current.Host == "" {
		return DomainAndURI{}, false
	}
	host := routecache.NormalizeHost(current.Host)
	path := "/" + routecache.NormalizePath(current.Path)

	var (
		best    DomainAndURI
		bestLen = -1
	)
	for _, d := range candidates {
		if routecache.NormalizeHost(d.URI.Host) != host {
			continue
		}
		base := "/" + routecache.NormalizePath(d.URI.Path)
		if !hasPathPrefix(path, base) {
			continue
		}
		if len(base) > bestLen {
			best, bestLen = d, len(base)
		}
	}

	return best, bestLen >= 0
}

func hasPathPrefix(path, base string) bool {
	if base == "/" {
		return true
	}

	return path == base || strings.HasPrefix(path, base+"/")
}

func filterCulture(candidates []DomainAndURI, culture string) []DomainAndURI {
	var out []DomainAndURI
	for _, d := range candidates {
		if content.SameCulture(d.Domain.Culture, culture) {
			out = append(out, d)
		}
	}

	return out
}
