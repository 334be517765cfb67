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

package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rivaas.dev/invisiblenodes/urlprovider"
)

var errUnresolved = errors.New("unresolved urls")

func resolveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL...",
		Short: "Resolve request URLs to content nodes",
		Example: `  invisiblenodes resolve --tree site.yaml https://en.example.org/content/hidden/
  invisiblenodes resolve --db site.db da.example.org/om/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			missing := 0
			for _, raw := range args {
				u, err := parseRequestURL(raw)
				if err != nil {
					return err
				}
				req, ok := rt.engine.Site().ResolveURL(cmd.Context(), u)
				if !ok {
					missing++
					fmt.Fprintf(w, "%s\t-\tnot found\t%s\n", raw, req.Culture)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", raw, req.Content.ID, req.Content.Name, req.Culture)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if missing > 0 {
				return fmt.Errorf("%w: %d of %d", errUnresolved, missing, len(args))
			}

			return nil
		},
	}
}

func urlCmd(o *rootOptions) *cobra.Command {
	var culture, mode, current string

	cmd := &cobra.Command{
		Use:   "url ID",
		Short: "Print the URL of a content node",
		Example: `  invisiblenodes url --tree site.yaml 5
  invisiblenodes url --tree site.yaml 2 --culture da-DK --current https://en.example.org/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := urlprovider.ParseMode(mode)
			if err != nil {
				return err
			}
			cur, err := parseCurrent(current)
			if err != nil {
				return err
			}
			rt, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			info, ok := rt.engine.URLs().GetURLByID(cmd.Context(), id, m, culture, cur)
			if !ok {
				return fmt.Errorf("node %d has no url", id)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.Text)

			return err
		},
	}

	cmd.Flags().StringVar(&culture, "culture", "", "culture of the url (default culture when empty)")
	cmd.Flags().StringVar(&mode, "mode", "default", "url mode: default, relative, absolute or auto")
	cmd.Flags().StringVar(&current, "current", "", "url of the current request")

	return cmd
}

func otherURLsCmd(o *rootOptions) *cobra.Command {
	var current string

	cmd := &cobra.Command{
		Use:   "other-urls ID",
		Short: "Print the alternate URLs of a content node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cur, err := parseCurrent(current)
			if err != nil {
				return err
			}
			rt, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, info := range rt.engine.URLs().GetOtherURLs(cmd.Context(), id, cur) {
				fmt.Fprintf(w, "%s\t%s\n", info.Culture, info.Text)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "url of the current request; its domain is left out")

	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid node id %q", s)
	}

	return id, nil
}

// parseRequestURL accepts absolute URLs and host/path shorthands.
func parseRequestURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", raw)
	}

	return u, nil
}

func parseCurrent(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}

	return parseRequestURL(raw)
}
