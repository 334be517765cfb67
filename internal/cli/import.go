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

	"github.com/spf13/cobra"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/content/sqlitestore"
)

func importCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "import",
		Short:   "Copy a content tree file into a sqlite database",
		Example: `  invisiblenodes import --tree site.yaml --db site.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.treePath == "" || o.dbPath == "" {
				return errors.New("import needs both --tree and --db")
			}
			logger, err := o.logger(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			f, err := content.ReadFile(ctx, o.treePath)
			if err != nil {
				return err
			}
			db, err := sqlitestore.Open(ctx, o.dbPath, sqlitestore.WithLogger(logger.Logger()))
			if err != nil {
				return err
			}
			defer db.Close()

			if err = db.Import(ctx, f); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes and %d domains into %s\n",
				countNodes(f.Nodes), len(f.Domains), db.Path())

			return err
		},
	}
}

func countNodes(specs []content.NodeSpec) int {
	n := len(specs)
	for _, s := range specs {
		n += countNodes(s.Children)
	}

	return n
}
