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
	"fmt"

	"github.com/spf13/cobra"

	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/config/codec"
	"rivaas.dev/invisiblenodes/config/dumper"
)

func configCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings",
	}
	cmd.AddCommand(configShowCmd(o), configValidateCmd(o), configSchemaCmd())

	return cmd
}

func configShowCmd(o *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings, defaults included",
		Example: `  invisiblenodes config show -c invisiblenodes.yaml
  INVISIBLENODES_CACHE__STRATEGY=lru invisiblenodes config show --format json
  invisiblenodes config show -c invisiblenodes.yaml --output effective.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.loadSettings(cmd)
			if err != nil {
				return err
			}

			var d config.Dumper
			if output != "" {
				typ, err := codec.TypeFromPath(output)
				if err != nil {
					return err
				}
				enc, err := codec.GetEncoder(typ)
				if err != nil {
					return err
				}
				d = dumper.NewFile(output, enc)
			} else {
				enc, err := codec.GetEncoder(codec.Type(format))
				if err != nil {
					return err
				}
				d = dumper.NewWriter(cmd.OutOrStdout(), enc)
			}

			return d.Dump(cmd.Context(), s.Values())
		},
	}

	cmd.Flags().StringVar(&format, "format", string(codec.TypeYAML), "output format: yaml, json or toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead, format from its extension")

	return cmd
}

func configValidateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the settings load and validate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := o.loadSettings(cmd); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "settings are valid")

			return err
		},
	}
}

func configSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.SettingsSchema())
			return err
		},
	}
}

func (o *rootOptions) loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	logger, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}

	return config.LoadSettings(cmd.Context(), o.configOptions(logger.Logger())...)
}
