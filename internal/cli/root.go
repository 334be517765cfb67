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

// Package cli implements the invisiblenodes command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rivaas.dev/invisiblenodes"
	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/content/sqlitestore"
	"rivaas.dev/invisiblenodes/logging"
	"rivaas.dev/invisiblenodes/notify"
)

// Version is reported in logs and metrics. Release builds set it with
// -ldflags "-X rivaas.dev/invisiblenodes/internal/cli.Version=...".
var Version = "dev"

const serviceName = "invisiblenodes"

var (
	errNoContent  = errors.New("no content source: set --tree or --db")
	errTwoSources = errors.New("--tree and --db are mutually exclusive")
)

// Execute runs the command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	treePath   string
	dbPath     string
	configPath string
	consulKey  string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "invisiblenodes",
		Short:         "Resolve and generate content URLs that skip invisible nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.treePath, "tree", "", "content tree file (yaml, json or toml)")
	f.StringVar(&o.dbPath, "db", "", "content tree sqlite database")
	f.StringVarP(&o.configPath, "config", "c", "", "settings file; INVISIBLENODES_* variables override it")
	f.StringVar(&o.consulKey, "consul-key", "", "consul key holding settings (needs CONSUL_HTTP_ADDR)")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.StringVar(&o.logFormat, "log-format", "console", "log format: console, text or json")

	cmd.AddCommand(
		resolveCmd(o),
		urlCmd(o),
		otherURLsCmd(o),
		serveCmd(o),
		configCmd(o),
		importCmd(o),
	)

	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) (*logging.Logger, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	handler, err := logging.ParseHandlerType(o.logFormat)
	if err != nil {
		return nil, err
	}

	return logging.New(
		logging.WithHandlerType(handler),
		logging.WithLevel(level),
		logging.WithOutput(cmd.ErrOrStderr()),
		logging.WithServiceName(serviceName),
		logging.WithServiceVersion(Version),
		logging.WithTraceCorrelation(),
	)
}

func (o *rootOptions) configOptions(logger *slog.Logger) []config.Option {
	opts := []config.Option{config.WithLogger(logger)}
	if o.configPath != "" {
		opts = append(opts, config.WithFile(o.configPath))
	}
	if o.consulKey != "" {
		opts = append(opts, config.WithConsul(o.consulKey))
	}

	return append(opts, config.WithEnv(config.EnvPrefix))
}

func (o *rootOptions) watchable() bool {
	return o.configPath != "" || o.consulKey != ""
}

func (o *rootOptions) openStore(ctx context.Context, logger *slog.Logger, opts ...content.StoreOption) (*content.Store, error) {
	opts = append([]content.StoreOption{content.WithLogger(logger)}, opts...)
	switch {
	case o.treePath != "" && o.dbPath != "":
		return nil, errTwoSources
	case o.dbPath != "":
		db, err := sqlitestore.Open(ctx, o.dbPath, sqlitestore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		defer db.Close()

		return db.Load(ctx, opts...)
	case o.treePath != "":
		return content.LoadFile(ctx, o.treePath, opts...)
	default:
		return nil, errNoContent
	}
}

// runtime is what the content commands work on.
type runtime struct {
	logger *logging.Logger
	cfg    *config.Config
	store  *content.Store
	engine *invisiblenodes.Engine
}

func (rt *runtime) Close() error {
	return rt.engine.Close()
}

func (o *rootOptions) setup(cmd *cobra.Command, opts ...invisiblenodes.Option) (*runtime, error) {
	ctx := cmd.Context()
	logger, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewSettingsConfig(o.configOptions(logger.Logger())...)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings(ctx)
	if err != nil {
		return nil, err
	}

	bus := notify.NewBus()
	store, err := o.openStore(ctx, logger.Logger(), content.WithPublisher(bus))
	if err != nil {
		return nil, err
	}
	engine, err := invisiblenodes.New(store, store, append([]invisiblenodes.Option{
		invisiblenodes.WithSettings(settings),
		invisiblenodes.WithBus(bus),
		invisiblenodes.WithLogger(logger.Logger()),
	}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &runtime{logger: logger, cfg: cfg, store: store, engine: engine}, nil
}
