package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Karekin/influxdb/internal/app"
	"github.com/Karekin/influxdb/internal/config"
)

type rootOptions struct {
	configFile string
	dataDir    string
	logLevel   string
	logFormat  string

	app *app.App
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "querier",
		Short: "Build queryable chunks from catalog parquet files",
		Long: `querier maps parquet file records from the catalog onto catalog chunks.

Each chunk is addressed as Chunk('namespace':'table':'sequencer-partition':uuid)
and ordered by the smallest sequence number persisted in the file.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opts.app, err = app.New(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to configuration file (YAML or JSON)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "base directory for the catalog and local objects")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: json or console")

	cmd.AddCommand(
		newIngestCommand(opts),
		newChunksCommand(opts),
		newAddrCommand(opts),
		newFetchCommand(opts),
	)
	return cmd
}

// loadConfig layers the config file, environment and flags, in that order.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(o.configFile)
		if err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}
