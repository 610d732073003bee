// Package cli implements the badbar command line.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/badbar/internal/config"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// RootOptions holds global flags and the state every command shares once
// flags are parsed.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool

	v        *viper.Viper
	cfg      config.Config
	log      *logger.Logger
	closeLog func() error
}

// flagKeys maps flags onto config keys. Flags a command lacks are skipped.
var flagKeys = map[string]string{
	"backend":          config.KeyBackend,
	"server-url":       config.KeyServerURL,
	"db":               config.KeyDBPath,
	"in-memory":        config.KeyDBInMemory,
	"log-level":        config.KeyLogLevel,
	"log-file":         config.KeyLogFile,
	"addr":             config.KeyServerAddr,
	"shutdown-timeout": config.KeyShutdown,
	"timeout":          config.KeyServerTimeout,
}

// NewRootCommand creates the badbar command tree. Without a subcommand it
// starts the interactive UI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "badbar",
		Short: "badbar - a tiny cocktail recipe book",
		Long: `badbar keeps your cocktail recipes.

Run it without arguments for the interactive UI: the "Add recipe" tab builds
a recipe, the "Recipes" tab lists yours (ctrl+t switches tabs). Each run
signs in anonymously, so recipes are scoped to that run's principal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigFile, "config", "", "config file (default ./badbar.yaml)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "disable all logging")
	f.String("backend", "", "storage backend (memory|badger|remote)")
	f.String("server-url", "", "server URL for the remote backend")
	f.Duration("timeout", 0, "request timeout for the remote backend")
	f.String("db", "", "database directory for the badger backend")
	f.Bool("in-memory", false, "keep the badger database in memory")
	f.String("log-level", "", "log level (off|normal|verbose)")
	f.String("log-file", "", `file to write logs to ("stderr" for the console)`)

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// setup loads .env and the config, then opens the log.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	o.v = config.New()
	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil {
			if err := o.v.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	if o.Verbose {
		o.v.Set(config.KeyLogLevel, logger.LevelVerbose.String())
	}
	if o.Quiet {
		o.v.Set(config.KeyLogLevel, logger.LevelOff.String())
	}

	cfg, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	log, closeLog, err := openLog(cfg.Log.File, cfg.LogLevel(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.log, o.closeLog = log, closeLog
	log.Debug("config loaded (backend=%s, file=%q)", cfg.Backend, o.v.ConfigFileUsed())
	return nil
}

func (o *RootOptions) teardown() error {
	if o.closeLog == nil {
		return nil
	}
	err := o.closeLog()
	o.closeLog = nil
	return err
}
