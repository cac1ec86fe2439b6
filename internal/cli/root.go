// Package cli implements the marketctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/config"
	"github.com/bitfsorg/libmarket-go/logging"
)

// RootOptions holds global flags and the state resolved from them before a
// subcommand runs.
type RootOptions struct {
	DataDir  string
	Format   string // "json" | "text"
	Verbose  bool
	Decimals int32

	cfg      config.Config
	logger   *zap.Logger
	closeLog func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the marketctl command tree and releases the log sinks when
// the command returns, whether or not it failed.
func Execute(ctx context.Context) error {
	cmd, opts := newRootCommand()
	defer opts.Close()
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand creates the root command for marketctl.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "marketctl",
		Short: "Operate a facet-routed marketplace",
		Long: `marketctl manages a marketplace diamond persisted in a local data
directory: install the marketplace facets, inspect routing through the loupe,
read listings, requests, offers and fee configuration, administer collections
and serve metrics and a read-only HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Decimals < 0 || opts.Decimals > 36 {
				return fmt.Errorf("invalid decimals %d", opts.Decimals)
			}
			return opts.resolve()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.DataDir, "datadir", "d", "", "data directory (default ~/.market)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().Int32Var(&opts.Decimals, "decimals", 18, "decimals used to display and parse amounts")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLoupeCommand(opts))
	cmd.AddCommand(NewListingCommand(opts))
	cmd.AddCommand(NewRequestCommand(opts))
	cmd.AddCommand(NewOfferCommand(opts))
	cmd.AddCommand(NewFeesCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd, opts
}

// resolve loads the configuration from the data directory, falling back to
// defaults and the environment when no file exists, and installs the logger.
func (o *RootOptions) resolve() error {
	dir := o.DataDir
	if dir == "" {
		dir = config.DefaultDataDir()
	}

	cfg, err := config.LoadConfig(config.ConfigPath(dir))
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}
	cfg.DataDir = dir
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	o.cfg = cfg

	logger, closeLog, err := logging.Install(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: o.Verbose,
		Fields:  []zap.Field{zap.String("network", cfg.Network)},
	})
	if err != nil {
		return err
	}
	o.logger, o.closeLog = logger, closeLog
	return nil
}

// Close flushes the logger and closes the log file, if one was opened.
func (o *RootOptions) Close() error {
	if o.closeLog == nil {
		return nil
	}
	return o.closeLog()
}

// Config returns the resolved configuration.
func (o *RootOptions) Config() config.Config { return o.cfg }

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
