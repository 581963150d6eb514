package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/runcost/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides RUNCOST_DB
	Timezone string // overrides RUNCOST_TIMEZONE

	// Populated by the root command before any subcommand runs.
	Config   config.Config
	Logger   *slog.Logger
	Location *time.Location
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the runcost CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "runcost",
		Short: "runcost - series projections with running cost",
		Long: `Compute time series from declarative definitions.

A series starts at a value and is changed over a time window by components
such as compound interest, payments and deposits. Money leaving the series
can be tracked as a running cost plotted alongside or instead of it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.prepare(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite library (default $RUNCOST_DB)")
	cmd.PersistentFlags().StringVar(&opts.Timezone, "tz", "", "IANA time zone for calendar arithmetic (default $RUNCOST_TIMEZONE)")

	// Add subcommands
	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLibraryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// prepare loads environment configuration, applies flag overrides and
// builds the logger and time zone.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Database != "" {
		cfg.DB = o.Database
	}
	if o.Timezone != "" {
		cfg.Timezone = o.Timezone
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr(), o.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Location = loc
	o.Logger = logger
	return nil
}

// logger returns the configured logger, or a discarding one when the
// command runs without the root command (tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// location returns the configured time zone, UTC by default.
func (o *RootOptions) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.UTC
}

// database returns the library path from the flag or configuration.
func (o *RootOptions) database() string {
	if o.Database != "" {
		return o.Database
	}
	return o.Config.DB
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
