// Package cmd provides the CLI commands for cmsindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/logging"
	"github.com/Aman-CERP/cmsindex/internal/profiling"
	"github.com/Aman-CERP/cmsindex/pkg/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	noColor    bool
	profile    profiling.Options

	profiler       *profiling.Profiler
	loggingCleanup func()
}

// NewRootCmd creates the root command for the cmsindex CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cmsindex",
		Short: "Synchronize CMS content, media and members into a search index",
		Long: `cmsindex turns CMS content, media and member nodes into search documents
and keeps a search index in step with them.

A full reindex runs in pages of a fixed size inside a session, so it can be
driven one page per call and resumed after interruption:

  cmsindex index create
  cmsindex reindex all`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("cmsindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: .cmsindex.yaml in the working directory)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.cmsindex/logs/")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return opts.start()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return opts.stop()
	}

	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newSessionsCmd(opts))
	cmd.AddCommand(newCMSCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start enables debug logging and profiling when requested.
func (o *rootOptions) start() error {
	if o.debug {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		o.loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if o.profile.Enabled() {
		p, err := profiling.Start(o.profile)
		if err != nil {
			return err
		}
		o.profiler = p
	}
	return nil
}

func (o *rootOptions) stop() error {
	var err error
	if o.profiler != nil {
		err = o.profiler.Stop()
		o.profiler = nil
	}
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
	return err
}

// Execute runs the root command and prints failures in CLI form.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, cmserrors.FormatForCLI(err))
	}
	return err
}
