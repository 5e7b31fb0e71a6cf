package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ning0612/sftpsweep/internal/config"
	"github.com/Ning0612/sftpsweep/internal/logger"
	"github.com/Ning0612/sftpsweep/internal/service"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile  string
	logLevel    string
	logFormat   string
	logFile     string
	failOnError bool
}

// errRunFailures marks a run that completed with per-entry failures
var errRunFailures = errors.New("run completed with failures")

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "sftpsweep <profile>",
		Short: "Archive and purge aged files on an SFTP server",
		Long: `sftpsweep moves files older than a profile's move threshold from the
parent folder into the archive folder, mirroring the folder layout, and
deletes archived files older than the delete threshold.

Top-level files of the parent folder are archived on every run; files in
subfolders only once they reach the move threshold. A file is removed from
its source only after the archive copy was written.

Failures are logged and the process exits 0 unless --fail-on-error is set.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runOnce(cmd, opts, args[0])
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file path (default: search ./, ./configs, user config dir)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override console log format (text, json, pretty)")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "exit 1 when a run fails or has failed entries")

	cmd.AddCommand(newDaemonCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// execute runs the command tree and maps the outcome to an exit code.
// Errors are always reported on stderr; the code is 1 only with
// --fail-on-error.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, "Error:", err)
	failOnError, _ := cmd.PersistentFlags().GetBool("fail-on-error")
	if failOnError {
		return 1
	}
	return 0
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(opts *globalOptions) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.logLevel != "" {
		if _, ok := logger.ParseLevel(opts.logLevel); !ok {
			return nil, nil, fmt.Errorf("unknown log level %q", opts.logLevel)
		}
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		if _, ok := logger.ParseFormat(opts.logFormat); !ok {
			return nil, nil, fmt.Errorf("unknown log format %q", opts.logFormat)
		}
		cfg.Log.Format = opts.logFormat
	}
	logCfg := cfg.LoggerConfig()
	if opts.logFile != "" {
		logCfg.File = logger.DefaultFileConfig(config.ExpandPath(opts.logFile))
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// runOnce performs a single run of one profile
func runOnce(cmd *cobra.Command, opts *globalOptions, profile string) error {
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}
	defer log.Shutdown()

	svc, err := service.NewMaintenanceService(cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		return err
	}
	defer svc.Close()

	report, err := svc.RunProfile(cmd.Context(), profile)
	if err != nil {
		return err
	}

	if n := report.Failures(); n > 0 {
		return fmt.Errorf("%w: %d entries failed, see log", errRunFailures, n)
	}
	return nil
}
