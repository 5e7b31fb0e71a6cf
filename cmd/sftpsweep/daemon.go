package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/sftpsweep/internal/config"
	"github.com/Ning0612/sftpsweep/internal/daemon"
	"github.com/Ning0612/sftpsweep/internal/logger"
	"github.com/Ning0612/sftpsweep/internal/service"
)

// stopTimeout bounds how long "daemon stop" waits for in-flight runs
const stopTimeout = 2 * time.Minute

func newDaemonCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run profiles on their cron schedules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <profile>...",
		Short: "Schedule the given profiles and run until interrupted",
		Long: `Schedule each profile on the cron spec in its "schedule" key and run in
the foreground until SIGINT or SIGTERM. A tick is skipped while the
previous run of the same profile is still going.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidFile, err := pidFileFor(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), stopTimeout)
			defer cancel()
			if err := pidFile.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showDaemonStatus(cmd, opts)
		},
	})

	return cmd
}

func runDaemon(ctx context.Context, opts *globalOptions, profiles []string) error {
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}
	defer log.Shutdown()

	d, err := service.NewDaemonService(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(ctx, profiles); err != nil {
		log.Error("failed to start daemon", "error", err)
		return err
	}

	<-ctx.Done()
	log.Info("shutdown signal received, waiting for running jobs")
	return nil
}

func pidFileFor(opts *globalOptions) (*daemon.PIDFile, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	path, err := daemon.PathIn(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	return daemon.NewPIDFile(path), nil
}

func showDaemonStatus(cmd *cobra.Command, opts *globalOptions) error {
	pidFile, err := pidFileFor(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	info, err := pidFile.Status()
	switch {
	case errors.Is(err, daemon.ErrNotRunning):
		fmt.Fprintln(out, "daemon: not running")
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "daemon: running (PID %d)\n", info.PID)
		fmt.Fprintf(out, "profiles: %v\n", info.Profiles)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	svc, err := service.NewMaintenanceService(cfg, logger.Nop())
	if err != nil {
		return err
	}
	defer svc.Close()

	history, err := svc.History(cmd.Context(), "", 1)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		last := history[0]
		fmt.Fprintf(out, "last run: %s %s at %s (%s)\n",
			last.Profile, last.Status, last.StartTime.Local().Format(time.RFC3339), last.Duration().Round(time.Millisecond))
	}
	return nil
}
