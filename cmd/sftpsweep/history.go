package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/sftpsweep/internal/config"
	"github.com/Ning0612/sftpsweep/internal/logger"
	"github.com/Ning0612/sftpsweep/internal/service"
	"github.com/Ning0612/sftpsweep/internal/state"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [profile]",
		Short: "Show recent runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			svc, err := service.NewMaintenanceService(cfg, logger.Nop())
			if err != nil {
				return err
			}
			defer svc.Close()

			var profile string
			if len(args) == 1 {
				profile = args[0]
			}
			records, err := svc.History(cmd.Context(), profile, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of runs to show")
	return cmd
}

func printHistory(w io.Writer, records []state.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPROFILE\tSTATUS\tMOVED\tDELETED\tFAILED\tDURATION\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.StartTime.Local().Format("2006-01-02 15:04:05"),
			r.Profile,
			r.Status,
			r.Moved,
			r.Deleted,
			r.Failed,
			r.Duration().Round(time.Millisecond),
			r.Error,
		)
	}
	tw.Flush()
}
