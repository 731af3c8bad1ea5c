package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geothermal-cli/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize recent run health and evaluate alert thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback")
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Snapshot *monitoring.Snapshot `json:"snapshot"`
				Alerts   []monitoring.Alert   `json:"alerts"`
			}{snap, alerts})
		}
		formatStatus(os.Stdout, snap, alerts)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("lookback", 0, "lookback window in hours (default from config)")
	statusCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

// formatStatus writes a snapshot and any triggered alerts to out.
func formatStatus(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Runs:\t%d (complete %d, failed %d, running %d)\n",
		snap.RunsTotal, snap.RunsComplete, snap.RunsFailed, snap.RunsRunning)
	_, _ = fmt.Fprintf(w, "Fail rate:\t%.1f%%\n", snap.FailRate*100)
	if snap.RunsComplete > 0 {
		_, _ = fmt.Fprintf(w, "Avg max score:\t%.4f\n", snap.AvgMaxScore)
		_, _ = fmt.Fprintf(w, "Avg sites:\t%.1f\n", snap.AvgSitesSelected)
	}
	if snap.LastCompleteAt != nil {
		_, _ = fmt.Fprintf(w, "Last complete:\t%s (%s ago)\n",
			truncateID(snap.LastCompleteID),
			snap.CollectedAt.Sub(*snap.LastCompleteAt).Round(time.Minute))
	} else {
		_, _ = fmt.Fprintf(w, "Last complete:\tnever\n")
	}
	if snap.OldestRunningSince != nil {
		_, _ = fmt.Fprintf(w, "Oldest running:\t%s (started %s ago)\n",
			truncateID(snap.OldestRunningID),
			snap.CollectedAt.Sub(*snap.OldestRunningSince).Round(time.Minute))
	}
	_ = w.Flush()

	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo alerts.")
		return
	}
	_, _ = fmt.Fprintln(out)
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}
