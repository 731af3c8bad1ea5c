package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/geo"
	"github.com/sells-group/geothermal-cli/internal/pipeline"
	"github.com/sells-group/geothermal-cli/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score measurements, select top sites and write the outputs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyRunFlags(cmd, cfg)

		var st store.Store
		noStore, _ := cmd.Flags().GetBool("no-store")
		if !noStore {
			var err error
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close() //nolint:errcheck
			}
		}

		res, err := pipeline.New(cfg, newLoader(), st).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Summary)
		}
		formatRunResult(os.Stdout, res)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.String("measurements", "", "heat-flow measurement table (.xlsx/.csv, path or URL)")
	f.String("boundaries", "", "plate boundary table (.csv/.shp, path or URL)")
	f.String("output-dir", "", "directory for the output files")
	f.Int("max-sites", 0, "maximum number of top sites")
	f.Float64("min-separation-km", 0, "minimum great-circle distance between top sites")
	f.Bool("no-store", false, "do not record the run in run history")
	f.Bool("json", false, "print the run summary as JSON")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("measurements") {
		c.Input.Measurements.Path, _ = f.GetString("measurements")
	}
	if f.Changed("boundaries") {
		c.Input.Boundaries.Path, _ = f.GetString("boundaries")
	}
	if f.Changed("output-dir") {
		c.Output.Dir, _ = f.GetString("output-dir")
	}
	if f.Changed("max-sites") {
		c.Sites.MaxSites, _ = f.GetInt("max-sites")
	}
	if f.Changed("min-separation-km") {
		c.Sites.MinSeparationKM, _ = f.GetFloat64("min-separation-km")
	}
}

// formatRunResult writes a human-readable run summary and site table to out.
func formatRunResult(out io.Writer, res *pipeline.Result) {
	s := res.Summary
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	}
	_, _ = fmt.Fprintf(w, "Rows read:\t%d\n", s.RowsRead)
	_, _ = fmt.Fprintf(w, "Measurements:\t%d\n", s.Measurements)
	for _, reason := range dropReasons(s.Dropped) {
		_, _ = fmt.Fprintf(w, "  dropped %s:\t%d\n", reason, s.Dropped[reason])
	}
	_, _ = fmt.Fprintf(w, "Boundary points:\t%d (%d plates)\n", s.BoundaryPoints, s.Plates)
	_, _ = fmt.Fprintf(w, "Heat flow cap:\t%.1f mW/m²\n", s.HeatFlowCap)
	_, _ = fmt.Fprintf(w, "Score min/mean/max:\t%.4f / %.4f / %.4f\n", s.Stats.Min, s.Stats.Mean, s.Stats.Max)
	_, _ = fmt.Fprintf(w, "Sites selected:\t%d\n", s.SitesSelected)
	for _, band := range geo.Bands() {
		if n := res.Bands[band]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", band, n)
		}
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%.2fs\n", s.DurationSeconds)
	_ = w.Flush()

	if len(res.Sites) > 0 {
		_, _ = fmt.Fprintln(out)
		formatSites(out, res.Sites)
	}
	if len(s.Outputs) > 0 {
		_, _ = fmt.Fprintln(out)
		for _, p := range s.Outputs {
			_, _ = fmt.Fprintf(out, "wrote %s\n", p)
		}
	}
}
