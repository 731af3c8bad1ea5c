package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/sells-group/geothermal-cli/internal/model"
)

// formatSites writes a ranked site table to out.
func formatSites(out io.Writer, sites []model.SiteCandidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tLAT\tLON\tSCORE\tHEAT_FLOW\tBOUNDARY_KM")
	_, _ = fmt.Fprintln(w, "----\t---\t---\t-----\t---------\t-----------")
	for _, s := range sites {
		_, _ = fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.1f\t%.1f\n",
			s.Rank, s.Lat, s.Lon, s.Score, s.HeatFlow, s.DistanceKM)
	}
	_ = w.Flush()
}

// dropReasons returns the keys of dropped in sorted order.
func dropReasons(dropped map[string]int) []string {
	reasons := make([]string, 0, len(dropped))
	for r := range dropped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
