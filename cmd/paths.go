package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geothermal-cli/internal/pipeline"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Group plate boundary points into drawable paths",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyRunFlags(cmd, cfg)

		paths, written, err := pipeline.New(cfg, newLoader(), nil).Paths(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "paths")
		}

		points := 0
		for _, p := range paths {
			points += len(p.Points)
		}
		fmt.Fprintf(os.Stdout, "%d plates, %d points\n", len(paths), points)
		for _, p := range written {
			fmt.Fprintf(os.Stdout, "wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	pathsCmd.Flags().String("boundaries", "", "plate boundary table (.csv/.shp, path or URL)")
	pathsCmd.Flags().String("output-dir", "", "directory for the output files")
	rootCmd.AddCommand(pathsCmd)
}
