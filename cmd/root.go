package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geothermal",
	Short: "Geothermal site scoring pipeline",
	Long:  "Scores global heat-flow measurements by heat flow and plate-boundary proximity, selects a separated shortlist of top sites and writes map-ready JSON.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
