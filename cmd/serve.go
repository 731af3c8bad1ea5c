package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/monitoring"
	"github.com/sells-group/geothermal-cli/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and output files over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetInt("port")
		cfg.Server.Port = resolvePort(port, cfg.Server.Port)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck

			checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		} else {
			zap.L().Warn("run history disabled, /api/runs will return 503")
		}

		srv := server.New(server.Options{Store: st, Output: cfg.Output, Server: cfg.Server})
		return server.Start(ctx, srv.Handler(), cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers an explicit flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return cfgPort
}
