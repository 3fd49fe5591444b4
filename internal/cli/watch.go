package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var metricsPort int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow all pending predictions and serve metrics",
	Long: `Reload the history periodically and poll every pending prediction until
it finishes. When a metrics port is set, /health and /metrics are served.`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&metricsPort, "port", 0, "metrics port (overrides metrics.port)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	if metricsPort > 0 {
		cfg.Metrics.Port = metricsPort
	}

	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	slog.Info("Watching predictions", "config", cfgPath, "refresh", cfg.History.RefreshInterval)

	if err := a.Watch(ctx); err != nil {
		exitOnError(a, err)
	}
	slog.Info("Shutting down...")
	closeApp(a)
}
