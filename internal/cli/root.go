package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/predictctl/internal/app"
	"github.com/vietddude/predictctl/internal/core/config"
	"github.com/vietddude/predictctl/internal/prediction"
	"github.com/vietddude/stylelog"
)

var (
	cfgPath string
	isDebug bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "predictctl",
	Short: "Prediction service client",
	Long: `predictctl submits text to the prediction service, follows the result
until it is ready and manages the account balance.`,
	SilenceUsage:     true,
	PersistentPreRun: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "predictctl.yaml", "config file (default is predictctl.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func setup(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	var err error
	cfg, err = config.LoadOrDefault(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// newApp builds the application or exits.
func newApp() *app.App {
	a, err := app.New(cfg, os.Stdout, app.WithVerbose(isDebug))
	if err != nil {
		slog.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}
	return a
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// closeApp releases the app within a bounded time.
func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}
}

// exitOnError prints err with its follow-up and exits.
func exitOnError(a *app.App, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("Interrupted")
		closeApp(a)
		os.Exit(130)
	}
	a.Renderer().Error(err)
	closeApp(a)
	os.Exit(1)
}

// exitOnOutcome exits non-zero when polling did not end in a result.
func exitOnOutcome(a *app.App, out *prediction.Outcome) {
	if out == nil || out.Kind == prediction.TerminalCompleted {
		return
	}
	closeApp(a)
	os.Exit(1)
}
