package cli

import (
	"github.com/spf13/cobra"
)

var watchStatus bool

var statusCmd = &cobra.Command{
	Use:   "status <prediction-id>",
	Short: "Show the status of a prediction",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "keep polling until the prediction finishes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	out, err := a.Status(ctx, args[0], watchStatus)
	exitOnError(a, err)
	exitOnOutcome(a, out)
	closeApp(a)
}
