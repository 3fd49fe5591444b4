package cli

import (
	"github.com/spf13/cobra"
)

var resumePending bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your predictions, newest first",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&resumePending, "resume", false, "poll pending predictions until they finish")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	exitOnError(a, a.History(ctx, resumePending))
	closeApp(a)
}
