package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var noWait bool

var predictCmd = &cobra.Command{
	Use:   "predict [text...]",
	Short: "Submit text for prediction and wait for the result",
	Long: `Submit text for prediction. Without arguments the text is read from
standard input. By default the command polls until the result is ready.`,
	Run: runPredict,
}

func init() {
	predictCmd.Flags().BoolVar(&noWait, "no-wait", false, "print the prediction id and return without polling")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("Failed to read input", "error", err)
			os.Exit(1)
		}
		text = string(data)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	out, err := a.Predict(ctx, text, !noWait)
	exitOnError(a, err)
	exitOnOutcome(a, out)
	closeApp(a)
}
