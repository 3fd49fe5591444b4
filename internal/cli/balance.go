package cli

import (
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your credit balance",
	Run:   runBalance,
}

var topupCmd = &cobra.Command{
	Use:   "topup <amount>",
	Short: "Add credits to your balance",
	Args:  cobra.ExactArgs(1),
	Run:   runTopUp,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(topupCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	exitOnError(a, a.Balance(ctx))
	closeApp(a)
}

func runTopUp(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	exitOnError(a, a.TopUp(ctx, args[0]))
	closeApp(a)
}
