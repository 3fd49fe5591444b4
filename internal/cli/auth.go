package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/predictctl/internal/core/domain"
)

var (
	username string
	password string
	email    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save the session",
	Run:   runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Run:   runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Run:   runWhoAmI,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Run:   runLogout,
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, registerCmd} {
		cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
		cmd.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $PREDICT_PASSWORD)")
	}
	registerCmd.Flags().StringVar(&email, "email", "", "contact email")

	rootCmd.AddCommand(loginCmd, registerCmd, whoamiCmd, logoutCmd)
}

func credentials() (string, string) {
	pw := password
	if pw == "" {
		pw = os.Getenv("PREDICT_PASSWORD")
	}
	return username, pw
}

func runLogin(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	user, pw := credentials()
	if user == "" || pw == "" {
		exitOnError(a, domain.NewValidationError("username and password are required"))
	}
	exitOnError(a, a.Login(ctx, user, pw))
	fmt.Printf("Logged in as %s\n", user)
	closeApp(a)
}

func runRegister(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	user, pw := credentials()
	exitOnError(a, a.Register(ctx, domain.Registration{Username: user, Password: pw, Email: email}))
	closeApp(a)
}

func runWhoAmI(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	exitOnError(a, a.WhoAmI(ctx))
	closeApp(a)
}

func runLogout(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	a := newApp()
	exitOnError(a, a.Logout(ctx))
	fmt.Println("Logged out")
	closeApp(a)
}
