package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/habedi/waconsole/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a password from the terminal without echoing it.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// loginCmd creates a new cobra.Command for signing in to the console.
func loginCmd(cfg *config.Config) *cobra.Command {
	var email string
	var remember, watch bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the console",
		Long:  "Sign in to the console with your email and password and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				input, err := promptForInput(cmd, "Email: ")
				if err != nil {
					return clierr.New(clierr.Internal, "Failed to read email.", err)
				}
				email = input
			}
			if err := validation.ValidateEmail(email); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			password, err := promptForPassword(cmd, "Password: ")
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to read password.", err)
			}
			if err := validation.ValidateNonEmptyString("password", password); err != nil {
				return clierr.New(clierr.Validation, "Password cannot be empty.", err)
			}

			m, nav, err := newSession(cfg, sessionOptions{path: loginRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer m.Stop()

			if _, err := m.Login(cmd.Context(), email, password, remember); err != nil {
				return asCLIError(fmt.Sprintf("Login failed: %v", err), err)
			}
			cmd.Println("Login was successful.")

			if !watch {
				if !remember {
					cmd.Println("The token was not remembered and is discarded when this command exits. Use --watch to keep the session open.")
				}
				return nil
			}
			nav.moveTo(dashboardRoute)
			return runWatch(cmd, m, nav)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address of the account")
	cmd.Flags().BoolVarP(&remember, "remember", "r", true, "Remember the token across runs? [true, false]")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the session open after signing in, like the watch command")

	return cmd
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(cmd *cobra.Command, prompt string) (string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	cmd.Print(prompt)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptForPassword prompts the user for a password securely and returns the trimmed string.
func promptForPassword(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	password, err := readPassword()
	if err != nil {
		return "", err
	}
	cmd.Println() // Print a newline for better formatting
	return strings.TrimSpace(string(password)), nil
}
