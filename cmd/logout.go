package cmd

import (
	"github.com/habedi/waconsole/config"
	"github.com/spf13/cobra"
)

func logoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newSession(cfg, sessionOptions{path: dashboardRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer m.Stop()

			if m.Tokens().Get() == "" {
				cmd.Println("Not logged in.")
				return nil
			}
			m.Logout(cmd.Context())
			cmd.Println("Logged out.")
			return nil
		},
	}
}
