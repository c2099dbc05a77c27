package cmd

import (
	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/spf13/cobra"
)

// profileCmd shows the cached user profile, optionally refreshing it first.
func profileCmd(cfg *config.Config) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the signed in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newSession(cfg, sessionOptions{path: dashboardRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), quietUI: true})
			if err != nil {
				return err
			}
			defer m.Stop()

			if refresh {
				if _, err := m.Refresh(cmd.Context()); err != nil {
					return asCLIError("Failed to refresh the session. Run 'waconsole login' to sign in again.", err)
				}
			}

			profile, ok := m.Tokens().Profile()
			if !ok {
				return clierr.New(clierr.Auth, "No profile cached. Run 'waconsole login' first.", auth.ErrNoToken)
			}
			renderKeyValueTable(cmd.OutOrStdout(), [][]string{
				{"ID", profile.ID},
				{"Name", profile.DisplayName()},
				{"Email", profile.Email},
				{"Avatar", profile.Avatar},
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Refresh the token and profile before showing it")
	return cmd
}
