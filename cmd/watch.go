package cmd

import (
	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// watchCmd keeps the session alive: it refreshes the token on schedule and
// checks the session with the server until interrupted or signed out.
func watchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, nav, err := newSession(cfg, sessionOptions{path: dashboardRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer m.Stop()

			if m.Tokens().Get() == "" {
				return clierr.New(clierr.Auth, "Not logged in. Run 'waconsole login' first.", auth.ErrNoToken)
			}
			return runWatch(cmd, m, nav)
		},
	}
}

func runWatch(cmd *cobra.Command, m *auth.Manager, nav *consoleNavigator) error {
	ctx := cmd.Context()
	m.CheckAuthStatus(ctx)

	select {
	case <-nav.Redirected():
		return clierr.New(clierr.Auth, "Session ended.", auth.ErrUnauthorized)
	default:
	}

	st := m.Status()
	cmd.Printf("Watching session (state: %s, next: %s). Press Ctrl+C to stop.\n", st.State, describePlan(st))
	log.Info().Str("state", st.State.String()).Msg("Watching session")

	select {
	case <-ctx.Done():
		cmd.Println("Stopped watching.")
		return nil
	case <-nav.Redirected():
		return clierr.New(clierr.Auth, "Session ended.", auth.ErrUnauthorized)
	}
}
