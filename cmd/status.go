package cmd

import (
	"errors"
	"io"
	"time"

	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// statusCmd shows the state of the stored token and what the session manager would do next.
func statusCmd(cfg *config.Config) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newSession(cfg, sessionOptions{path: dashboardRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), quietUI: true})
			if err != nil {
				return err
			}
			defer m.Stop()

			st := m.Status()
			rows := statusRows(st, time.Now())
			if check && st.State != auth.NoToken {
				rows = append(rows, []string{"Server session", describeCheck(m.CheckSession(cmd.Context()))})
			}
			renderKeyValueTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&check, "check", "c", false, "Also ask the server whether the session is still valid")
	return cmd
}

func statusRows(st auth.Status, now time.Time) [][]string {
	rows := [][]string{{"State", st.State.String()}}
	if st.State == auth.NoToken {
		return rows
	}

	storage := "session"
	if st.Remembered {
		storage = "persistent"
	}
	rows = append(rows, []string{"Storage", storage})

	if !st.ExpiresAt.IsZero() {
		rows = append(rows,
			[]string{"Expires at", st.ExpiresAt.Local().Format(time.RFC3339)},
			[]string{"Expires in", st.ExpiresAt.Sub(now).Round(time.Second).String()},
		)
	}
	rows = append(rows, []string{"Next action", describePlan(st)})
	if st.Profile != nil {
		rows = append(rows, []string{"User", st.Profile.DisplayName()})
	}
	return rows
}

// describePlan renders the scheduler plan for a status in words.
func describePlan(st auth.Status) string {
	p := st.Plan
	switch {
	case st.State == auth.NoToken:
		return "none"
	case p.Warn:
		return "refresh every " + p.Delay.String() + " (temporary token)"
	case p.RefreshNow:
		return "refresh now"
	case p.Purpose != "":
		return "refresh in " + p.Delay.Round(time.Second).String()
	default:
		return "none"
	}
}

func describeCheck(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, auth.ErrUnauthorized):
		return "rejected"
	case errors.Is(err, auth.ErrNoToken):
		return "no token"
	default:
		return "unreachable"
	}
}

func renderKeyValueTable(out io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Field", "Value"})

	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	table.AppendBulk(rows)
	table.Render()
}
