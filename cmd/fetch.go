package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/habedi/waconsole/pkg/pool"
	"github.com/habedi/waconsole/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type fetchResult struct {
	path     string
	status   int
	body     []byte
	duration time.Duration
}

// fetchCmd sends authenticated GET requests through the session's HTTP client.
func fetchCmd(cfg *config.Config) *cobra.Command {
	var numThreads int
	var showBody bool

	cmd := &cobra.Command{
		Use:   "fetch [path...]",
		Short: "Send authenticated GET requests to the console API",
		Long:  "Send authenticated GET requests to the console API. The token is refreshed before the requests are sent.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateThreadCount(numThreads); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			for _, p := range args {
				if err := validation.ValidateAPIPath(p); err != nil {
					return clierr.New(clierr.Validation, err.Error(), err)
				}
			}

			m, _, err := newSession(cfg, sessionOptions{path: dashboardRoute, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), quietUI: true})
			if err != nil {
				return err
			}
			defer m.Stop()
			if m.Tokens().Get() == "" {
				return clierr.New(clierr.Auth, "Not logged in. Run 'waconsole login' first.", auth.ErrNoToken)
			}

			results := fetchAll(cmd.Context(), m, args, numThreads)
			renderFetchTable(cmd.OutOrStdout(), args, results)
			if showBody {
				for _, r := range results {
					if r.Err == nil {
						cmd.Printf("== %s ==\n%s\n", r.Value.path, r.Value.body)
					}
				}
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil || r.Value.status >= 400 {
					failed++
				}
			}
			if failed > 0 {
				return clierr.New(clierr.Network, fmt.Sprintf("%d of %d requests failed.", failed, len(results)), nil)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&numThreads, "threads", "t", 4, "Number of requests to send concurrently")
	cmd.Flags().BoolVarP(&showBody, "body", "b", false, "Print the response bodies")
	return cmd
}

func fetchAll(ctx context.Context, m *auth.Manager, paths []string, numThreads int) []pool.Result[fetchResult] {
	client := m.HTTPClient()
	return pool.Run(ctx, paths, numThreads, func(ctx context.Context, path string) (fetchResult, error) {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.Endpoint(path), nil)
		if err != nil {
			return fetchResult{path: path}, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Request failed")
			return fetchResult{path: path}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetchResult{path: path, status: resp.StatusCode}, fmt.Errorf("failed to read response body: %w", err)
		}
		log.Debug().Str("path", path).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Request completed")
		return fetchResult{path: path, status: resp.StatusCode, body: body, duration: time.Since(start)}, nil
	})
}

func renderFetchTable(out io.Writer, paths []string, results []pool.Result[fetchResult]) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Path", "Status", "Size", "Time"})

	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, r := range results {
		if r.Err != nil {
			table.Append([]string{paths[r.Index], "error", "-", r.Err.Error()})
			continue
		}
		table.Append([]string{
			r.Value.path,
			strconv.Itoa(r.Value.status),
			formatBytes(int64(len(r.Value.body))),
			r.Value.duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

// formatBytes renders a byte count with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
