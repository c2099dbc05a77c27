package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/db"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/habedi/waconsole/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the root command and exits with a code derived from the error type.
func Execute(ctx context.Context) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(clierr.ExitCode(clierr.New(clierr.Validation, err.Error(), err)))
	}

	rootCmd := createRootCmd(cfg)
	db.Path = cfg.DBPath
	initializeDatabase()

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err = rootCmd.ExecuteContext(ctx)
	closeDatabase()
	if err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(clierr.ExitCode(err))
	}
}

func createRootCmd(cfg *config.Config) *cobra.Command {
	var baseURL string

	rootCmd := &cobra.Command{
		Use:           "waconsole",
		Short:         "A terminal client for the WhatsApp gateway console",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				return nil
			}
			if err := validation.ValidateBaseURL(baseURL); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			cfg.Auth.BaseURL = baseURL
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the console API (overrides "+config.EnvBaseURL+")")

	rootCmd.AddCommand(
		loginCmd(cfg),
		logoutCmd(cfg),
		statusCmd(cfg),
		profileCmd(cfg),
		fetchCmd(cfg),
		watchCmd(cfg),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

func initializeDatabase() {
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		os.Exit(1)
	}
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
		os.Exit(1)
	}
}

// asCLIError classifies errors coming out of the session manager.
func asCLIError(msg string, err error) error {
	var cliErr *clierr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cliErr):
		return err
	case isAuthError(err):
		return clierr.New(clierr.Auth, msg, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return clierr.New(clierr.Internal, msg, err)
	default:
		return clierr.New(clierr.Network, msg, err)
	}
}
