package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zawa-kun/zawa-tools/internal/auth"
	"github.com/zawa-kun/zawa-tools/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Calendar and Google Sheets",
	Long: `Run the OAuth browser flow and store a new token, replacing any existing one.

The Google credentials JSON file should be in the format downloaded from
Google Cloud Console, with an "installed" or "web" section. Add
http://127.0.0.1:8080 to its authorized redirect URIs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.UsesGoogle() {
			return fmt.Errorf("no Google calendar or spreadsheet is configured, nothing to authorize")
		}

		clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to load Google credentials: %w", err)
		}

		store, release, err := openTokenStore(cfg)
		if err != nil {
			return err
		}
		defer release()

		_, err = auth.Authorize(cmd.Context(), auth.NewOAuthConfig(clientID, clientSecret), store, cmd.OutOrStdout())
		return err
	},
}
