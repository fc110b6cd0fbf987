package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zawa-kun/zawa-tools/internal/config"
	appLog "github.com/zawa-kun/zawa-tools/internal/log"
)

var (
	configFile string
	verbose    bool
	overrides  config.Overrides
)

var rootCmd = &cobra.Command{
	Use:   "gss2cal",
	Short: "Sync a recruitment schedule sheet into a calendar",
	Long: `gss2cal turns rows of a recruitment schedule (one row per selection event)
into calendar entries.

Each edited row is looked at on its own:
  - a row whose status is not a recruitment phase is ignored
  - the first sync of a row creates an entry with a reminder
  - changing the status to a new phase creates an additional entry and
    keeps the previous phase's entry as history
  - editing a row without changing its phase updates the entry in place

The entry id and the synced status are written back to the row (by default
columns L and M), so never edit those columns by hand.

The schedule is read from Google Sheets or from a local CSV file with the
same layout, and written to Google Calendar or a CalDAV calendar (iCloud,
Nextcloud, Fastmail...).

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (GOOGLE_CREDENTIALS_PATH, TOKEN_PATH, SPREADSHEET_ID,
       CALENDAR_ID, GSS_TIMEZONE, CALDAV_PASSWORD)
    3. Config file (--config, JSON, TOML or YAML by extension)
    4. Defaults`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to config file (.json, .toml, .yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (show DEBUG logs)")
	flags.StringVar(&overrides.GoogleCredentialsPath, "google-credentials-path", "", "Path to Google OAuth credentials JSON file (overrides GOOGLE_CREDENTIALS_PATH)")
	flags.StringVar(&overrides.TokenPath, "token-path", "", "Path to store the OAuth token (overrides TOKEN_PATH)")
	flags.StringVar(&overrides.SpreadsheetID, "spreadsheet-id", "", "Google Sheets spreadsheet id (overrides SPREADSHEET_ID)")
	flags.StringVar(&overrides.SheetName, "sheet-name", "", "Name of the schedule sheet")
	flags.StringVar(&overrides.CSVPath, "csv", "", "Read the schedule from this CSV file instead of Google Sheets")
	flags.StringVar(&overrides.CalendarID, "calendar-id", "", "Calendar to write entries to (overrides CALENDAR_ID)")
	flags.StringVar(&overrides.Timezone, "timezone", "", "Time zone of the schedule's dates (overrides GSS_TIMEZONE)")

	rootCmd.AddCommand(syncCmd, watchCmd, authCmd, titleCmd)
}

// loadConfig loads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := appLog.ParseLevel(cfg.Log.Level)
	if verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	if cfg.Log.File != "" {
		appLog.EnableFile(appLog.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}

	appLog.Debug("config loaded", "config", cfg.String())
	return cfg, nil
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	appLog.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
