package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zawa-kun/zawa-tools/internal/sheet"
	"github.com/zawa-kun/zawa-tools/internal/sync"
)

var (
	syncRow    int
	syncSheet  string
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync --row N",
	Short: "Sync one edited row into the calendar",
	Long: `Sync one row, as if its cells had just been edited.

A row that is skipped (header row, status that is not a recruitment phase,
missing or malformed cells) is reported and exits with status 0. A failing
calendar or sheet call exits with status 1 and leaves the row unchanged.`,
	Example: `  gss2cal sync --config config.yaml --row 5
  gss2cal sync --csv schedule.csv --row 5 --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncRow < 1 {
			return fmt.Errorf("--row must be a 1-based row number")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		syncer, release, err := newSyncer(ctx, cfg, nil, syncDryRun, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer release()

		edit := sheet.Edit{Sheet: syncSheet, Row: syncRow}
		if edit.Sheet == "" {
			edit.Sheet = cfg.Sheet.SheetName
		}

		result, err := syncer.SyncRow(ctx, edit)
		if sync.IsSkip(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", err)
			return nil
		}
		if err != nil {
			return err
		}

		prefix := ""
		if result.DryRun {
			prefix = "(dry run) "
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%srow %d: %s %q", prefix, result.Row, result.Action, result.Title)
		if result.EntryID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " entry=%s", result.EntryID)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncRow, "row", 0, "Row number that was edited (1-based, as shown in the sheet)")
	syncCmd.Flags().StringVar(&syncSheet, "sheet", "", "Sheet the edit happened on (defaults to the configured sheet)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Decide and print the action without changing the calendar or the row")
	syncCmd.MarkFlagRequired("row")
}
