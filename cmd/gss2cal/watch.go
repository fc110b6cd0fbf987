package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zawa-kun/zawa-tools/internal/config"
	appLog "github.com/zawa-kun/zawa-tools/internal/log"
	"github.com/zawa-kun/zawa-tools/internal/sheet"
	"github.com/zawa-kun/zawa-tools/internal/sync"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a CSV schedule and sync every edited row",
	Long: `Watch the CSV schedule file and sync each row whose cells change,
one row at a time. Changes to the entry id and synced status columns are
the tool's own write-back and do not trigger a sync.

Stop with Ctrl-C.`,
	Example: `  gss2cal watch --csv schedule.csv`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Sheet.Provider != config.ProviderCSV {
			return fmt.Errorf("watch needs a CSV schedule (--csv or sheet.provider = csv)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store := sheet.NewCSVStore(cfg.Sheet.CSVPath, cfg.SheetColumns())
		syncer, release, err := newSyncer(ctx, cfg, store, watchDryRun, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer release()

		watcher, err := sheet.NewWatcher(store, cfg.Sheet.SheetName, cfg.SheetColumns())
		if err != nil {
			return err
		}

		return watcher.Run(ctx, func(ctx context.Context, edit sheet.Edit) error {
			_, err := syncer.SyncRow(ctx, edit)
			if sync.IsSkip(err) {
				appLog.Debug("edit skipped", "row", edit.Row, "reason", err)
				return nil
			}
			return err
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "Log the actions without changing the calendar or the file")
}
