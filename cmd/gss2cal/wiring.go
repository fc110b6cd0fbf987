package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zawa-kun/zawa-tools/internal/auth"
	"github.com/zawa-kun/zawa-tools/internal/calendar"
	"github.com/zawa-kun/zawa-tools/internal/config"
	"github.com/zawa-kun/zawa-tools/internal/sheet"
	"github.com/zawa-kun/zawa-tools/internal/sync"
)

// tokenAccount is the row used in the SQLite token database.
const tokenAccount = "default"

// openTokenStore returns the configured token store and a func to release it.
func openTokenStore(cfg *config.Config) (auth.TokenStore, func(), error) {
	if cfg.TokenDB != "" {
		store, err := auth.OpenSQLiteTokenStore(cfg.TokenDB, tokenAccount)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return auth.NewFileTokenStore(cfg.TokenPath), func() {}, nil
}

// googleHTTPClient authenticates against Google, running the browser flow
// on first use. It returns nil when no Google API is configured.
func googleHTTPClient(ctx context.Context, cfg *config.Config, out io.Writer) (*http.Client, func(), error) {
	if !cfg.UsesGoogle() {
		return nil, func() {}, nil
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	store, release, err := openTokenStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := auth.GetAuthenticatedClient(ctx, auth.NewOAuthConfig(clientID, clientSecret), store, out)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return client, release, nil
}

func newCalendarClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (calendar.Client, error) {
	switch cfg.Calendar.Provider {
	case config.ProviderCalDAV:
		return calendar.NewCalDAVClient(cfg.Calendar.ServerURL, cfg.Calendar.Username, cfg.Calendar.Password, cfg.Location())
	default:
		return calendar.NewGoogleClient(ctx, httpClient, cfg.Location())
	}
}

func newRowStore(ctx context.Context, cfg *config.Config, httpClient *http.Client) (sheet.RowStore, error) {
	switch cfg.Sheet.Provider {
	case config.ProviderCSV:
		return sheet.NewCSVStore(cfg.Sheet.CSVPath, cfg.SheetColumns()), nil
	default:
		return sheet.NewGoogleStore(ctx, httpClient, cfg.Sheet.SpreadsheetID, cfg.Sheet.SheetName, cfg.SheetColumns())
	}
}

// newSyncer wires a Syncer for rows. A nil rows uses the configured store.
func newSyncer(ctx context.Context, cfg *config.Config, rows sheet.RowStore, dryRun bool, out io.Writer) (*sync.Syncer, func(), error) {
	httpClient, release, err := googleHTTPClient(ctx, cfg, out)
	if err != nil {
		return nil, nil, err
	}

	cal, err := newCalendarClient(ctx, cfg, httpClient)
	if err != nil {
		release()
		return nil, nil, err
	}

	if rows == nil {
		rows, err = newRowStore(ctx, cfg, httpClient)
		if err != nil {
			release()
			return nil, nil, err
		}
	}

	syncer := sync.NewSyncer(rows, cal, cfg.Schedule(), sync.Options{
		CalendarID:      cfg.Calendar.CalendarID,
		SheetName:       cfg.Sheet.SheetName,
		HeaderRows:      cfg.Sheet.HeaderRows,
		ReminderMinutes: cfg.ReminderMinutes(),
		DryRun:          dryRun,
	})
	return syncer, release, nil
}
