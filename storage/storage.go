// Package storage opens the record store named by the configuration.
package storage

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/coder/retry"
	"golang.org/x/xerrors"

	"activitytracker/config"
	"activitytracker/query"
	"activitytracker/query/mongostore"
)

// IsMongo reports whether a connection string points at MongoDB.
func IsMongo(conn string) bool {
	return strings.HasPrefix(conn, "mongodb://") || strings.HasPrefix(conn, "mongodb+srv://")
}

// SQLitePath maps the connection string to a database file. A value that
// already names a file (or ":memory:") is used as is; otherwise it is a
// directory holding "<database name>.db".
func SQLitePath(conn, name string) string {
	if conn == ":memory:" || filepath.Ext(conn) != "" {
		return conn
	}
	return filepath.Join(conn, name+".db")
}

// Open connects to the configured store and waits up to the configured
// ready timeout for it to answer a ping. A store that is still down after
// that is returned anyway: callers log and skip failed operations and the
// driver keeps reconnecting. Only a store that cannot be constructed at all
// is an error.
func Open(ctx context.Context, cfg *config.Config, logger slog.Logger) (query.Store, error) {
	var (
		store query.Store
		err   error
	)
	if IsMongo(cfg.ConnectionString) {
		logger.Info(ctx, "opening mongodb store", slog.F("database", cfg.DBName()))
		store, err = mongostore.Open(ctx, cfg.ConnectionString, cfg.DBName())
	} else {
		path := SQLitePath(cfg.ConnectionString, cfg.DBName())
		logger.Info(ctx, "opening sqlite store", slog.F("path", path), slog.F("driver", cfg.Driver))
		store, err = query.Open(ctx, cfg.Driver, path)
	}
	if err != nil {
		return nil, xerrors.Errorf("open store: %w", err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.StoreReadyTimeout())
	defer cancel()
	if err := WaitReady(readyCtx, store, logger); err != nil {
		logger.Warn(ctx, "store unavailable, continuing without it",
			slog.F("waited", cfg.StoreReadyTimeout()),
			slog.Error(err),
		)
	}
	return store, nil
}

// WaitReady pings store with backoff until it answers.
func WaitReady(ctx context.Context, store query.Store, logger slog.Logger) error {
	var lastErr error
	for r := retry.New(100*time.Millisecond, 5*time.Second); r.Wait(ctx); {
		lastErr = store.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		logger.Warn(ctx, "store not ready, retrying", slog.Error(lastErr))
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return xerrors.Errorf("store did not become ready: %w", lastErr)
}
