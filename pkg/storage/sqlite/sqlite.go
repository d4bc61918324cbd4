// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
	"github.com/doodlechat/doodle-gw/pkg/storage/sqlstore"
)

func init() {
	state.Providers.Register("sqlite", func(ctx context.Context, params map[string]string) (state.TranscriptStore, error) {
		max, err := state.MaxMessages(params)
		if err != nil {
			return nil, err
		}
		return New(ctx, params["dsn"], max)
	})
}

// New opens a SQLite database, e.g. "file:doodle.db" or ":memory:". An
// empty dsn means ":memory:".
func New(ctx context.Context, dsn string, maxMessages int) (*sqlstore.Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One connection: SQLite allows a single writer, and every ":memory:"
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}

	store, err := sqlstore.New(ctx, db, sqlstore.Dialect{Name: "sqlite", Placeholder: sqlstore.Question}, maxMessages)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
