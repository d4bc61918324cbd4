// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore implements state.TranscriptStore over database/sql. The
// sqlite and postgres backends share it and differ only in driver and
// placeholder syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
)

// Dialect captures the SQL differences between engines.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Question is the "?" placeholder style.
func Question(int) string { return "?" }

// Dollar is the "$1" placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Store is a TranscriptStore backed by two tables:
//
//	transcripts(owner_id, updated_at)
//	transcript_messages(owner_id, position, role, content, image, ts)
//
// position grows monotonically per owner; the bound is enforced by deleting
// rows below max(position) - maxMessages.
type Store struct {
	db          *sql.DB
	dialect     Dialect
	maxMessages int
}

// New wraps db and creates the schema when missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect, maxMessages int) (*Store, error) {
	if maxMessages <= 0 {
		maxMessages = state.DefaultMaxMessages
	}
	s := &Store{db: db, dialect: dialect, maxMessages: maxMessages}
	if err := s.createTables(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// q rewrites "?" markers into the dialect's placeholders.
func (s *Store) q(query string) string {
	if s.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			owner_id TEXT PRIMARY KEY,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transcript_messages (
			owner_id TEXT NOT NULL,
			position BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			ts BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (owner_id, position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s create tables: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Get returns the owner's transcript in insertion order.
func (s *Store) Get(ctx context.Context, ownerID string) (*state.Transcript, error) {
	tr := &state.Transcript{OwnerID: ownerID, Messages: []state.Message{}}

	var updated int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT updated_at FROM transcripts WHERE owner_id = ?`), ownerID).Scan(&updated)
	switch {
	case err == sql.ErrNoRows:
		return tr, nil
	case err != nil:
		return nil, fmt.Errorf("%s get transcript: %w", s.dialect.Name, err)
	}
	tr.UpdatedAt = time.Unix(0, updated).UTC()

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT role, content, image, ts FROM transcript_messages WHERE owner_id = ? ORDER BY position`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s list messages: %w", s.dialect.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m state.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Image, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("%s scan message: %w", s.dialect.Name, err)
		}
		tr.Messages = append(tr.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s list messages: %w", s.dialect.Name, err)
	}
	return tr, nil
}

// Append adds messages and trims the oldest beyond the bound in one
// transaction.
func (s *Store) Append(ctx context.Context, ownerID string, msgs ...state.Message) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.touch(ctx, tx, ownerID); err != nil {
			return err
		}
		var last int64
		if err := tx.QueryRowContext(ctx, s.q(
			`SELECT COALESCE(MAX(position), 0) FROM transcript_messages WHERE owner_id = ?`), ownerID).Scan(&last); err != nil {
			return fmt.Errorf("read last position: %w", err)
		}
		if err := s.insert(ctx, tx, ownerID, last, msgs); err != nil {
			return err
		}
		return s.trim(ctx, tx, ownerID)
	})
}

// Replace overwrites the owner's transcript.
func (s *Store) Replace(ctx context.Context, ownerID string, msgs []state.Message) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if len(msgs) == 0 {
			return s.clear(ctx, tx, ownerID)
		}
		if err := s.touch(ctx, tx, ownerID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM transcript_messages WHERE owner_id = ?`), ownerID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		return s.insert(ctx, tx, ownerID, 0, state.Keep(msgs, s.maxMessages))
	})
}

// Clear deletes the owner's transcript.
func (s *Store) Clear(ctx context.Context, ownerID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.clear(ctx, tx, ownerID)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s begin: %w", s.dialect.Name, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", s.dialect.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s commit: %w", s.dialect.Name, err)
	}
	return nil
}

// touch upserts the transcript row, which also serializes writers for the
// same owner on engines with row locks.
func (s *Store) touch(ctx context.Context, tx *sql.Tx, ownerID string) error {
	_, err := tx.ExecContext(ctx, s.q(
		`INSERT INTO transcripts (owner_id, updated_at) VALUES (?, ?)
		 ON CONFLICT (owner_id) DO UPDATE SET updated_at = excluded.updated_at`),
		ownerID, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, ownerID string, after int64, msgs []state.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.q(
		`INSERT INTO transcript_messages (owner_id, position, role, content, image, ts) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range msgs {
		if _, err := stmt.ExecContext(ctx, ownerID, after+int64(i)+1, m.Role, m.Content, m.Image, m.Timestamp); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

func (s *Store) trim(ctx context.Context, tx *sql.Tx, ownerID string) error {
	_, err := tx.ExecContext(ctx, s.q(
		`DELETE FROM transcript_messages WHERE owner_id = ? AND position <=
		 (SELECT MAX(position) FROM transcript_messages WHERE owner_id = ?) - ?`),
		ownerID, ownerID, s.maxMessages)
	if err != nil {
		return fmt.Errorf("trim messages: %w", err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context, tx *sql.Tx, ownerID string) error {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM transcript_messages WHERE owner_id = ?`), ownerID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM transcripts WHERE owner_id = ?`), ownerID); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}
