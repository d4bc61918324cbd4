// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
	"github.com/doodlechat/doodle-gw/pkg/storage/storagetest"
)

func TestPostgresTranscriptConformance(t *testing.T) {
	dsn := os.Getenv("TRANSCRIPT_STORE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping postgres conformance tests: TRANSCRIPT_STORE_POSTGRES_DSN is not set")
	}

	storagetest.RunTranscriptConformanceTests(t, func(t *testing.T) state.TranscriptStore {
		ctx := context.Background()
		store, err := New(ctx, dsn, storagetest.ConformanceMax)
		if err != nil {
			t.Fatalf("postgres.New: %v", err)
		}
		if _, err := store.DB().ExecContext(ctx, `TRUNCATE transcript_messages, transcripts`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return store
	})
}

func TestNew_RequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), "", 10); err == nil {
		t.Error("expected error for empty dsn")
	}
}
