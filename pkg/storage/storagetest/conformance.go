// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package storagetest provides a shared conformance suite for
// state.TranscriptStore implementations.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
)

// ConformanceMax is the max_messages value newStore must configure.
const ConformanceMax = 5

func msg(role, content string) state.Message {
	return state.Message{Role: role, Content: content}
}

func contents(tr *state.Transcript) string {
	var out string
	for _, m := range tr.Messages {
		if out != "" {
			out += ","
		}
		out += m.Content
	}
	return out
}

// RunTranscriptConformanceTests exercises a TranscriptStore. newStore is
// called once per sub-test, must return an empty store bounded to
// ConformanceMax messages per owner, and is closed by the suite.
func RunTranscriptConformanceTests(t *testing.T, newStore func(t *testing.T) state.TranscriptStore) {
	t.Helper()

	t.Run("MissingIsEmpty", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		tr, err := store.Get(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if tr.OwnerID != "nobody" || len(tr.Messages) != 0 {
			t.Errorf("expected empty transcript, got %+v", tr)
		}
	})

	t.Run("AppendPreservesOrderAndFields", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		first := state.Message{Role: "user", Content: "what is this?", Image: "data:image/png;base64,iVBORw0KGgo=", Timestamp: 1700000000000}
		if err := store.Append(ctx, "alice", first); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := store.Append(ctx, "alice", msg("assistant", "a cat"), msg("user", "thanks")); err != nil {
			t.Fatalf("Append: %v", err)
		}

		tr, err := store.Get(ctx, "alice")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got := contents(tr); got != "what is this?,a cat,thanks" {
			t.Errorf("messages = %q", got)
		}
		if tr.Messages[0] != first {
			t.Errorf("first message = %+v, want %+v", tr.Messages[0], first)
		}
		if tr.Messages[1].Role != "assistant" {
			t.Errorf("role = %q", tr.Messages[1].Role)
		}
		if tr.UpdatedAt.IsZero() {
			t.Error("UpdatedAt not set")
		}
	})

	t.Run("BoundDropsOldest", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		for i := 1; i <= 4; i++ {
			if err := store.Append(ctx, "bob", msg("user", fmt.Sprint(i))); err != nil {
				t.Fatalf("Append %d: %v", i, err)
			}
		}
		if err := store.Append(ctx, "bob", msg("user", "5"), msg("user", "6"), msg("user", "7")); err != nil {
			t.Fatalf("Append batch: %v", err)
		}

		tr, err := store.Get(ctx, "bob")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got := contents(tr); got != "3,4,5,6,7" {
			t.Errorf("messages = %q, want newest %d", got, ConformanceMax)
		}

		// A single append larger than the bound keeps its own tail.
		big := make([]state.Message, 0, 8)
		for i := 0; i < 8; i++ {
			big = append(big, msg("user", fmt.Sprintf("b%d", i)))
		}
		if err := store.Append(ctx, "bob", big...); err != nil {
			t.Fatalf("Append big: %v", err)
		}
		tr, err = store.Get(ctx, "bob")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got := contents(tr); got != "b3,b4,b5,b6,b7" {
			t.Errorf("messages = %q", got)
		}
	})

	t.Run("ReplaceAndClear", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.Append(ctx, "carol", msg("user", "old")); err != nil {
			t.Fatal(err)
		}
		replacement := []state.Message{msg("user", "a"), msg("assistant", "b")}
		if err := store.Replace(ctx, "carol", replacement); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		tr, err := store.Get(ctx, "carol")
		if err != nil {
			t.Fatal(err)
		}
		if got := contents(tr); got != "a,b" {
			t.Errorf("after Replace = %q", got)
		}

		// Replace also honours the bound.
		long := make([]state.Message, 0, 7)
		for i := 0; i < 7; i++ {
			long = append(long, msg("user", fmt.Sprint(i)))
		}
		if err := store.Replace(ctx, "carol", long); err != nil {
			t.Fatalf("Replace long: %v", err)
		}
		tr, err = store.Get(ctx, "carol")
		if err != nil {
			t.Fatal(err)
		}
		if got := contents(tr); got != "2,3,4,5,6" {
			t.Errorf("after long Replace = %q", got)
		}

		if err := store.Clear(ctx, "carol"); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		tr, err = store.Get(ctx, "carol")
		if err != nil {
			t.Fatal(err)
		}
		if len(tr.Messages) != 0 {
			t.Errorf("after Clear = %q", contents(tr))
		}

		// Clearing twice is fine.
		if err := store.Clear(ctx, "carol"); err != nil {
			t.Errorf("second Clear: %v", err)
		}
		// Replacing with nothing equals clearing.
		if err := store.Replace(ctx, "carol", nil); err != nil {
			t.Errorf("Replace(nil): %v", err)
		}
	})

	t.Run("OwnersIsolated", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		if err := store.Append(ctx, "u1", msg("user", "mine")); err != nil {
			t.Fatal(err)
		}
		if err := store.Append(ctx, "u2", msg("user", "theirs")); err != nil {
			t.Fatal(err)
		}
		if err := store.Clear(ctx, "u2"); err != nil {
			t.Fatal(err)
		}
		tr, err := store.Get(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if got := contents(tr); got != "mine" {
			t.Errorf("u1 = %q", got)
		}
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Append(ctx, "dave", msg("user", fmt.Sprint(i))); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("Append: %v", err)
		}

		tr, err := store.Get(ctx, "dave")
		if err != nil {
			t.Fatal(err)
		}
		if len(tr.Messages) != ConformanceMax {
			t.Errorf("kept %d messages, want %d", len(tr.Messages), ConformanceMax)
		}
	})
}
