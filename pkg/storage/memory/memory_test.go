// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
	"github.com/doodlechat/doodle-gw/pkg/storage/storagetest"
)

func TestMemoryTranscriptConformance(t *testing.T) {
	storagetest.RunTranscriptConformanceTests(t, func(t *testing.T) state.TranscriptStore {
		return New(storagetest.ConformanceMax)
	})
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	if err := s.Append(ctx, "u", state.Message{Role: "user", Content: "original"}); err != nil {
		t.Fatal(err)
	}

	tr, err := s.Get(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	tr.Messages[0].Content = "mutated"

	again, err := s.Get(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if again.Messages[0].Content != "original" {
		t.Errorf("store state leaked: %q", again.Messages[0].Content)
	}
}

func TestRegistryFactoryReadsMaxMessages(t *testing.T) {
	store, err := state.Providers.New(context.Background(), "memory", map[string]string{"max_messages": "2"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, "u", state.Message{Role: "user", Content: c}); err != nil {
			t.Fatal(err)
		}
	}
	tr, _ := store.Get(ctx, "u")
	if len(tr.Messages) != 2 || tr.Messages[0].Content != "b" {
		t.Errorf("messages = %+v", tr.Messages)
	}
}
