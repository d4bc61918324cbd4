// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
)

func init() {
	state.Providers.Register("memory", func(_ context.Context, params map[string]string) (state.TranscriptStore, error) {
		max, err := state.MaxMessages(params)
		if err != nil {
			return nil, err
		}
		return New(max), nil
	})
}

// compile-time check
var _ state.TranscriptStore = (*Store)(nil)

// Store is an in-memory implementation of TranscriptStore
type Store struct {
	mu          sync.RWMutex
	maxMessages int
	transcripts map[string]*state.Transcript
}

// New creates a new in-memory store keeping at most maxMessages per owner.
func New(maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = state.DefaultMaxMessages
	}
	return &Store{
		maxMessages: maxMessages,
		transcripts: make(map[string]*state.Transcript),
	}
}

// Get returns a copy of the owner's transcript.
func (s *Store) Get(_ context.Context, ownerID string) (*state.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.transcripts[ownerID]
	if !ok {
		return &state.Transcript{OwnerID: ownerID, Messages: []state.Message{}}, nil
	}
	return &state.Transcript{
		OwnerID:   ownerID,
		Messages:  append([]state.Message(nil), tr.Messages...),
		UpdatedAt: tr.UpdatedAt,
	}, nil
}

// Append adds messages, dropping the oldest beyond the bound.
func (s *Store) Append(_ context.Context, ownerID string, msgs ...state.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []state.Message
	if tr, ok := s.transcripts[ownerID]; ok {
		current = tr.Messages
	}
	s.put(ownerID, append(append([]state.Message(nil), current...), msgs...))
	return nil
}

// Replace overwrites the owner's transcript.
func (s *Store) Replace(_ context.Context, ownerID string, msgs []state.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) == 0 {
		delete(s.transcripts, ownerID)
		return nil
	}
	s.put(ownerID, append([]state.Message(nil), msgs...))
	return nil
}

// Clear deletes the owner's transcript.
func (s *Store) Clear(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transcripts, ownerID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// put requires s.mu held for writing.
func (s *Store) put(ownerID string, msgs []state.Message) {
	kept := state.Keep(msgs, s.maxMessages)
	s.transcripts[ownerID] = &state.Transcript{
		OwnerID:   ownerID,
		Messages:  append([]state.Message(nil), kept...),
		UpdatedAt: time.Now().UTC(),
	}
}
