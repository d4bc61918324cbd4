// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package state defines per-user chat transcripts and the pluggable store
// that persists them.
package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/provider"
)

// DefaultMaxMessages bounds a transcript when no limit is configured.
const DefaultMaxMessages = 500

// ErrInvalidRole is returned for messages whose role is not user,
// assistant or system.
var ErrInvalidRole = errors.New("invalid message role")

// Providers is the registry of transcript store backends. Blank-import a
// backend package to register it.
var Providers = provider.NewRegistry[TranscriptStore]("transcript_store")

// Message is one entry in a transcript.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`     // data URL shown with a user message
	Timestamp int64  `json:"timestamp,omitempty"` // client milliseconds since epoch
}

// Transcript is a user's ordered chat history.
type Transcript struct {
	OwnerID   string    `json:"owner_id"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TranscriptStore persists transcripts. Every implementation keeps at most
// its configured number of messages per owner, dropping the oldest first.
// Getting a transcript that was never written returns an empty transcript.
type TranscriptStore interface {
	Get(ctx context.Context, ownerID string) (*Transcript, error)
	Append(ctx context.Context, ownerID string, msgs ...Message) error
	Replace(ctx context.Context, ownerID string, msgs []Message) error
	Clear(ctx context.Context, ownerID string) error
	Close() error
}

// ValidateMessages checks roles before anything is written.
func ValidateMessages(msgs []Message) error {
	for i, m := range msgs {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return fmt.Errorf("%w %q at index %d", ErrInvalidRole, m.Role, i)
		}
	}
	return nil
}

// Keep returns the newest max messages of msgs. max <= 0 keeps everything.
func Keep(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

// MaxMessages reads the "max_messages" backend parameter, falling back to
// DefaultMaxMessages when it is absent or not positive.
func MaxMessages(params map[string]string) (int, error) {
	raw := params["max_messages"]
	if raw == "" {
		return DefaultMaxMessages, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("max_messages: %w", err)
	}
	if n <= 0 {
		return DefaultMaxMessages, nil
	}
	return n, nil
}
