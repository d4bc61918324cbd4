// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
)

func init() {
	state.Providers.Register("redis", func(ctx context.Context, params map[string]string) (state.TranscriptStore, error) {
		max, err := state.MaxMessages(params)
		if err != nil {
			return nil, err
		}
		return New(ctx, Options{URL: params["dsn"], Prefix: params["prefix"], MaxMessages: max})
	})
}

// compile-time check
var _ state.TranscriptStore = (*Store)(nil)

// Options configures the redis backend.
type Options struct {
	URL         string // redis://[:password@]host:port/db; required unless Client is set
	Client      *goredis.Client
	Prefix      string // key prefix, default "doodle:transcript:"
	MaxMessages int
}

// Store keeps each transcript as a redis list of JSON messages, trimmed
// with LTRIM, plus a sibling key holding the update time.
type Store struct {
	client      *goredis.Client
	prefix      string
	maxMessages int
}

// New connects to redis and pings it.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := opts.Client
	if client == nil {
		if opts.URL == "" {
			return nil, errors.New("redis transcript store: dsn is required")
		}
		ropts, err := goredis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redis parse url: %w", err)
		}
		client = goredis.NewClient(ropts)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "doodle:transcript:"
	}
	max := opts.MaxMessages
	if max <= 0 {
		max = state.DefaultMaxMessages
	}
	return &Store{client: client, prefix: prefix, maxMessages: max}, nil
}

func (s *Store) listKey(ownerID string) string    { return s.prefix + ownerID + ":messages" }
func (s *Store) updatedKey(ownerID string) string { return s.prefix + ownerID + ":updated" }

// Get returns the owner's transcript.
func (s *Store) Get(ctx context.Context, ownerID string) (*state.Transcript, error) {
	var (
		rangeCmd   *goredis.StringSliceCmd
		updatedCmd *goredis.StringCmd
	)
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		rangeCmd = p.LRange(ctx, s.listKey(ownerID), 0, -1)
		updatedCmd = p.Get(ctx, s.updatedKey(ownerID))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis get transcript: %w", err)
	}

	tr := &state.Transcript{OwnerID: ownerID, Messages: []state.Message{}}
	for _, raw := range rangeCmd.Val() {
		var m state.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("redis decode message: %w", err)
		}
		tr.Messages = append(tr.Messages, m)
	}
	if ns, err := strconv.ParseInt(updatedCmd.Val(), 10, 64); err == nil {
		tr.UpdatedAt = time.Unix(0, ns).UTC()
	}
	return tr, nil
}

// Append pushes messages and trims to the newest maxMessages atomically.
func (s *Store) Append(ctx context.Context, ownerID string, msgs ...state.Message) error {
	values, err := encode(msgs)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(values) > 0 {
			p.RPush(ctx, s.listKey(ownerID), values...)
		}
		p.LTrim(ctx, s.listKey(ownerID), int64(-s.maxMessages), -1)
		p.Set(ctx, s.updatedKey(ownerID), time.Now().UTC().UnixNano(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// Replace overwrites the owner's transcript atomically.
func (s *Store) Replace(ctx context.Context, ownerID string, msgs []state.Message) error {
	if len(msgs) == 0 {
		return s.Clear(ctx, ownerID)
	}
	values, err := encode(state.Keep(msgs, s.maxMessages))
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.listKey(ownerID))
		p.RPush(ctx, s.listKey(ownerID), values...)
		p.Set(ctx, s.updatedKey(ownerID), time.Now().UTC().UnixNano(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace: %w", err)
	}
	return nil
}

// Clear deletes the owner's transcript.
func (s *Store) Clear(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, s.listKey(ownerID), s.updatedKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encode(msgs []state.Message) ([]any, error) {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("redis encode message: %w", err)
		}
		values = append(values, string(b))
	}
	return values, nil
}
