// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider is a generic factory registry for pluggable backends.
//
// The file store and the transcript store each own a typed Registry.
// Backend packages register themselves from init(), so a binary only
// carries the backends it blank-imports, in the style of database/sql
// drivers.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a backend from string parameters. Unknown keys are ignored.
type Factory[T any] func(ctx context.Context, params map[string]string) (T, error)

// Registry maps backend names to factories. It is safe for concurrent use.
type Registry[T any] struct {
	subsystem string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty Registry. subsystem names the backend kind in
// error messages, e.g. "file_store".
func NewRegistry[T any](subsystem string) *Registry[T] {
	return &Registry[T]{
		subsystem: subsystem,
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a factory under name and panics if the name is taken.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("provider: %s backend %q already registered", r.subsystem, name))
	}
	r.factories[name] = f
}

// New builds the backend registered under name.
func (r *Registry[T]) New(ctx context.Context, name string, params map[string]string) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s backend %q (available: %v)", r.subsystem, name, r.Available())
	}
	return f(ctx, params)
}

// Available returns the registered names, sorted.
func (r *Registry[T]) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
