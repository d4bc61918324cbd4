// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session binds an opaque token to a credential.
type Session struct {
	Token      string
	Credential Credential
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SessionManager keeps sessions in memory. It is safe for concurrent use.
type SessionManager struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionManager creates a manager whose sessions live for ttl.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create issues a new session for cred and drops expired ones.
func (m *SessionManager) Create(cred *Credential) *Session {
	now := m.now()
	sess := &Session{
		Token:      uuid.NewString(),
		Credential: *cred,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
	m.sessions[sess.Token] = sess
	return sess
}

// Resolve returns the live session for token.
func (m *SessionManager) Resolve(token string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok || !m.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

// SignOut deletes the session. Unknown tokens report ErrSessionNotFound.
func (m *SessionManager) SignOut(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}
