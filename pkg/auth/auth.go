// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth fronts an external identity provider and keeps server-side
// sessions for signed-in users. Passwords are forwarded to the provider and
// never stored.
package auth

import (
	"context"
	"errors"
	"time"
)

// Provider error codes, in the Firebase client SDK format.
const (
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeInvalidCredential  = "auth/invalid-credential"
	CodeUserNotFound       = "auth/user-not-found"
	CodeUserDisabled       = "auth/user-disabled"
	CodeWeakPassword       = "auth/weak-password"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeTooManyRequests    = "auth/too-many-requests"
	CodeInternalError      = "auth/internal-error"
	CodeProviderNotEnabled = "auth/operation-not-allowed"
)

// ErrSessionNotFound is returned for unknown, expired or signed-out tokens.
var ErrSessionNotFound = errors.New("session not found")

// Credential is what the identity provider returns for a signed-in user.
type Credential struct {
	UserID       string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	ProviderID   string    `json:"providerId"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"-"`
}

// IdentityProvider signs users up and in.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*Credential, error)
	SignIn(ctx context.Context, email, password string) (*Credential, error)
	// SignInWithGoogle exchanges a Google OAuth ID token for a credential.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credential, error)
}

// ProviderError is a failed provider call mapped onto a stable code.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError returns the *ProviderError in err's chain. Any other
// error is wrapped as CodeInternalError with a generic message.
func AsProviderError(err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return &ProviderError{Code: CodeInternalError, Message: "Authentication failed. Please try again.", Err: err}
}
