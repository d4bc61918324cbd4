// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/doodlechat/doodle-gw/pkg/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
	User      auth.Credential `json:"user"`
}

// handleSignUp handles POST /api/auth/signup
func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.identityReady(w) || !h.decodeJSON(w, r, &req) {
		return
	}
	h.startSession(w, r, http.StatusCreated, func(ctx context.Context) (*auth.Credential, error) {
		return h.opts.Identity.SignUp(ctx, strings.TrimSpace(req.Email), req.Password)
	})
}

// handleSignIn handles POST /api/auth/signin
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.identityReady(w) || !h.decodeJSON(w, r, &req) {
		return
	}
	h.startSession(w, r, http.StatusOK, func(ctx context.Context) (*auth.Credential, error) {
		return h.opts.Identity.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
	})
}

// handleGoogleSignIn handles POST /api/auth/google
func (h *Handler) handleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !h.identityReady(w) || !h.decodeJSON(w, r, &req) {
		return
	}
	h.startSession(w, r, http.StatusOK, func(ctx context.Context) (*auth.Credential, error) {
		return h.opts.Identity.SignInWithGoogle(ctx, req.IDToken)
	})
}

// handleSignOut handles POST /api/auth/signout
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" || h.opts.Sessions.SignOut(token) != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identityReady(w http.ResponseWriter) bool {
	if h.opts.Identity == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		return false
	}
	return true
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, status int, signIn func(context.Context) (*auth.Credential, error)) {
	cred, err := signIn(r.Context())
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	sess := h.opts.Sessions.Create(cred)
	h.logger.Info("Session started", "user_id", cred.UserID, "provider", cred.ProviderID)
	writeJSON(w, status, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt.Unix(), User: sess.Credential})
}

// authStatus maps provider error codes to HTTP statuses.
var authStatus = map[string]int{
	auth.CodeEmailInUse:         http.StatusConflict,
	auth.CodeInvalidCredential:  http.StatusUnauthorized,
	auth.CodeUserNotFound:       http.StatusUnauthorized,
	auth.CodeUserDisabled:       http.StatusForbidden,
	auth.CodeWeakPassword:       http.StatusBadRequest,
	auth.CodeInvalidEmail:       http.StatusBadRequest,
	auth.CodeTooManyRequests:    http.StatusTooManyRequests,
	auth.CodeProviderNotEnabled: http.StatusBadRequest,
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	perr := auth.AsProviderError(err)
	status, ok := authStatus[perr.Code]
	if !ok {
		status = http.StatusBadGateway
		h.logger.Error("Identity provider failure", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": perr.Message, "code": perr.Code})
}
