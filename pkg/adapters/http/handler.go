// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/auth"
	"github.com/doodlechat/doodle-gw/pkg/core/services"
	"github.com/doodlechat/doodle-gw/pkg/core/state"
	"github.com/doodlechat/doodle-gw/pkg/extractor"
	"github.com/doodlechat/doodle-gw/pkg/observability/logging"
)

// multipartSlack is allowed on top of the upload limit for multipart
// boundaries and part headers.
const multipartSlack = 64 << 10

// Options carries the services the adapter exposes.
type Options struct {
	Chat        *services.ChatService
	Files       *services.FileService
	Models      *services.ModelsService
	Extractor   *extractor.Extractor
	Transcripts state.TranscriptStore

	// Identity may be nil, in which case the /api/auth routes answer 503.
	Identity auth.IdentityProvider
	Sessions *auth.SessionManager

	MaxUploadBytes int64
}

// Handler implements the HTTP adapter
type Handler struct {
	logger *logging.Logger
	mux    *http.ServeMux
	opts   Options
}

// New creates a new HTTP handler
func New(logger *logging.Logger, opts Options) *Handler {
	if opts.Extractor == nil {
		opts.Extractor = extractor.New()
	}
	if opts.Sessions == nil {
		opts.Sessions = auth.NewSessionManager(0)
	}
	h := &Handler{
		logger: logger,
		mux:    http.NewServeMux(),
		opts:   opts,
	}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /api/models", h.handleListModels)

	// Chat and extraction
	h.mux.HandleFunc("POST /api/chat", h.handleChat)
	h.mux.HandleFunc("POST /api/extract", h.handleExtract)

	// Files
	h.mux.HandleFunc("POST /api/files", h.authenticated(h.handleUploadFile))
	h.mux.HandleFunc("GET /api/files", h.authenticated(h.handleListFiles))
	h.mux.HandleFunc("GET /api/files/{id}", h.authenticated(h.handleGetFile))
	h.mux.HandleFunc("GET /api/files/{id}/content", h.authenticated(h.handleGetFileContent))
	h.mux.HandleFunc("GET /api/files/{id}/text", h.authenticated(h.handleGetFileText))
	h.mux.HandleFunc("DELETE /api/files/{id}", h.authenticated(h.handleDeleteFile))

	// Transcripts
	h.mux.HandleFunc("GET /api/transcript", h.authenticated(h.handleGetTranscript))
	h.mux.HandleFunc("PUT /api/transcript", h.authenticated(h.handleReplaceTranscript))
	h.mux.HandleFunc("POST /api/transcript/messages", h.authenticated(h.handleAppendTranscript))
	h.mux.HandleFunc("DELETE /api/transcript", h.authenticated(h.handleClearTranscript))

	// Authentication
	h.mux.HandleFunc("POST /api/auth/signup", h.handleSignUp)
	h.mux.HandleFunc("POST /api/auth/signin", h.handleSignIn)
	h.mux.HandleFunc("POST /api/auth/google", h.handleGoogleSignIn)
	h.mux.HandleFunc("POST /api/auth/signout", h.handleSignOut)

	return h
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.opts.MaxUploadBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartSlack)
	}

	rec := &statusRecorder{ResponseWriter: w}
	h.mux.ServeHTTP(rec, r)

	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"status", rec.status,
		"duration", time.Since(start))
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleListModels handles GET /api/models
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	if h.opts.Models == nil {
		writeJSON(w, http.StatusOK, services.ListModelsResponse{Object: "list", Data: []services.Model{}})
		return
	}
	writeJSON(w, http.StatusOK, h.opts.Models.ListModels())
}

type ownerKey struct{}

// authenticated resolves the bearer session token and stores the user ID in
// the request context.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		sess, err := h.opts.Sessions.Resolve(token)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, sess.Credential.UserID)
		next(w, r.WithContext(ctx))
	}
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// decodeJSON reads a JSON body, reporting oversized bodies separately.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "Failed to parse request body")
		return false
	}
	return true
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || (err != nil && strings.Contains(err.Error(), "request body too large"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
