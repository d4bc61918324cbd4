// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/doodlechat/doodle-gw/pkg/core/state"
)

type transcriptRequest struct {
	Messages []state.Message `json:"messages"`
}

// handleGetTranscript handles GET /api/transcript
func (h *Handler) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	t, err := h.opts.Transcripts.Get(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.writeTranscriptError(w, "Failed to load transcript", err)
		return
	}
	if t.Messages == nil {
		t.Messages = []state.Message{}
	}
	writeJSON(w, http.StatusOK, t)
}

// handleReplaceTranscript handles PUT /api/transcript
func (h *Handler) handleReplaceTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := state.ValidateMessages(req.Messages); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := ownerFrom(r.Context())
	if err := h.opts.Transcripts.Replace(r.Context(), owner, req.Messages); err != nil {
		h.writeTranscriptError(w, "Failed to save transcript", err)
		return
	}
	h.handleGetTranscript(w, r)
}

// handleAppendTranscript handles POST /api/transcript/messages
func (h *Handler) handleAppendTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		h.writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	if err := state.ValidateMessages(req.Messages); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := ownerFrom(r.Context())
	if err := h.opts.Transcripts.Append(r.Context(), owner, req.Messages...); err != nil {
		h.writeTranscriptError(w, "Failed to save transcript", err)
		return
	}
	h.handleGetTranscript(w, r)
}

// handleClearTranscript handles DELETE /api/transcript
func (h *Handler) handleClearTranscript(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Transcripts.Clear(r.Context(), ownerFrom(r.Context())); err != nil {
		h.writeTranscriptError(w, "Failed to clear transcript", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTranscriptError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	h.writeError(w, http.StatusInternalServerError, msg)
}
