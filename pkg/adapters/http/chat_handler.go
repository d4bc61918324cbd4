// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/doodlechat/doodle-gw/pkg/core/services"
)

const msgChatFailed = "Failed to process request"

// handleChat handles POST /api/chat
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	h.logger.Info("Processing chat request",
		"history", len(req.ChatHistory),
		"messages", len(req.Messages),
		"image", req.Image != "",
		"stream", req.Stream)

	if req.Stream {
		h.handleChatStream(w, r, &req)
		return
	}

	reply, err := h.opts.Chat.Complete(r.Context(), &req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	if req.ConversationForm() {
		writeJSON(w, http.StatusOK, map[string]string{"message": reply})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": reply})
}

// handleChatStream relays deltas as SSE data lines followed by [DONE].
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request, req *services.ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	chunks, err := h.opts.Chat.Stream(r.Context(), req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		if chunk.Err != nil {
			h.logger.Error("Chat stream failed", "error", chunk.Err)
			data, _ := json.Marshal(map[string]string{"error": msgChatFailed})
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			break
		}
		if chunk.Content == "" {
			continue
		}
		data, err := json.Marshal(map[string]string{"content": chunk.Content})
		if err != nil {
			h.logger.Error("Failed to marshal chunk", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	if services.IsValidation(err) {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	h.logger.Error("Chat completion failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, msgChatFailed)
}

// validationMessage returns the sentinel text without wrapped detail that
// might echo client input back at length.
func validationMessage(err error) string {
	for _, target := range []error{
		services.ErrEmptyChatRequest,
		services.ErrMessageTooLarge,
		services.ErrHistoryTooLong,
		services.ErrInvalidImage,
		services.ErrInvalidRole,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
