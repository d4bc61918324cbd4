// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/h2non/filetype"

	"github.com/doodlechat/doodle-gw/pkg/core/api"
)

const (
	// MaxMessageBytes is the maximum size of a single user message (100KB)
	MaxMessageBytes = 100 * 1024

	// MaxHistoryCount is the maximum number of prior messages per request
	MaxHistoryCount = 100

	// MaxImageBytes is the maximum decoded size of an attached image (4MB)
	MaxImageBytes = 4 << 20
)

var (
	ErrEmptyChatRequest = errors.New("message, image or messages is required")
	ErrMessageTooLarge  = errors.New("message exceeds maximum size")
	ErrHistoryTooLong   = errors.New("chat history exceeds maximum length")
	ErrInvalidImage     = errors.New("image must be a base64 data URL of an image")
	ErrInvalidRole      = errors.New("invalid message role")

	// ErrUpstream wraps every failure of the chat-completions backend.
	ErrUpstream = errors.New("upstream chat completion failed")
)

// IsValidation reports whether err is a client mistake rather than an
// upstream failure.
func IsValidation(err error) bool {
	for _, target := range []error{ErrEmptyChatRequest, ErrMessageTooLarge, ErrHistoryTooLong, ErrInvalidImage, ErrInvalidRole} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ChatMessage is a prior turn supplied by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest accepts both request shapes: the single-message form
// ({message, image, chatHistory}) and the full-conversation form
// ({messages}).
type ChatRequest struct {
	Message     string        `json:"message,omitempty"`
	Image       string        `json:"image,omitempty"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ConversationForm reports whether the request uses the {messages} shape.
// The single-message shape wins when both are present.
func (r *ChatRequest) ConversationForm() bool {
	return strings.TrimSpace(r.Message) == "" && r.Image == "" && len(r.Messages) > 0
}

// ChatOptions configures model selection.
type ChatOptions struct {
	Model       string
	VisionModel string
	Temperature float64
}

// ChatService turns client requests into upstream chat completions.
type ChatService struct {
	client api.ChatCompletionClient
	opts   ChatOptions
}

// NewChatService creates a chat service over client.
func NewChatService(client api.ChatCompletionClient, opts ChatOptions) *ChatService {
	return &ChatService{client: client, opts: opts}
}

// Complete validates req, calls the backend and returns the reply text.
func (s *ChatService) Complete(ctx context.Context, req *ChatRequest) (string, error) {
	upstream, err := s.Build(req)
	if err != nil {
		return "", err
	}
	resp, err := s.client.CreateChatCompletion(ctx, upstream)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstream)
	}
	return resp.Text(), nil
}

// Stream validates req and starts a streamed completion.
func (s *ChatService) Stream(ctx context.Context, req *ChatRequest) (<-chan api.StreamChunk, error) {
	upstream, err := s.Build(req)
	if err != nil {
		return nil, err
	}
	upstream.Stream = true
	chunks, err := s.client.CreateChatCompletionStream(ctx, upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return chunks, nil
}

// Build validates req and produces the upstream request: the system
// prompt, then prior turns, then the new user message.
func (s *ChatService) Build(req *ChatRequest) (*api.ChatCompletionRequest, error) {
	if req == nil {
		return nil, ErrEmptyChatRequest
	}

	var (
		history []ChatMessage
		current *api.Message
		model   = s.opts.Model
	)

	if req.ConversationForm() {
		history = req.Messages
	} else {
		if strings.TrimSpace(req.Message) == "" && req.Image == "" {
			return nil, ErrEmptyChatRequest
		}
		if len(req.Message) > MaxMessageBytes {
			return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(req.Message), MaxMessageBytes)
		}
		history = req.ChatHistory
		current = &api.Message{Role: api.RoleUser, Content: req.Message}
		if req.Image != "" {
			if err := validateImage(req.Image); err != nil {
				return nil, err
			}
			current.ContentParts = []api.MessageContentPart{api.ImagePart(req.Image)}
			if strings.TrimSpace(req.Message) != "" {
				current.ContentParts = append([]api.MessageContentPart{api.TextPart(req.Message)}, current.ContentParts...)
			}
			if s.opts.VisionModel != "" {
				model = s.opts.VisionModel
			}
		}
	}

	if len(history) > MaxHistoryCount {
		return nil, fmt.Errorf("%w: %d messages (max %d)", ErrHistoryTooLong, len(history), MaxHistoryCount)
	}

	messages := make([]api.Message, 0, len(history)+2)
	messages = append(messages, api.Message{Role: api.RoleSystem, Content: SystemPrompt})
	for i, m := range history {
		switch m.Role {
		case api.RoleUser, api.RoleAssistant, api.RoleSystem:
		default:
			return nil, fmt.Errorf("%w %q at index %d", ErrInvalidRole, m.Role, i)
		}
		if len(m.Content) > MaxMessageBytes {
			return nil, fmt.Errorf("%w: history index %d", ErrMessageTooLarge, i)
		}
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}
	if current != nil {
		messages = append(messages, *current)
	}
	if len(messages) == 1 {
		return nil, ErrEmptyChatRequest
	}

	temp := s.opts.Temperature
	return &api.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temp,
	}, nil
}

// validateImage accepts "data:<type>;base64,<payload>" whose decoded bytes
// sniff as an image.
func validateImage(dataURL string) error {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return ErrInvalidImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !filetype.IsImage(raw) {
		return ErrInvalidImage
	}
	return nil
}
