// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockChatCompletionClient answers with predictable text derived from the
// last user message. It records requests and can be told to fail.
type MockChatCompletionClient struct {
	// Err, when set, is returned by every call.
	Err error
	// WordDelay is the pause between streamed words.
	WordDelay time.Duration

	mu       sync.Mutex
	requests []ChatCompletionRequest
}

// NewMockChatCompletionClient creates a new mock client
func NewMockChatCompletionClient() *MockChatCompletionClient {
	return &MockChatCompletionClient{}
}

// Requests returns copies of the requests seen so far.
func (m *MockChatCompletionClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatCompletionRequest(nil), m.requests...)
}

func (m *MockChatCompletionClient) record(req *ChatCompletionRequest) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()
}

func lastUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].PlainText()
		}
	}
	return ""
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (m *MockChatCompletionClient) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	userMessage := lastUserText(req.Messages)
	content := fmt.Sprintf("Mock response to: %s", userMessage)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Message:      Message{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     estimateTokens(userMessage),
			CompletionTokens: estimateTokens(content),
			TotalTokens:      estimateTokens(userMessage) + estimateTokens(content),
		},
	}, nil
}

// CreateChatCompletionStream implements ChatCompletionClient.CreateChatCompletionStream
func (m *MockChatCompletionClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (<-chan StreamChunk, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	words := strings.Fields(fmt.Sprintf("Mock streaming response to: %s", lastUserText(req.Messages)))
	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)
		id := fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano())
		for i, word := range words {
			chunk := StreamChunk{ID: id, Model: req.Model, Content: word}
			if i < len(words)-1 {
				chunk.Content += " "
			} else {
				chunk.FinishReason = "stop"
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			if m.WordDelay > 0 {
				time.Sleep(m.WordDelay)
			}
		}
	}()

	return chunks, nil
}

// estimateTokens uses ~4 characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
