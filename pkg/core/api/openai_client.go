// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements ChatCompletionClient over any OpenAI-compatible
// chat-completions endpoint, Groq included.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a client for baseURL. A zero timeout leaves the
// SDK default in place. Retries are disabled; failures surface to the caller.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey("dummy"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
	}
}

// convertMessages converts our Message types to OpenAI SDK message params
func convertMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleUser:
			if len(msg.ContentParts) == 0 {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.ContentParts))
			for _, cp := range msg.ContentParts {
				switch cp.Type {
				case "text":
					parts = append(parts, openai.TextContentPart(cp.Text))
				case "image_url":
					if cp.ImageURL == nil {
						return nil, errors.New("image_url part without url")
					}
					img := openai.ChatCompletionContentPartImageImageURLParam{URL: cp.ImageURL.URL}
					if cp.ImageURL.Detail != "" {
						img.Detail = cp.ImageURL.Detail
					}
					parts = append(parts, openai.ImageContentPart(img))
				default:
					return nil, fmt.Errorf("unsupported content part type: %s", cp.Type)
				}
			}
			result = append(result, openai.UserMessage(parts))
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return result, nil
}

func buildParams(req *ChatCompletionRequest, messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	completion, err := c.client.Chat.Completions.New(ctx, buildParams(req, messages))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	choices := make([]Choice, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		choices = append(choices, Choice{
			Index: int(choice.Index),
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		})
	}

	return &ChatCompletionResponse{
		ID:      completion.ID,
		Object:  string(completion.Object),
		Created: completion.Created,
		Model:   completion.Model,
		Choices: choices,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// CreateChatCompletionStream implements ChatCompletionClient.CreateChatCompletionStream
func (c *OpenAIClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (<-chan StreamChunk, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, buildParams(req, messages))
	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)
		defer stream.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			cur := stream.Current()
			for _, choice := range cur.Choices {
				if choice.Index != 0 {
					continue
				}
				if !send(StreamChunk{
					ID:           cur.ID,
					Model:        cur.Model,
					Content:      choice.Delta.Content,
					FinishReason: string(choice.FinishReason),
				}) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			send(StreamChunk{Err: fmt.Errorf("chat completion stream failed: %w", err)})
		}
	}()

	return chunks, nil
}
