// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import "time"

// Model describes a model the gateway routes to.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"` // always "model"
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`

	Description string `json:"description,omitempty"`
}

// ListModelsResponse represents a list of models
type ListModelsResponse struct {
	Object string  `json:"object"` // always "list"
	Data   []Model `json:"data"`
}

// ModelsService reports the configured chat and vision models.
type ModelsService struct {
	opts    ChatOptions
	created int64
}

// NewModelsService creates a models service for the configured models.
func NewModelsService(opts ChatOptions) *ModelsService {
	return &ModelsService{opts: opts, created: time.Now().Unix()}
}

// ListModels returns the text model first, then the vision model when it
// differs.
func (s *ModelsService) ListModels() *ListModelsResponse {
	resp := &ListModelsResponse{Object: "list", Data: []Model{}}
	if s.opts.Model != "" {
		resp.Data = append(resp.Data, Model{
			ID:          s.opts.Model,
			Object:      "model",
			Created:     s.created,
			OwnedBy:     "groq",
			Description: "Text chat model",
		})
	}
	if s.opts.VisionModel != "" && s.opts.VisionModel != s.opts.Model {
		resp.Data = append(resp.Data, Model{
			ID:          s.opts.VisionModel,
			Object:      "model",
			Created:     s.created,
			OwnedBy:     "groq",
			Description: "Used when a message carries an image",
		})
	}
	return resp
}
