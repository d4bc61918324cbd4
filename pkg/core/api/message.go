// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

// Message roles accepted from clients.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role         string               `json:"role"`
	Content      string               `json:"content"`
	ContentParts []MessageContentPart `json:"content_parts,omitempty"` // takes precedence over Content when non-empty
}

// MessageContentPart represents a content part in a multimodal message.
type MessageContentPart struct {
	Type     string           `json:"type"` // "text" or "image_url"
	Text     string           `json:"text,omitempty"`
	ImageURL *MessageImageURL `json:"image_url,omitempty"`
}

// MessageImageURL represents an image URL in a content part.
type MessageImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // "auto", "low", "high"
}

// TextPart builds a text content part.
func TextPart(text string) MessageContentPart {
	return MessageContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a URL or data URL.
func ImagePart(url string) MessageContentPart {
	return MessageContentPart{Type: "image_url", ImageURL: &MessageImageURL{URL: url}}
}

// PlainText returns the message text, joining text parts when the message
// is multimodal.
func (m Message) PlainText() string {
	if len(m.ContentParts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.ContentParts {
		if p.Type == "text" {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}
