// SPDX-License-Identifier: MIT

package openrouter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"` // "text", "image_url" or "file"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
	File     *FileData `json:"file,omitempty"`
}

// ImageURL references a remotely hosted image.
type ImageURL struct {
	URL string `json:"url"`
}

// FileData carries an inline document as a data URL.
type FileData struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// TextPart builds a plain text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image-URL content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// PDFPart builds a file content part from base64-encoded PDF bytes.
func PDFPart(filename, base64Data string) ContentPart {
	return ContentPart{
		Type: "file",
		File: &FileData{
			Filename: filename,
			FileData: "data:application/pdf;base64," + base64Data,
		},
	}
}

// Message is a chat message with multimodal content.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// UserMessage builds a user-role message from content parts.
func UserMessage(parts ...ContentPart) Message {
	return Message{Role: "user", Content: parts}
}

// Plugin activates an OpenRouter request plugin.
type Plugin struct {
	ID  string      `json:"id"`
	PDF *PDFOptions `json:"pdf,omitempty"`
}

// PDFOptions selects the parsing engine for PDF file parts.
type PDFOptions struct {
	Engine string `json:"engine"` // "pdf-text", "mistral-ocr" or "native"
}

// PDFTextPlugin selects the free text-layer PDF engine.
func PDFTextPlugin() Plugin {
	return Plugin{ID: "file-parser", PDF: &PDFOptions{Engine: "pdf-text"}}
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Plugins  []Plugin  `json:"plugins,omitempty"`
}

// ResponseContent decodes the assistant content, which the API returns either
// as a plain string or as a list of typed parts depending on the model.
type ResponseContent string

// UnmarshalJSON accepts both content encodings.
func (rc *ResponseContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*rc = ResponseContent(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither string nor part list: %w", err)
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	*rc = ResponseContent(strings.Join(texts, "\n"))
	return nil
}

// ResponseMessage is the assistant message inside a choice.
type ResponseMessage struct {
	Role    string          `json:"role"`
	Content ResponseContent `json:"content"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the chat-completions response body.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// FirstContent returns the content of the first choice.
func (r *ChatResponse) FirstContent() (string, error) {
	if len(r.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return string(r.Choices[0].Message.Content), nil
}
