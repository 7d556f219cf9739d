// SPDX-License-Identifier: MIT
package openrouter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseContentString(t *testing.T) {
	var msg ResponseMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"1234"}`), &msg))
	assert.Equal(t, "1234", string(msg.Content))
}

func TestResponseContentParts(t *testing.T) {
	raw := `{"role":"assistant","content":[{"type":"text","text":"2020, 4521"},{"type":"text","text":"2021, 4999"}]}`
	var msg ResponseMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, "2020, 4521\n2021, 4999", string(msg.Content))
}

func TestResponseContentInvalid(t *testing.T) {
	var rc ResponseContent
	assert.Error(t, json.Unmarshal([]byte(`{"bogus":true}`), &rc))
}

func TestFirstContentEmpty(t *testing.T) {
	resp := &ChatResponse{}
	_, err := resp.FirstContent()
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestPDFPartDataURL(t *testing.T) {
	part := PDFPart("2020-annual-report.pdf", "aGVsbG8=")
	assert.Equal(t, "file", part.Type)
	require.NotNil(t, part.File)
	assert.Equal(t, "2020-annual-report.pdf", part.File.Filename)
	assert.Equal(t, "data:application/pdf;base64,aGVsbG8=", part.File.FileData)
}

func TestChatRequestEncoding(t *testing.T) {
	req := ChatRequest{
		Model:    "google/gemini-2.5-flash-lite",
		Messages: []Message{UserMessage(TextPart("hello"), ImagePart("https://example.org/chart.png"))},
		Plugins:  []Plugin{PDFTextPlugin()},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	plugins, ok := decoded["plugins"].([]any)
	require.True(t, ok)
	require.Len(t, plugins, 1)
	plugin := plugins[0].(map[string]any)
	assert.Equal(t, "file-parser", plugin["id"])
	pdf := plugin["pdf"].(map[string]any)
	assert.Equal(t, "pdf-text", pdf["engine"])
}
