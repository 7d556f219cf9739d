// SPDX-License-Identifier: MIT
package openrouter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer provides a configurable OpenRouter mock for testing.
type MockServer struct {
	*httptest.Server
	mu sync.Mutex

	// content returned for the next completions, consumed in order; when
	// exhausted the defaultContent is served.
	queued         []string
	defaultContent string

	// failures is the number of 500 responses to serve before succeeding.
	failures int
	// status forces a fixed non-200 status for every request when non-zero.
	status int
	// delay is applied before answering.
	delay time.Duration

	// Requests records every decoded completion request for assertions.
	Requests []ChatRequest

	models []string
	usage  Usage
}

// NewMockServer creates a mock with sane defaults.
func NewMockServer() *MockServer {
	mock := &MockServer{
		defaultContent: "42",
		models:         []string{"google/gemini-2.5-flash-lite", "google/gemini-2.5-pro"},
		usage:          Usage{PromptTokens: 100, CompletionTokens: 5, TotalTokens: 105},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(chatCompletionsPath, mock.handleCompletions)
	mux.HandleFunc(modelsPath, mock.handleModels)
	mock.Server = httptest.NewServer(mux)
	return mock
}

// QueueContent appends completion contents served in FIFO order.
func (m *MockServer) QueueContent(contents ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, contents...)
}

// SetDefaultContent sets the content served once the queue is drained.
func (m *MockServer) SetDefaultContent(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultContent = content
}

// FailNext makes the next n completion requests return HTTP 500.
func (m *MockServer) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// SetStatus forces a fixed status code for all requests (0 restores normal).
func (m *MockServer) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// SetDelay adds an artificial delay before responses.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// RequestCount returns the number of completion requests received.
func (m *MockServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockServer) handleCompletions(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.Requests = append(m.Requests, req)

	if m.status != 0 {
		http.Error(w, http.StatusText(m.status), m.status)
		return
	}
	if m.failures > 0 {
		m.failures--
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	content := m.defaultContent
	if len(m.queued) > 0 {
		content = m.queued[0]
		m.queued = m.queued[1:]
	}

	resp := ChatResponse{
		ID:    "gen-mock",
		Model: req.Model,
		Choices: []Choice{{
			Message:      ResponseMessage{Role: "assistant", Content: ResponseContent(content)},
			FinishReason: "stop",
		}},
		Usage: m.usage,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *MockServer) handleModels(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != 0 {
		http.Error(w, http.StatusText(m.status), m.status)
		return
	}

	type model struct {
		ID string `json:"id"`
	}
	models := make([]model, 0, len(m.models))
	for _, id := range m.models {
		models = append(models, model{ID: id})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": models})
}
