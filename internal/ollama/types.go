// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

// =============================================================================
// ENDPOINT SHAPES
// =============================================================================

// Shape selects which endpoint the client targets and, with it, the decode
// schema for stream chunks. The shape comes from configuration; the decoder
// never probes field names at runtime.
type Shape string

const (
	// ShapeChat targets /api/chat; deltas arrive at message.content.
	ShapeChat Shape = "chat"

	// ShapeGenerate targets /api/generate; deltas arrive at response.
	ShapeGenerate Shape = "generate"
)

// Valid reports whether the shape is one of the supported values.
func (s Shape) Valid() bool {
	return s == ShapeChat || s == ShapeGenerate
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the request history.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Options carries the sampling parameters for a completion.
type Options struct {
	// Temperature controls sampling randomness, 0.0-1.0.
	Temperature float64 `json:"temperature"`
	// MaxTokens caps the generation length, 10-500.
	MaxTokens int `json:"max_tokens"`
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// chatChunk is one streamed line from /api/chat.
type chatChunk struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// generateChunk is one streamed line from /api/generate.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// serverError is the error body the server returns on non-2xx responses.
type serverError struct {
	Error string `json:"error"`
}

// ModelInfo describes one locally available model, from /api/tags.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// listModelsResponse is the response from the /api/tags endpoint.
type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Fragment is one incremental piece of assistant-generated text. The final
// fragment of a stream has Done set and an empty Text.
type Fragment struct {
	Text string
	Done bool
}

// FragmentFunc is called for each fragment, in the exact order the
// transport delivered the underlying chunks.
type FragmentFunc func(Fragment)

// CompletionRequest describes one streaming completion.
type CompletionRequest struct {
	// Model is the target inference model.
	Model string

	// SystemPrompt, when non-empty, is logically prepended to the history:
	// as a leading system message for ShapeChat, or folded into the prompt
	// text for ShapeGenerate.
	SystemPrompt string

	// History is the ordered turn sequence so far, ending with the user
	// turn being answered.
	History []Message

	// Sampling parameters for this request.
	Temperature float64
	MaxTokens   int

	// Shape selects the endpoint and decode schema.
	Shape Shape
}
