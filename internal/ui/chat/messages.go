// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/localchat/internal/ollama"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamTickMsg drives frame-capped rendering while a reply streams in.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg carries the full assistant reply after a clean stream.
type StreamCompleteMsg struct {
	Content string
}

// StreamErrorMsg reports a failed or cancelled stream. Partial output is
// discarded; no assistant turn is recorded.
type StreamErrorMsg struct {
	Err error
}

// =============================================================================
// SERVER MESSAGES
// =============================================================================

// ServerStatusMsg reports the result of a health check.
type ServerStatusMsg struct {
	Running bool
	Err     error
}

// ModelListMsg carries the locally available models from the server.
type ModelListMsg struct {
	Models []ollama.ModelInfo
	Err    error
}
