// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a locally hosted Ollama-style
// inference API, including the streaming completion protocol handler.
//
// The server streams its response as newline-delimited JSON: one object per
// line, each carrying a text delta and, on the final line, a "done" flag.
// Two endpoint shapes are supported and selected by configuration:
//
//   - ShapeChat (/api/chat): the delta lives at message.content
//   - ShapeGenerate (/api/generate): the delta lives at response
//
// Lines that fail JSON parsing are not treated as errors: after stripping
// an optional "data: " event-stream prefix the remainder is emitted
// verbatim, so intermixed or malformed stream formats degrade gracefully
// instead of aborting the whole response.
package ollama
