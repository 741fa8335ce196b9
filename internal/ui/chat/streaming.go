// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches fragments for flicker-free rendering. Fragments
// arrive from the streaming goroutine and are flushed into the view from
// the Bubble Tea loop, either when a batch fills or a frame interval
// passes. Without batching a fast stream repaints the viewport per token.
type StreamingBuffer struct {
	mu            sync.Mutex
	buffer        strings.Builder
	fragmentCount int
	lastFlush     time.Time

	batchSize int
	minFlush  time.Duration
}

const (
	defaultBatchSize = 15
	// ~30fps keeps the stream smooth without burning CPU on repaints.
	defaultFlushInterval = 33 * time.Millisecond
)

// NewStreamingBuffer creates a streaming buffer with default settings.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		minFlush:  defaultFlushInterval,
		lastFlush: time.Now(),
	}
}

// Write adds a fragment to the buffer. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(fragment string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(fragment)
	sb.fragmentCount++
}

// Flush returns accumulated content when a flush threshold has been
// reached. Called from the Bubble Tea loop on each stream tick.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.fragmentCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush immediately returns all buffered content regardless of
// thresholds. Used when a stream completes.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset clears the buffer without flushing. Used when cancelling a
// stream or starting a new one.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.fragmentCount = 0
	sb.lastFlush = time.Now()
}

// drainLocked extracts the content and resets state. Caller holds the lock.
func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.fragmentCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAM TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next render flush while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(defaultFlushInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
