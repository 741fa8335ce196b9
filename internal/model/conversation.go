// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and settings.
//
// The ID doubles as the storage key (one file per conversation, named by id)
// and is therefore not part of the serialized record. Identity is always by
// id, never by name: duplicate names are allowed.
type Conversation struct {
	// Identity. Assigned once at creation, stable for the conversation's
	// lifetime, excluded from the on-disk record.
	ID string `json:"-"`

	// Mutable, human-readable label. Defaults to an ordinal ("Chat N").
	Name string `json:"name"`

	// Set once at creation, immutable. Stored at second precision.
	CreatedAt time.Time `json:"created_at"`

	// Target inference model, fixed per conversation at creation.
	Model string `json:"model"`

	// Instruction prefix prepended when building requests. May be empty.
	SystemPrompt string `json:"system_prompt"`

	// Ordered, append-only turn history.
	Messages []Turn `json:"messages"`
}

// NewConversation creates a conversation with a generated id and the given
// settings. The creation timestamp is truncated to whole seconds so it
// round-trips through the second-precision on-disk format unchanged.
func NewConversation(name, model, systemPrompt string) *Conversation {
	return &Conversation{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     make([]Turn, 0),
	}
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// AppendTurn adds a turn to the end of the history.
func (c *Conversation) AppendTurn(t Turn) {
	c.Messages = append(c.Messages, t)
}

// LastTurn returns the most recent turn, or nil when the history is empty.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// TurnCount returns the number of turns in the conversation.
func (c *Conversation) TurnCount() int {
	return len(c.Messages)
}

// Preview returns a single-line excerpt of the first user turn, suitable
// for conversation lists. Empty when no user turn exists yet.
func (c *Conversation) Preview(maxWidth int) string {
	for _, t := range c.Messages {
		if t.Role == RoleUser && t.Content != "" {
			return util.TruncateWidth(util.Flatten(t.Content), maxWidth)
		}
	}
	return ""
}

// Clone returns a deep copy of the conversation. The turn slice is copied
// so appends to the clone never leak into the original.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Turn, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}
