// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/storage"
)

// ErrUnknownConversation is returned when an operation names an id that
// is not in the registry.
var ErrUnknownConversation = errors.New("unknown conversation")

// =============================================================================
// CONVERSATION MANAGER
// =============================================================================

// Defaults supplies the model and system prompt for new conversations.
type Defaults struct {
	Model        string
	SystemPrompt string
}

// Manager owns the conversation registry and the current selection.
// All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	store    *storage.Store
	defaults Defaults

	conversations map[string]*model.Conversation
	currentID     string
}

// NewManager loads every conversation from the store and selects one.
// If the store yields nothing, a default conversation is created before
// any interaction, so the registry is never empty.
func NewManager(store *storage.Store, defaults Defaults) (*Manager, error) {
	loaded, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	m := &Manager{
		store:         store,
		defaults:      defaults,
		conversations: loaded,
	}

	if len(m.conversations) == 0 {
		m.createLocked()
	} else {
		m.currentID = m.newestLocked().ID
	}

	return m, nil
}

// =============================================================================
// REGISTRY OPERATIONS
// =============================================================================

// Create makes a fresh conversation with the default model and system
// prompt, persists it, and selects it.
func (m *Manager) Create() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked()
}

// createLocked creates, registers, persists, and selects a conversation.
// Caller holds the lock.
func (m *Manager) createLocked() *model.Conversation {
	name := "Chat " + strconv.Itoa(len(m.conversations)+1)
	conv := model.NewConversation(name, m.defaults.Model, m.defaults.SystemPrompt)
	m.conversations[conv.ID] = conv
	m.currentID = conv.ID
	m.persistLocked(conv)
	return conv
}

// Select makes the named conversation current.
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	m.currentID = id
	return nil
}

// Current returns the currently selected conversation. The registry
// invariant guarantees this is never nil.
func (m *Manager) Current() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations[m.currentID]
}

// Get returns the conversation with the given id.
func (m *Manager) Get(id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return conv, nil
}

// List returns all conversations ordered oldest first, ties broken by
// name for a stable listing.
func (m *Manager) List() []*model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Count returns the number of registered conversations.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Rename changes a conversation's display name and persists it. An
// unchanged name is a no-op and does not touch disk.
func (m *Manager) Rename(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if conv.Name == name {
		return nil
	}
	conv.Name = name
	m.persistLocked(conv)
	return nil
}

// SetSystemPrompt updates a conversation's system prompt and persists it.
func (m *Manager) SetSystemPrompt(id, prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if conv.SystemPrompt == prompt {
		return nil
	}
	conv.SystemPrompt = prompt
	m.persistLocked(conv)
	return nil
}

// SetModel updates a conversation's model and persists it.
func (m *Manager) SetModel(id, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if conv.Model == modelName {
		return nil
	}
	conv.Model = modelName
	m.persistLocked(conv)
	return nil
}

// AppendTurn records one turn on a conversation and persists it. The
// in-memory state updates even when the write fails.
func (m *Manager) AppendTurn(id string, role model.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	conv.AppendTurn(model.Turn{Role: role, Content: content})
	m.persistLocked(conv)
	return nil
}

// Delete removes a conversation from the registry and from disk. When
// the current conversation is deleted, the newest remaining one is
// selected, or a fresh default is created so the registry stays
// non-empty.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}

	delete(m.conversations, id)
	if err := m.store.Delete(id); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to delete conversation file: %v\n", err)
	}

	if m.currentID == id {
		if len(m.conversations) == 0 {
			m.createLocked()
		} else {
			m.currentID = m.newestLocked().ID
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// newestLocked returns the most recently created conversation, ties
// broken by name. Caller holds the lock and guarantees non-empty.
func (m *Manager) newestLocked() *model.Conversation {
	var newest *model.Conversation
	for _, conv := range m.conversations {
		if newest == nil {
			newest = conv
			continue
		}
		if conv.CreatedAt.After(newest.CreatedAt) ||
			(conv.CreatedAt.Equal(newest.CreatedAt) && conv.Name > newest.Name) {
			newest = conv
		}
	}
	return newest
}

// persistLocked writes a conversation to disk, logging failures without
// failing the mutation. Caller holds the lock.
func (m *Manager) persistLocked(conv *model.Conversation) {
	if err := m.store.Save(conv); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save conversation %s: %v\n", conv.ID, err)
	}
}
