// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// ErrNotFound is returned when a conversation record does not exist.
var ErrNotFound = errors.New("conversation not found")

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations as one JSON file per conversation, addressed
// by id. Storage failures are reported but are meant to be tolerated by the
// caller: the in-memory registry stays authoritative and a later save will
// overwrite whatever is on disk.
type Store struct {
	// Dir is the directory holding the conversation files.
	Dir string
}

// NewStore creates a store rooted at dir, creating the directory if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save serializes the full conversation record to <dir>/<id>.json,
// atomically replacing any prior version.
func (s *Store) Save(conv *model.Conversation) error {
	if conv.ID == "" {
		return errors.New("conversation has no id")
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}

	return util.AtomicWriteFile(s.filePath(conv.ID), data, 0644)
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads a single conversation by id.
func (s *Store) Load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	conv.ID = id
	if conv.Messages == nil {
		conv.Messages = make([]model.Turn, 0)
	}
	return &conv, nil
}

// LoadAll reads every stored record and returns a mapping from id to
// conversation. Corrupted or unreadable files are skipped so one bad
// record never poisons the whole load.
func (s *Store) LoadAll() (map[string]*model.Conversation, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*model.Conversation{}, nil
		}
		return nil, err
	}

	convs := make(map[string]*model.Conversation)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		conv, err := s.Load(id)
		if err != nil {
			// Corrupt or unreadable record: skip, keep loading the rest.
			continue
		}
		convs[id] = conv
	}

	return convs, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes the record for the given id. Deleting a nonexistent id is
// not an error; a stale file that survives a failed delete is simply
// overwritten on the next save or skipped on the next load.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// filePath returns the file path for a conversation id.
func (s *Store) filePath(id string) string {
	return filepath.Join(s.Dir, id+".json")
}
