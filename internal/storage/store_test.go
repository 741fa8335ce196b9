// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/localchat/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestNewStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conversations")

	if _, err := NewStore(dir); err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("store directory was not created: %v", err)
	}
}

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation("Chat 1", "llama3.2", "You are a helpful AI assistant.")
	conv.AppendTurn(model.NewUserTurn("Hello"))
	conv.AppendTurn(model.NewAssistantTurn("Hi there!"))

	if err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != conv.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, conv.ID)
	}
	if loaded.Name != conv.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, conv.Name)
	}
	if !loaded.CreatedAt.Equal(conv.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, conv.CreatedAt)
	}
	if loaded.Model != conv.Model {
		t.Errorf("Model = %q, want %q", loaded.Model, conv.Model)
	}
	if loaded.SystemPrompt != conv.SystemPrompt {
		t.Errorf("SystemPrompt = %q, want %q", loaded.SystemPrompt, conv.SystemPrompt)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages count = %d, want 2", len(loaded.Messages))
	}
	for i, turn := range conv.Messages {
		if loaded.Messages[i] != turn {
			t.Errorf("turn %d = %+v, want %+v", i, loaded.Messages[i], turn)
		}
	}
}

func TestStore_Save_Overwrites(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation("Chat 1", "llama3.2", "")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	conv.Name = "renamed"
	conv.AppendTurn(model.NewUserTurn("Hello"))
	if err := store.Save(conv); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "renamed" {
		t.Errorf("Name = %q, want %q", loaded.Name, "renamed")
	}
	if len(loaded.Messages) != 1 {
		t.Errorf("Messages count = %d, want 1", len(loaded.Messages))
	}
}

func TestStore_Save_NoID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&model.Conversation{}); err == nil {
		t.Error("expected error saving a conversation without an id")
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_LoadAll_SkipsCorruptRecords(t *testing.T) {
	store := newTestStore(t)

	valid := model.NewConversation("Chat 1", "llama3.2", "")
	valid.AppendTurn(model.NewUserTurn("Hello"))
	if err := store.Save(valid); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A truncated record and a non-record file next to the valid one.
	corrupt := filepath.Join(store.Dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"name": "Chat 2", "mess`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	convs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll should not fail on corrupt records: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("LoadAll returned %d records, want 1", len(convs))
	}
	if _, ok := convs[valid.ID]; !ok {
		t.Error("valid record missing from LoadAll result")
	}
}

func TestStore_LoadAll_EmptyDir(t *testing.T) {
	store := newTestStore(t)

	convs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("LoadAll on empty dir = %d records, want 0", len(convs))
	}
}

func TestStore_LoadAll_MissingDir(t *testing.T) {
	store := newTestStore(t)
	os.RemoveAll(store.Dir)

	convs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on missing dir should not fail: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("LoadAll = %d records, want 0", len(convs))
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation("Chat 1", "llama3.2", "")
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Error("record should be gone after Delete")
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("deleting a nonexistent id should not error, got %v", err)
	}
}

func TestStore_MessageOrderPreserved(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation("Chat 1", "llama3.2", "")
	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		if i%2 == 0 {
			conv.AppendTurn(model.NewUserTurn(c))
		} else {
			conv.AppendTurn(model.NewAssistantTurn(c))
		}
	}
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, c := range contents {
		if loaded.Messages[i].Content != c {
			t.Errorf("turn %d content = %q, want %q", i, loaded.Messages[i].Content, c)
		}
	}
}
