// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("Chat 1", "llama3.2", "You are a helpful AI assistant.")

	if conv.ID == "" {
		t.Error("expected generated ID")
	}
	if conv.Name != "Chat 1" {
		t.Errorf("Name = %q, want %q", conv.Name, "Chat 1")
	}
	if conv.Model != "llama3.2" {
		t.Errorf("Model = %q, want %q", conv.Model, "llama3.2")
	}
	if conv.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if conv.CreatedAt.Nanosecond() != 0 {
		t.Error("CreatedAt should be truncated to whole seconds")
	}
	if len(conv.Messages) != 0 {
		t.Errorf("new conversation should have no turns, got %d", len(conv.Messages))
	}
}

func TestNewConversation_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		conv := NewConversation("Chat", "m", "")
		if seen[conv.ID] {
			t.Fatalf("duplicate ID generated: %s", conv.ID)
		}
		seen[conv.ID] = true
	}
}

func TestConversation_AppendTurn(t *testing.T) {
	conv := NewConversation("Chat 1", "llama3.2", "")

	conv.AppendTurn(NewUserTurn("Hello"))
	conv.AppendTurn(NewAssistantTurn("Hi there!"))

	if conv.TurnCount() != 2 {
		t.Fatalf("TurnCount = %d, want 2", conv.TurnCount())
	}
	if conv.Messages[0].Role != RoleUser || conv.Messages[0].Content != "Hello" {
		t.Errorf("first turn = %+v", conv.Messages[0])
	}
	last := conv.LastTurn()
	if last == nil || last.Role != RoleAssistant {
		t.Errorf("LastTurn = %+v, want assistant turn", last)
	}
}

func TestConversation_IDNotSerialized(t *testing.T) {
	conv := NewConversation("Chat 1", "llama3.2", "")
	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), conv.ID) {
		t.Error("ID must not appear in the serialized record; the filename carries it")
	}
	for _, field := range []string{"name", "created_at", "model", "system_prompt", "messages"} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("serialized record missing field %q", field)
		}
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := NewConversation("Chat 1", "llama3.2", "")
	if conv.Preview(40) != "" {
		t.Error("empty conversation should have empty preview")
	}

	conv.AppendTurn(NewSystemTurn("instructions"))
	conv.AppendTurn(NewUserTurn("first\nline two"))
	conv.AppendTurn(NewUserTurn("second"))

	got := conv.Preview(40)
	if got != "first line two" {
		t.Errorf("Preview = %q, want %q", got, "first line two")
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation("Chat 1", "llama3.2", "")
	conv.AppendTurn(NewUserTurn("Hello"))

	clone := conv.Clone()
	clone.AppendTurn(NewAssistantTurn("Hi"))

	if conv.TurnCount() != 1 {
		t.Errorf("appending to clone mutated original: %d turns", conv.TurnCount())
	}
	if clone.TurnCount() != 2 {
		t.Errorf("clone TurnCount = %d, want 2", clone.TurnCount())
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() || !RoleSystem.Valid() {
		t.Error("standard roles should be valid")
	}
	if Role("tool").Valid() {
		t.Error("unknown role should not be valid")
	}
}
