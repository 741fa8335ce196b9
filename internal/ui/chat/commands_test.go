// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantName string
		wantArg  string
		wantOK   bool
	}{
		{"bare command", "/help", "help", "", true},
		{"command with arg", "/rename My Chat", "rename", "My Chat", true},
		{"arg keeps internal spaces", "/system You are terse. Be brief.", "system", "You are terse. Be brief.", true},
		{"uppercase normalized", "/HELP", "help", "", true},
		{"surrounding whitespace", "  /model llama3.2  ", "model", "llama3.2", true},
		{"not a command", "hello there", "", "", false},
		{"lone slash", "/", "", "", false},
		{"empty line", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, arg, ok := ParseCommand(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if arg != tt.wantArg {
				t.Errorf("arg = %q, want %q", arg, tt.wantArg)
			}
		})
	}
}
