// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    Args
		wantErr bool
	}{
		{
			name: "no args",
			raw:  nil,
			want: Args{},
		},
		{
			name: "plain flag",
			raw:  []string{"--plain"},
			want: Args{Plain: true},
		},
		{
			name: "short plain flag",
			raw:  []string{"-p"},
			want: Args{Plain: true},
		},
		{
			name: "model with space",
			raw:  []string{"--model", "mistral"},
			want: Args{Model: "mistral"},
		},
		{
			name: "model with equals",
			raw:  []string{"--model=mistral"},
			want: Args{Model: "mistral"},
		},
		{
			name: "short model flag",
			raw:  []string{"-m", "qwen2.5:7b"},
			want: Args{Model: "qwen2.5:7b"},
		},
		{
			name: "server and dir",
			raw:  []string{"--server", "http://127.0.0.1:11434", "--dir", "/tmp/chats"},
			want: Args{Server: "http://127.0.0.1:11434", Dir: "/tmp/chats"},
		},
		{
			name: "config path",
			raw:  []string{"--config=/tmp/localchat.toml"},
			want: Args{ConfigPath: "/tmp/localchat.toml"},
		},
		{
			name: "version and help",
			raw:  []string{"--version", "--help"},
			want: Args{Version: true, Help: true},
		},
		{
			name:    "model missing value",
			raw:     []string{"--model"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			raw:     []string{"--verbose"},
			wantErr: true,
		},
		{
			name:    "positional argument rejected",
			raw:     []string{"chat"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
