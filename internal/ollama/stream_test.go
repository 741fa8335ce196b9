// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"strings"
	"testing"
)

func TestDecodeChunkChatShape(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantKind ChunkKind
		wantText string
		wantDone bool
	}{
		{
			name:     "content delta",
			line:     `{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			wantKind: ChunkParsed,
			wantText: "Hel",
		},
		{
			name:     "done flag with empty content",
			line:     `{"message":{"role":"assistant","content":""},"done":true}`,
			wantKind: ChunkEmpty,
			wantDone: true,
		},
		{
			name:     "done flag with trailing content",
			line:     `{"message":{"role":"assistant","content":"!"},"done":true}`,
			wantKind: ChunkParsed,
			wantText: "!",
			wantDone: true,
		},
		{
			name:     "blank line",
			line:     "   \n",
			wantKind: ChunkEmpty,
		},
		{
			name:     "malformed json falls back to raw",
			line:     "not json at all",
			wantKind: ChunkRawFallback,
			wantText: "not json at all",
		},
		{
			name:     "event stream prefix stripped on fallback",
			line:     "data: raw-fallback-text",
			wantKind: ChunkRawFallback,
			wantText: "raw-fallback-text",
		},
		{
			name:     "unknown fields ignored",
			line:     `{"message":{"content":"ok"},"done":false,"total_duration":12345}`,
			wantKind: ChunkParsed,
			wantText: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeChunk([]byte(tt.line), ShapeChat)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Done != tt.wantDone {
				t.Errorf("Done = %v, want %v", got.Done, tt.wantDone)
			}
		})
	}
}

func TestDecodeChunkGenerateShape(t *testing.T) {
	got := DecodeChunk([]byte(`{"response":"wor","done":false}`), ShapeGenerate)
	if got.Kind != ChunkParsed || got.Text != "wor" {
		t.Errorf("got %+v, want parsed chunk with text %q", got, "wor")
	}

	got = DecodeChunk([]byte(`{"response":"","done":true}`), ShapeGenerate)
	if got.Kind != ChunkEmpty || !got.Done {
		t.Errorf("got %+v, want empty done chunk", got)
	}

	// A chat-shaped line decoded under the generate shape parses fine but
	// yields no text. The shape is fixed by configuration, not probed.
	got = DecodeChunk([]byte(`{"message":{"content":"hi"},"done":false}`), ShapeGenerate)
	if got.Kind != ChunkEmpty {
		t.Errorf("got %+v, want empty chunk for foreign schema", got)
	}
}

func TestStreamReaderReassemblesFragments(t *testing.T) {
	body := strings.Join([]string{
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}, "\n") + "\n"

	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	var fragments []Fragment
	err := reader.Process(context.Background(), func(f Fragment) {
		fragments = append(fragments, f)
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if reader.Accumulated() != "Hello" {
		t.Errorf("Accumulated() = %q, want %q", reader.Accumulated(), "Hello")
	}
	if len(fragments) != 3 {
		t.Fatalf("got %d fragments, want 3", len(fragments))
	}
	if fragments[0].Text != "Hel" || fragments[1].Text != "lo" {
		t.Errorf("fragment texts = %q, %q, want %q, %q",
			fragments[0].Text, fragments[1].Text, "Hel", "lo")
	}
	if !fragments[2].Done || fragments[2].Text != "" {
		t.Errorf("final fragment = %+v, want done marker", fragments[2])
	}
}

func TestStreamReaderEmptyDeltasProduceNoFragments(t *testing.T) {
	body := strings.Join([]string{
		`{"message":{"content":""},"done":false}`,
		`{"message":{"content":"a"},"done":false}`,
		``,
		`{"message":{"content":""},"done":true}`,
	}, "\n") + "\n"

	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	var texts []string
	err := reader.Process(context.Background(), func(f Fragment) {
		if !f.Done {
			texts = append(texts, f.Text)
		}
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(texts) != 1 || texts[0] != "a" {
		t.Errorf("texts = %v, want exactly [a]", texts)
	}
}

func TestStreamReaderEOFCompletesStream(t *testing.T) {
	// Transport closed without a done chunk; stream ends as a completion.
	body := `{"message":{"content":"partial"},"done":false}` + "\n"

	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	var sawDone bool
	err := reader.Process(context.Background(), func(f Fragment) {
		if f.Done {
			sawDone = true
		}
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !sawDone {
		t.Error("expected a final done fragment at EOF")
	}
	if reader.Accumulated() != "partial" {
		t.Errorf("Accumulated() = %q, want %q", reader.Accumulated(), "partial")
	}
}

func TestStreamReaderRawFallbackAccumulates(t *testing.T) {
	body := "data: raw-fallback-text\n" +
		`{"message":{"content":""},"done":true}` + "\n"

	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	var texts []string
	err := reader.Process(context.Background(), func(f Fragment) {
		if !f.Done {
			texts = append(texts, f.Text)
		}
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(texts) != 1 || texts[0] != "raw-fallback-text" {
		t.Errorf("texts = %v, want [raw-fallback-text]", texts)
	}
	if reader.Accumulated() != "raw-fallback-text" {
		t.Errorf("Accumulated() = %q", reader.Accumulated())
	}
}

func TestStreamReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := `{"message":{"content":"never"},"done":false}` + "\n"
	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	err := reader.Process(ctx, func(f Fragment) {
		t.Errorf("unexpected fragment after cancellation: %+v", f)
	})
	if err != context.Canceled {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}

func TestStreamReaderStopsAtDoneFlag(t *testing.T) {
	// Lines after the done chunk must not be decoded.
	body := strings.Join([]string{
		`{"message":{"content":"end"},"done":true}`,
		`{"message":{"content":"late"},"done":false}`,
	}, "\n") + "\n"

	reader := NewStreamReader(strings.NewReader(body), ShapeChat)

	err := reader.Process(context.Background(), func(Fragment) {})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if reader.Accumulated() != "end" {
		t.Errorf("Accumulated() = %q, want %q", reader.Accumulated(), "end")
	}
}
