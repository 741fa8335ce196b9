// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient points a client at a test server with short timeouts.
func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		RequestTimeout: 2 * time.Second,
	})
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning() error = %v", err)
	}
}

func TestCheckRunningServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)
	err := client.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("CheckRunning() error = %v, want not-running", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.2", "size": 2019393189},
				{"name": "mistral", "size": 4109865159},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "llama3.2" {
		t.Errorf("models[0].Name = %q, want llama3.2", models[0].Name)
	}
}

// streamHandler writes the given lines as an NDJSON response body.
func streamHandler(t *testing.T, wantPath string, lines ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func TestStreamCompletionChat(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, "/api/chat",
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	))
	defer srv.Close()

	client := newTestClient(srv.URL)

	var texts []string
	full, err := client.StreamCompletion(context.Background(), CompletionRequest{
		Model:   "llama3.2",
		History: []Message{{Role: "user", Content: "hi"}},
		Shape:   ShapeChat,
	}, func(f Fragment) {
		if !f.Done {
			texts = append(texts, f.Text)
		}
	})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}
	if full != "Hello" {
		t.Errorf("full = %q, want %q", full, "Hello")
	}
	if len(texts) != 2 || texts[0] != "Hel" || texts[1] != "lo" {
		t.Errorf("texts = %v, want [Hel lo]", texts)
	}
}

func TestStreamCompletionGenerate(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, "/api/generate",
		`{"response":"wor","done":false}`,
		`{"response":"ld","done":false}`,
		`{"response":"","done":true}`,
	))
	defer srv.Close()

	client := newTestClient(srv.URL)
	full, err := client.StreamCompletion(context.Background(), CompletionRequest{
		History: []Message{{Role: "user", Content: "hi"}},
		Shape:   ShapeGenerate,
	}, func(Fragment) {})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}
	if full != "world" {
		t.Errorf("full = %q, want %q", full, "world")
	}
}

func TestStreamCompletionChatRequestBody(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.StreamCompletion(context.Background(), CompletionRequest{
		Model:        "llama3.2",
		SystemPrompt: "You are a helpful AI assistant.",
		History: []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
		Temperature: 0.7,
		MaxTokens:   200,
		Shape:       ShapeChat,
	}, func(Fragment) {})
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}

	if !got.Stream {
		t.Error("Stream = false, want true")
	}
	if len(got.Messages) != 4 {
		t.Fatalf("got %d messages, want 4 (system + history)", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "You are a helpful AI assistant." {
		t.Errorf("leading message = %+v, want system prompt", got.Messages[0])
	}
	if got.Messages[3].Content != "second" {
		t.Errorf("last message = %+v, want trailing user turn", got.Messages[3])
	}
	if got.Options == nil {
		t.Fatal("Options = nil")
	}
	if got.Options.Temperature != 0.7 || got.Options.MaxTokens != 200 {
		t.Errorf("Options = %+v, want temperature 0.7, max_tokens 200", got.Options)
	}
}

func TestStreamCompletionErrorStatusDeliversNoFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model crashed"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.StreamCompletion(context.Background(), CompletionRequest{
		History: []Message{{Role: "user", Content: "hi"}},
	}, func(f Fragment) {
		t.Errorf("unexpected fragment on error status: %+v", f)
	})
	if err == nil {
		t.Fatal("StreamCompletion() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("error = %v, want server error message", err)
	}
}

func TestStreamCompletionModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.StreamCompletion(context.Background(), CompletionRequest{
		Model:   "no-such-model",
		History: []Message{{Role: "user", Content: "hi"}},
	}, func(Fragment) {})

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeModelNotFound {
		t.Errorf("error = %v, want model-not-found", err)
	}
}

func TestStreamCompletionConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.StreamCompletion(context.Background(), CompletionRequest{
		History: []Message{{Role: "user", Content: "hi"}},
	}, func(f Fragment) {
		t.Errorf("unexpected fragment on refused connection: %+v", f)
	})
	if !IsNotRunning(err) {
		t.Errorf("error = %v, want not-running", err)
	}
}

func TestStreamCompletionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the request body so the server observes the client
		// abort; otherwise srv.Close hangs on the open connection.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 50 * time.Millisecond,
	})
	_, err := client.StreamCompletion(context.Background(), CompletionRequest{
		History: []Message{{Role: "user", Content: "hi"}},
	}, func(Fragment) {})
	if !IsTimeout(err) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestStreamCompletionCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"chunk"},"done":false}`)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	client := newTestClient(srv.URL)
	_, err := client.StreamCompletion(ctx, CompletionRequest{
		History: []Message{{Role: "user", Content: "hi"}},
	}, func(Fragment) {})
	if err == nil {
		t.Fatal("StreamCompletion() error = nil, want cancellation error")
	}
}

func TestFlattenHistory(t *testing.T) {
	got := flattenHistory([]Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
		{Role: "user", Content: "how are you"},
	})
	want := "User: hello\n\nAssistant: hi there\n\nUser: how are you"
	if got != want {
		t.Errorf("flattenHistory() = %q, want %q", got, want)
	}
}

func TestNewClientWithConfigDefaults(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test/"})
	cfg := client.Config()
	if cfg.BaseURL != "http://example.test" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v, want 60s", cfg.RequestTimeout)
	}
	if cfg.DefaultModel != "llama3.2" {
		t.Errorf("DefaultModel = %q, want llama3.2", cfg.DefaultModel)
	}
}
