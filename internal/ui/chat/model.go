// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// State represents the chat view's interaction state.
type State int

const (
	// StateIdle - ready for input
	StateIdle State = iota
	// StateStreaming - a reply is streaming in
	StateStreaming
	// StateError - an error is displayed until dismissed
	StateError
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap

	manager *session.Manager
	client  *ollama.Client
	cfg     *config.Config

	// Components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Streaming state
	state        State
	streamBuf    *StreamingBuffer
	partial      string
	cancelStream context.CancelFunc

	// Transient UI state
	errText string
	notice  string

	// Markdown rendering (nil when disabled or unavailable)
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool
}

// New creates the chat view model.
func New(theme *styles.Theme, manager *session.Manager, client *ollama.Client, cfg *config.Config) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or /help for commands"
	ta.Prompt = "| "
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		theme:     theme,
		keys:      DefaultKeyMap(),
		manager:   manager,
		client:    client,
		cfg:       cfg,
		textarea:  ta,
		spinner:   sp,
		state:     StateIdle,
		streamBuf: NewStreamingBuffer(),
	}
}

// Init starts the view with a server health check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, checkServerCmd(m.client))
}

// checkServerCmd performs a background health check.
func checkServerCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), client.Config().Timeout)
		defer cancel()
		err := client.CheckRunning(ctx)
		return ServerStatusMsg{Running: err == nil, Err: err}
	}
}

// listModelsCmd fetches the available models in the background.
func listModelsCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), client.Config().Timeout)
		defer cancel()
		models, err := client.ListModels(ctx)
		return ModelListMsg{Models: models, Err: err}
	}
}

// streamCmd runs one completion and reports the outcome as a single
// message. Fragments land in the streaming buffer as they arrive; the
// tick loop moves them into the view.
func (m Model) streamCmd(ctx context.Context, req ollama.CompletionRequest) tea.Cmd {
	buf := m.streamBuf
	client := m.client
	return func() tea.Msg {
		full, err := client.StreamCompletion(ctx, req, func(f ollama.Fragment) {
			if !f.Done {
				buf.Write(f.Text)
			}
		})
		if err != nil {
			return StreamErrorMsg{Err: err}
		}
		return StreamCompleteMsg{Content: full}
	}
}

// buildRequest assembles the completion request for the current
// conversation, whose history already ends with the user's turn.
func (m Model) buildRequest() ollama.CompletionRequest {
	conv := m.manager.Current()

	history := make([]ollama.Message, 0, len(conv.Messages))
	for _, turn := range conv.Messages {
		history = append(history, ollama.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	return ollama.CompletionRequest{
		Model:        conv.Model,
		SystemPrompt: conv.SystemPrompt,
		History:      history,
		Temperature:  m.cfg.Chat.Temperature,
		MaxTokens:    m.cfg.Chat.MaxTokens,
		Shape:        ollama.Shape(m.cfg.Server.Shape),
	}
}
