// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
)

// Update is the Bubble Tea update loop for the chat view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ServerStatusMsg:
		if !msg.Running {
			m.notice = "Inference server is not reachable. Replies will fail until it is running."
		}
		return m, nil

	case ModelListMsg:
		return m.handleModelList(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

// updateComponents forwards unhandled messages to the focused components.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	headerHeight := 2
	inputHeight := m.textarea.Height() + 2
	statusHeight := 1
	viewportHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
	m.textarea.SetWidth(msg.Width - 2)

	// Markdown wraps to the viewport, so the renderer follows the width.
	m.renderer = nil
	if m.cfg.UI.Markdown && msg.Width > 20 {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-4),
		); err == nil {
			m.renderer = r
		}
	}

	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// An error display is dismissed by any key.
	if m.state == StateError {
		m.state = StateIdle
		m.errText = ""
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancelStream != nil {
			m.cancelStream()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming && m.cancelStream != nil {
			m.cancelStream()
			// The stream command reports the cancellation.
			return m, nil
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		if m.state == StateStreaming {
			return m, nil
		}
		m.manager.Create()
		m.notice = ""
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.state == StateStreaming {
			return m, nil
		}
		return m.handleSubmit()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleSubmit dispatches the input: slash command or chat prompt.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" {
		return m, nil
	}
	m.textarea.Reset()
	m.notice = ""

	if strings.HasPrefix(content, "/") {
		return m.handleCommand(content)
	}
	return m.startStream(content)
}

// startStream records the user turn and kicks off the completion.
func (m Model) startStream(prompt string) (tea.Model, tea.Cmd) {
	conv := m.manager.Current()
	if err := m.manager.AppendTurn(conv.ID, model.RoleUser, prompt); err != nil {
		m.errText = err.Error()
		m.state = StateError
		return m, nil
	}

	m.state = StateStreaming
	m.partial = ""
	m.streamBuf.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel

	m.refreshViewport()
	return m, tea.Batch(
		m.spinner.Tick,
		streamTickCmd(),
		m.streamCmd(ctx, m.buildRequest()),
	)
}

// =============================================================================
// STREAMING
// =============================================================================

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if chunk, ok := m.streamBuf.Flush(); ok {
		m.partial += chunk
		m.refreshViewport()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	m.finishStream()

	conv := m.manager.Current()
	if err := m.manager.AppendTurn(conv.ID, model.RoleAssistant, msg.Content); err != nil {
		m.errText = err.Error()
		m.state = StateError
	}
	m.refreshViewport()
	return m, nil
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	m.finishStream()

	// Partial output is discarded on failure or cancellation; the user
	// turn stays recorded, the assistant turn does not.
	if errors.Is(msg.Err, context.Canceled) {
		m.notice = "Generation cancelled."
	} else {
		m.errText = describeStreamError(msg.Err)
		m.state = StateError
	}
	m.refreshViewport()
	return m, nil
}

// finishStream tears down per-stream state.
func (m *Model) finishStream() {
	m.state = StateIdle
	m.partial = ""
	m.streamBuf.Reset()
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
}

// describeStreamError maps client errors to user-facing text.
func describeStreamError(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Inference server is not running. Start it with 'ollama serve' or enable auto_start."
	case ollama.IsTimeout(err):
		return "Request timed out. The model may be loading; try again."
	default:
		return err.Error()
	}
}

// =============================================================================
// MODEL LIST
// =============================================================================

func (m Model) handleModelList(msg ModelListMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.errText = describeStreamError(msg.Err)
		m.state = StateError
		return m, nil
	}
	if len(msg.Models) == 0 {
		m.notice = "No models installed. Pull one with 'ollama pull <name>'."
		return m, nil
	}

	var sb strings.Builder
	sb.WriteString("Available models: ")
	for i, info := range msg.Models {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(info.Name)
	}
	m.notice = sb.String()
	return m, nil
}
