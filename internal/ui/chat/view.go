// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the full chat interface.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.viewport.View())

	if m.state == StateStreaming {
		sections = append(sections, m.theme.ThinkingText.Render(m.spinner.View()+" Thinking... (Esc to cancel)"))
	}
	if m.state == StateError && m.errText != "" {
		sections = append(sections, m.renderError())
	}
	if m.notice != "" {
		sections = append(sections, m.theme.SystemNote.Render(m.notice))
	}

	sections = append(sections, m.theme.InputContainer.Render(m.textarea.View()))
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader draws the conversation title line.
func (m Model) renderHeader() string {
	conv := m.manager.Current()
	title := m.theme.HeaderTitle.Render(conv.Name)
	subtitle := m.theme.HeaderSubtitle.Render(fmt.Sprintf("  %s · %d turns", conv.Model, conv.TurnCount()))
	return m.theme.Header.Render(title + subtitle)
}

// renderError draws the dismissable error box.
func (m Model) renderError() string {
	return m.theme.ErrorBox.Render(
		m.theme.ErrorTitle.Render("Error") + "\n" +
			m.theme.ErrorMessage.Render(m.errText) + "\n" +
			m.theme.ErrorMessage.Render("Press any key to dismiss."),
	)
}

// renderStatusBar draws the bottom bar with context and shortcuts.
func (m Model) renderStatusBar() string {
	conv := m.manager.Current()

	left := m.theme.StatusModel.Render(conv.Model) +
		m.theme.StatusChat.Render(fmt.Sprintf(" · %d/%d chats", m.conversationIndex()+1, m.manager.Count()))

	var help strings.Builder
	for i, b := range m.keys.ShortHelp() {
		if i > 0 {
			help.WriteString("  ")
		}
		help.WriteString(m.theme.ShortcutKey.Render(b.Help().Key))
		help.WriteString(" ")
		help.WriteString(m.theme.ShortcutDesc.Render(b.Help().Desc))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help.String()) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + help.String())
}

// conversationIndex returns the position of the current conversation in
// the ordered listing.
func (m Model) conversationIndex() int {
	cur := m.manager.Current()
	for i, conv := range m.manager.List() {
		if conv.ID == cur.ID {
			return i
		}
	}
	return 0
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport re-renders the transcript into the viewport and scrolls
// to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// renderTranscript renders the conversation history plus any in-flight
// partial reply.
func (m Model) renderTranscript() string {
	conv := m.manager.Current()

	var sb strings.Builder
	for _, turn := range conv.Messages {
		switch turn.Role.String() {
		case "user":
			sb.WriteString(m.theme.UserLabel.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(m.theme.UserMessage.Render(turn.Content))
		case "assistant":
			sb.WriteString(m.theme.AssistantLabel.Render("Assistant"))
			sb.WriteString("\n")
			sb.WriteString(m.renderAssistantText(turn.Content))
		default:
			sb.WriteString(m.theme.SystemNote.Render(turn.Content))
		}
		sb.WriteString("\n\n")
	}

	if m.state == StateStreaming && m.partial != "" {
		sb.WriteString(m.theme.AssistantLabel.Render("Assistant"))
		sb.WriteString("\n")
		// Partial output renders as plain text; markdown is applied only
		// to the finished reply to avoid flicker on unclosed fences.
		sb.WriteString(m.theme.AssistantText.Render(m.partial))
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderAssistantText renders a finished assistant reply, as markdown
// when enabled.
func (m Model) renderAssistantText(content string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return m.theme.AssistantText.Render(content)
}
