// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/localchat/internal/config"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// ParseCommand splits a slash command line into its name and argument.
// The argument keeps internal whitespace so prompts and names survive
// intact. Returns ok=false when the line is not a command.
func ParseCommand(line string) (name, arg string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	rest := strings.TrimPrefix(line, "/")
	if rest == "" {
		return "", "", false
	}
	name, arg, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

// handleCommand executes a slash command from the input line.
func (m Model) handleCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, ok := ParseCommand(line)
	if !ok {
		m.notice = "Empty command. Try /help."
		return m, nil
	}

	switch name {
	case "help", "h":
		m.notice = helpText()

	case "new", "n":
		m.manager.Create()
		m.refreshViewport()

	case "list", "ls":
		m.notice = m.listConversations()

	case "switch", "sw":
		return m.switchConversation(arg)

	case "rename":
		if arg == "" {
			m.notice = "Usage: /rename <name>"
			break
		}
		cur := m.manager.Current()
		if err := m.manager.Rename(cur.ID, arg); err != nil {
			m.notice = err.Error()
			break
		}
		m.notice = "Renamed to " + arg + "."

	case "delete", "rm":
		cur := m.manager.Current()
		if err := m.manager.Delete(cur.ID); err != nil {
			m.notice = err.Error()
			break
		}
		m.notice = "Deleted " + cur.Name + "."
		m.refreshViewport()

	case "system", "sys":
		cur := m.manager.Current()
		if arg == "" {
			m.notice = "System prompt: " + cur.SystemPrompt
			break
		}
		if err := m.manager.SetSystemPrompt(cur.ID, arg); err != nil {
			m.notice = err.Error()
			break
		}
		m.notice = "System prompt updated."

	case "model":
		cur := m.manager.Current()
		if arg == "" {
			m.notice = "Model: " + cur.Model
			break
		}
		if err := m.manager.SetModel(cur.ID, arg); err != nil {
			m.notice = err.Error()
			break
		}
		m.notice = "Model set to " + arg + "."

	case "models":
		return m, listModelsCmd(m.client)

	case "temp":
		return m.setTemperature(arg)

	case "tokens":
		return m.setMaxTokens(arg)

	case "save":
		if err := config.Save(m.cfg); err != nil {
			m.notice = err.Error()
			break
		}
		m.notice = "Settings saved."

	case "quit", "q", "exit":
		return m, tea.Quit

	default:
		m.notice = "Unknown command /" + name + ". Try /help."
	}

	return m, nil
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func (m Model) switchConversation(arg string) (tea.Model, tea.Cmd) {
	if arg == "" {
		m.notice = "Usage: /switch <number>"
		return m, nil
	}
	n, err := strconv.Atoi(arg)
	list := m.manager.List()
	if err != nil || n < 1 || n > len(list) {
		m.notice = fmt.Sprintf("Pick a chat number between 1 and %d (see /list).", len(list))
		return m, nil
	}
	if err := m.manager.Select(list[n-1].ID); err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.refreshViewport()
	return m, nil
}

func (m Model) setTemperature(arg string) (tea.Model, tea.Cmd) {
	if arg == "" {
		m.notice = fmt.Sprintf("Temperature: %.2f", m.cfg.Chat.Temperature)
		return m, nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || v < 0.0 || v > 1.0 {
		m.notice = "Temperature must be between 0.0 and 1.0."
		return m, nil
	}
	m.cfg.Chat.Temperature = v
	m.notice = fmt.Sprintf("Temperature set to %.2f.", v)
	return m, nil
}

func (m Model) setMaxTokens(arg string) (tea.Model, tea.Cmd) {
	if arg == "" {
		m.notice = fmt.Sprintf("Max tokens: %d", m.cfg.Chat.MaxTokens)
		return m, nil
	}
	v, err := strconv.Atoi(arg)
	if err != nil || v < 10 || v > 500 {
		m.notice = "Max tokens must be between 10 and 500."
		return m, nil
	}
	m.cfg.Chat.MaxTokens = v
	m.notice = fmt.Sprintf("Max tokens set to %d.", v)
	return m, nil
}

// listConversations formats the registry as a single notice line per chat.
func (m Model) listConversations() string {
	cur := m.manager.Current()

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	for i, conv := range m.manager.List() {
		marker := "  "
		if conv.ID == cur.ID {
			marker = "> "
		}
		line := fmt.Sprintf("%s%d. %s (%s, %d turns)", marker, i+1, conv.Name, conv.Model, conv.TurnCount())
		if preview := conv.Preview(40); preview != "" {
			line += " · " + preview
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// helpText lists the available slash commands.
func helpText() string {
	return strings.TrimSpace(`
Commands:
  /help            show this help
  /new             start a new chat
  /list            list chats
  /switch <n>      switch to chat n
  /rename <name>   rename the current chat
  /delete          delete the current chat
  /system [text]   show or set the system prompt
  /model [name]    show or set the model
  /models          list installed models
  /temp [0..1]     show or set the sampling temperature
  /tokens [10..500] show or set the reply token cap
  /save            persist current settings to the config file
  /quit            exit`)
}
