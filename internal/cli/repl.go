// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader wraps liner with persistent input history. Arrow keys
// navigate history, Ctrl+C aborts the prompt, Ctrl+D signals EOF.
type LineReader struct {
	line        *liner.State
	historyFile string
}

// NewLineReader creates a line reader and loads any saved history.
func NewLineReader() *LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	lr := &LineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	lr.loadHistory()
	return lr
}

func (lr *LineReader) loadHistory() {
	if f, err := os.Open(lr.historyFile); err == nil {
		lr.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with the given prompt. Non-empty input is
// appended to history.
func (lr *LineReader) ReadInput(prompt string) (string, error) {
	input, err := lr.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		lr.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with owner-only permissions.
func (lr *LineReader) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(lr.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	lr.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (lr *LineReader) Close() {
	lr.saveHistory()
	lr.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain-text front end. It shares the conversation manager
// and streaming client with the TUI.
type REPL struct {
	manager *session.Manager
	client  *ollama.Client
	cfg     *config.Config
	input   *LineReader

	// cancel aborts the in-flight stream on Ctrl+C. Guarded by mu: the
	// signal goroutine invokes it while the main loop sets and clears it.
	mu     sync.Mutex
	cancel context.CancelFunc
}

// setCancel installs or clears the cancel function for the active stream.
func (r *REPL) setCancel(fn context.CancelFunc) {
	r.mu.Lock()
	r.cancel = fn
	r.mu.Unlock()
}

// interrupt cancels the in-flight stream, if any.
func (r *REPL) interrupt() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// NewREPL creates the plain-text front end.
func NewREPL(manager *session.Manager, client *ollama.Client, cfg *config.Config) *REPL {
	return &REPL{
		manager: manager,
		client:  client,
		cfg:     cfg,
		input:   NewLineReader(),
	}
}

// Run drives the read-eval-print loop until the user exits.
func (r *REPL) Run() error {
	defer r.input.Close()

	r.printWelcome()

	// Ctrl+C during generation cancels the stream instead of killing
	// the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			r.interrupt()
		}
	}()

	for {
		input, err := r.input.ReadInput(promptStyle.Render("localchat> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both exit cleanly.
			fmt.Println()
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				fmt.Println(infoStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		if err := r.processMessage(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage records the user turn, streams the reply to stdout,
// and records the assistant turn on success. A failed or cancelled
// stream keeps the user turn but records no assistant turn.
func (r *REPL) processMessage(input string) error {
	conv := r.manager.Current()
	if err := r.manager.AppendTurn(conv.ID, model.RoleUser, input); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.setCancel(cancel)
	defer func() {
		r.setCancel(nil)
		cancel()
	}()

	// Tokens print as they arrive so the reply feels live. With
	// markdown enabled the finished reply is re-rendered below.
	useMarkdown := r.cfg.UI.Markdown && IsStdoutTTY()

	fmt.Println()
	full, err := r.client.StreamCompletion(ctx, r.buildRequest(), func(f ollama.Fragment) {
		if !f.Done && !useMarkdown {
			fmt.Print(f.Text)
		}
	})
	if err != nil {
		fmt.Println()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, warningStyle.Render("[Cancelled]"))
			return nil
		}
		return describeError(err)
	}

	if useMarkdown {
		r.renderMarkdown(full)
	}
	fmt.Println()
	fmt.Println()

	return r.manager.AppendTurn(conv.ID, model.RoleAssistant, full)
}

// buildRequest assembles the completion request for the current
// conversation, whose history already ends with the user's turn.
func (r *REPL) buildRequest() ollama.CompletionRequest {
	conv := r.manager.Current()

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
		Temperature:  r.cfg.Chat.Temperature,
		MaxTokens:    r.cfg.Chat.MaxTokens,
		Shape:        ollama.Shape(r.cfg.Server.Shape),
	}
}

// renderMarkdown renders a finished reply as markdown, falling back to
// plain text when the renderer is unavailable.
func (r *REPL) renderMarkdown(content string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()-2),
	)
	if err != nil {
		fmt.Print(content)
		return
	}
	out, err := renderer.Render(content)
	if err != nil {
		fmt.Print(content)
		return
	}
	fmt.Print(strings.TrimRight(out, "\n"))
}

// describeError maps client errors to actionable messages.
func describeError(err error) error {
	switch {
	case ollama.IsNotRunning(err):
		return fmt.Errorf("inference server is not running; start it with 'ollama serve' or enable auto_start")
	case ollama.IsTimeout(err):
		return fmt.Errorf("request timed out; the model may still be loading")
	default:
		return err
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand processes a slash command. Returns keepGoing=false to
// exit the loop.
func (r *REPL) handleCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		r.printHelp()
		return true, nil

	case "/new", "/n":
		conv := r.manager.Create()
		fmt.Println(commandStyle.Render("[Started " + conv.Name + "]"))
		return true, nil

	case "/list", "/ls":
		r.printList()
		return true, nil

	case "/switch", "/sw":
		return true, r.switchConversation(args)

	case "/rename":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /rename <name>")
		}
		name := strings.Join(args, " ")
		cur := r.manager.Current()
		if err := r.manager.Rename(cur.ID, name); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Renamed to " + name + "]"))
		return true, nil

	case "/delete", "/rm":
		cur := r.manager.Current()
		if err := r.manager.Delete(cur.ID); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Deleted " + cur.Name + "]"))
		return true, nil

	case "/system", "/sys":
		cur := r.manager.Current()
		if len(args) == 0 {
			fmt.Printf("%s %s\n", infoStyle.Render("[System]"), cur.SystemPrompt)
			return true, nil
		}
		prompt := strings.Join(args, " ")
		if err := r.manager.SetSystemPrompt(cur.ID, prompt); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[System prompt updated]"))
		return true, nil

	case "/model", "/m":
		cur := r.manager.Current()
		if len(args) == 0 {
			fmt.Printf("%s %s\n", infoStyle.Render("[Model]"), commandStyle.Render(cur.Model))
			return true, nil
		}
		if err := r.manager.SetModel(cur.ID, args[0]); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Model set to " + args[0] + "]"))
		return true, nil

	case "/models":
		return true, r.printModels()

	case "/temp":
		if len(args) == 0 {
			fmt.Printf("%s %.2f\n", infoStyle.Render("[Temperature]"), r.cfg.Chat.Temperature)
			return true, nil
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v < 0.0 || v > 1.0 {
			return true, fmt.Errorf("temperature must be between 0.0 and 1.0")
		}
		r.cfg.Chat.Temperature = v
		fmt.Println(commandStyle.Render(fmt.Sprintf("[Temperature set to %.2f]", v)))
		return true, nil

	case "/tokens":
		if len(args) == 0 {
			fmt.Printf("%s %d\n", infoStyle.Render("[Max tokens]"), r.cfg.Chat.MaxTokens)
			return true, nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 10 || n > 500 {
			return true, fmt.Errorf("max tokens must be between 10 and 500")
		}
		r.cfg.Chat.MaxTokens = n
		fmt.Println(commandStyle.Render(fmt.Sprintf("[Max tokens set to %d]", n)))
		return true, nil

	case "/history":
		r.printHistory()
		return true, nil

	case "/save":
		if err := config.Save(r.cfg); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Settings saved]"))
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func (r *REPL) switchConversation(args []string) error {
	list := r.manager.List()
	if len(args) == 0 {
		return fmt.Errorf("usage: /switch <number> (see /list)")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(list) {
		return fmt.Errorf("pick a chat number between 1 and %d", len(list))
	}
	if err := r.manager.Select(list[n-1].ID); err != nil {
		return err
	}
	fmt.Println(commandStyle.Render("[Switched to " + list[n-1].Name + "]"))
	return nil
}

func (r *REPL) printModels() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.client.Config().Timeout)
	defer cancel()

	models, err := r.client.ListModels(ctx)
	if err != nil {
		return describeError(err)
	}
	if len(models) == 0 {
		fmt.Println(warningStyle.Render("[No models installed; pull one with 'ollama pull <name>']"))
		return nil
	}
	fmt.Println(infoStyle.Render("Installed models:"))
	for _, info := range models {
		fmt.Printf("  %s\n", commandStyle.Render(info.Name))
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *REPL) printWelcome() {
	conv := r.manager.Current()

	fmt.Println()
	fmt.Println(welcomeStyle.Render("localchat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n", infoStyle.Render("Chat:"), commandStyle.Render(conv.Name))
	fmt.Printf("%s %s\n", infoStyle.Render("Model:"), commandStyle.Render(conv.Model))
	fmt.Printf("%s %s\n", infoStyle.Render("Server:"), commandStyle.Render(r.cfg.Server.URL))
	if last := conv.LastTurn(); last != nil {
		excerpt := util.TruncateRunes(util.Flatten(last.Content), 60)
		fmt.Printf("%s %s: %s\n", infoStyle.Render("Last:"), last.Role.DisplayName(), excerpt)
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func (r *REPL) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a new chat"},
		{"/list, /ls", "List chats"},
		{"/switch <n>", "Switch to chat n"},
		{"/rename <name>", "Rename the current chat"},
		{"/delete", "Delete the current chat"},
		{"/system [text]", "Show or set the system prompt"},
		{"/model [name]", "Show or set the model"},
		{"/models", "List installed models"},
		{"/temp [0..1]", "Show or set the sampling temperature"},
		{"/tokens [10..500]", "Show or set the reply token cap"},
		{"/history", "Show the conversation so far"},
		{"/save", "Persist current settings to the config file"},
		{"/quit, /q", "Exit"},
	}

	fmt.Println()
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current generation, Ctrl+D exits"))
	fmt.Println()
}

func (r *REPL) printList() {
	cur := r.manager.Current()

	fmt.Println()
	for i, conv := range r.manager.List() {
		marker := "  "
		if conv.ID == cur.ID {
			marker = commandStyle.Render("> ")
		}
		line := fmt.Sprintf("%s%d. %s (%s, %d turns)",
			marker, i+1, conv.Name, conv.Model, conv.TurnCount())
		if preview := conv.Preview(40); preview != "" {
			line += " " + infoStyle.Render("· "+preview)
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func (r *REPL) printHistory() {
	conv := r.manager.Current()
	if len(conv.Messages) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	for i, turn := range conv.Messages {
		role := turn.Role.DisplayName()
		switch turn.Role {
		case model.RoleUser:
			role = promptStyle.Render(role)
		case model.RoleAssistant:
			role = welcomeStyle.Render(role)
		}

		content := util.TruncateRunes(util.Flatten(turn.Content), 100)

		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}
	fmt.Println()
}
