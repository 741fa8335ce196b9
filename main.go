// localchat - chat with a local inference server from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/localchat/internal/cli"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/storage"
	"github.com/jeranaias/localchat/internal/ui/chat"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s\n", err, cli.Usage())
		os.Exit(2)
	}

	if args.Help {
		fmt.Println(cli.Usage())
		return
	}
	if args.Version {
		fmt.Printf("localchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg := loadConfig(args)

	if err := run(args, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies command line overrides.
func loadConfig(args cli.Args) *config.Config {
	var cfg *config.Config
	if args.ConfigPath != "" {
		loaded, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot load config %s: %v\n", args.ConfigPath, err)
			os.Exit(1)
		}
		cfg = loaded
		config.SetGlobal(cfg)
	} else {
		cfg = config.Global()
	}

	// Command line flags beat config file and environment.
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Model != "" {
		cfg.Server.Model = args.Model
	}
	if args.Dir != "" {
		cfg.Storage.Dir = args.Dir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// run wires up storage, sessions, and the client, then hands control to
// the TUI or the plain REPL.
func run(args cli.Args, cfg *config.Config) error {
	// Honors NO_COLOR and FORCE_COLOR in both front ends.
	lipgloss.SetColorProfile(cli.ColorProfile())

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	dir, err := cfg.ConversationsDir()
	if err != nil {
		return fmt.Errorf("cannot resolve conversations directory: %w", err)
	}
	store, err := storage.NewStore(dir)
	if err != nil {
		return fmt.Errorf("cannot open conversation store: %w", err)
	}

	manager, err := session.NewManager(store, session.Defaults{
		Model:        cfg.Server.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
	})
	if err != nil {
		return err
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:        cfg.Server.URL,
		DefaultModel:   cfg.Server.Model,
		RequestTimeout: time.Duration(cfg.Server.TimeoutSecs) * time.Second,
	})

	if cfg.Server.AutoStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := client.EnsureRunning(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not start inference server: %v\n", err)
		}
	}

	// Config edits apply to new requests without a restart. An explicit
	// --config file is pinned, so the watcher only runs on the default
	// locations.
	if args.ConfigPath == "" {
		watcher, werr := config.NewWatcher(500*time.Millisecond, func(updated *config.Config) {
			cfg.Chat = updated.Chat
			cfg.UI = updated.UI
		})
		if werr == nil {
			if werr := watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	if args.Plain || !cli.IsStdoutTTY() || !cli.IsTTY() {
		return cli.NewREPL(manager, client, cfg).Run()
	}
	return runTUI(manager, client, cfg)
}

// runTUI starts the Bubble Tea interface.
func runTUI(manager *session.Manager, client *ollama.Client, cfg *config.Config) error {
	theme := styles.NewTheme()
	m := chat.New(theme, manager, client, cfg)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
