// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// Args holds the parsed command line options.
type Args struct {
	// Plain forces the line-based REPL instead of the TUI.
	Plain bool

	// Model overrides the configured default model.
	Model string

	// Server overrides the configured inference server URL.
	Server string

	// Dir overrides the conversations directory.
	Dir string

	// ConfigPath loads configuration from an explicit file.
	ConfigPath string

	Version bool
	Help    bool
}

// ParseArgs parses the raw command line arguments. Both --flag value
// and --flag=value forms are accepted, long and short.
func ParseArgs(raw []string) (Args, error) {
	var args Args

	i := 0
	for i < len(raw) {
		arg := raw[i]

		name := arg
		value := ""
		hasValue := false
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, value, _ = strings.Cut(arg, "=")
			hasValue = true
		}

		// takeValue consumes the flag's value from the same token or
		// the next one.
		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
				i++
				return raw[i], nil
			}
			return "", fmt.Errorf("flag %s requires a value", name)
		}

		switch name {
		case "--plain", "-p":
			args.Plain = true
		case "--model", "-m":
			v, err := takeValue()
			if err != nil {
				return args, err
			}
			args.Model = v
		case "--server", "-s":
			v, err := takeValue()
			if err != nil {
				return args, err
			}
			args.Server = v
		case "--dir", "-d":
			v, err := takeValue()
			if err != nil {
				return args, err
			}
			args.Dir = v
		case "--config", "-c":
			v, err := takeValue()
			if err != nil {
				return args, err
			}
			args.ConfigPath = v
		case "--version", "-V":
			args.Version = true
		case "--help", "-h":
			args.Help = true
		default:
			return args, fmt.Errorf("unknown flag: %s", arg)
		}
		i++
	}

	return args, nil
}

// Usage returns the help text shown for --help and on flag errors.
func Usage() string {
	return strings.TrimSpace(`
localchat - chat with a local inference server

Usage:
  localchat [flags]

Flags:
  -p, --plain           use the plain line-based interface
  -m, --model NAME      override the default model
  -s, --server URL      override the inference server URL
  -d, --dir PATH        override the conversations directory
  -c, --config PATH     load configuration from an explicit file
  -V, --version         print the version and exit
  -h, --help            show this help

The TUI starts by default when stdout is a terminal; otherwise the
plain interface is used.`)
}
