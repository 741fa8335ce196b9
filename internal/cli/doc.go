// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command line surface of localchat: flag
// parsing, terminal capability detection, and the plain-text REPL used
// when stdout is not a terminal or --plain is given. The REPL talks to
// the same conversation manager and streaming client as the TUI, so
// conversations are interchangeable between the two front ends.
package cli
