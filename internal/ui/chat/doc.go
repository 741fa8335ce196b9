// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view for the TUI.
//
// The model wires the conversation registry, the streaming client, and
// the Bubble Tea event loop together: user input becomes a turn, the
// reply streams in through a frame-capped buffer, and the completed
// reply is persisted as an assistant turn. Slash commands manage
// conversations without leaving the view.
package chat
