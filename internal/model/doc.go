// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// A Conversation is a named, persisted sequence of Turns plus the
// per-conversation settings that shape requests to the inference server
// (system prompt, model). Turns are append-only: the application never
// edits or removes individual turns.
package model
