// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for localchat.
//
// Each conversation is stored as one JSON file named by its id under the
// store directory. Writes are atomic (write-whole-file-then-rename) so a
// crash never leaves a truncated record behind.
//
// # Key Types
//
//   - Store: file-backed conversation store
//
// # Usage
//
// Create a store and save a conversation:
//
//	store, err := storage.NewStore(dir)
//	err = store.Save(conv)
//
// Load everything at startup:
//
//	convs, err := store.LoadAll()
//
// Corrupt or unreadable records are skipped during LoadAll; a single bad
// file never prevents the rest from loading.
package storage
