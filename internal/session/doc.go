// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the in-memory conversation registry.
//
// The manager owns every loaded conversation, tracks which one is
// current, and persists each mutation through the storage layer. The
// registry is never empty: startup and deletion both guarantee at
// least one conversation exists and is selected.
package session
