// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the multi-backend conversation engine.
//
// One Orchestrator owns one open conversation. Asking a question fans
// it out to every backend enabled for the room; each backend streams
// its answer into a per-backend Tracker. The aggregate idle signal is
// recomputed from all tracker states on every terminal stream event,
// and the transition to idle commits the completed round (question
// plus one answer per backend) to the conversation store exactly once.
//
// A single backend's answer can be retried without disturbing the
// others: the last round is logically undone in memory, the settled
// answers are reseeded into their trackers, and only the retried
// backend re-fetches.
package chat
