// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"

	"github.com/hoshisato/eva-tui/internal/model"
)

// =============================================================================
// MESSAGE GROUPING
// =============================================================================

// GroupMessages arranges a flat history into alternating display
// slots: even slots hold exactly one user question, odd slots hold
// every backend answer to the question above them. Messages are
// ordered by creation time before placement, and answers within a
// slot are ordered by backend identifier so renders are
// deterministic.
//
// The slot counter only moves forward, so a malformed history (two
// questions in a row, answers with no question) still yields a usable
// layout: the orphaned answers land in the next odd slot and the
// extra question opens a new even slot.
func GroupMessages(messages []model.Message) map[int][]model.Message {
	grouped := make(map[int][]model.Message)

	sorted := append([]model.Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	counter := 0
	for _, msg := range sorted {
		if msg.IsUser() {
			if _, occupied := grouped[counter]; occupied || counter%2 == 1 {
				counter++
			}
			grouped[counter] = []model.Message{msg}
			counter++
			continue
		}
		if counter%2 == 0 {
			counter++
		}
		grouped[counter] = append(grouped[counter], msg)
	}

	for slot, msgs := range grouped {
		if slot%2 == 1 {
			model.SortByPlatform(msgs)
		}
	}
	return grouped
}

// LatestRound returns the highest occupied slot, or -1 for an empty
// history.
func LatestRound(grouped map[int][]model.Message) int {
	latest := -1
	for slot := range grouped {
		if slot > latest {
			latest = slot
		}
	}
	return latest
}

// SlotOrder returns the occupied slots in ascending display order.
func SlotOrder(grouped map[int][]model.Message) []int {
	slots := make([]int, 0, len(grouped))
	for slot := range grouped {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}
