// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
)

// =============================================================================
// PLATFORM TYPE
// =============================================================================

// ApiType identifies one configured LLM backend.
type ApiType string

const (
	// ApiTypeOpenAI is the cloud OpenAI-compatible backend.
	ApiTypeOpenAI ApiType = "openai"

	// ApiTypeOllama is the locally-hosted Ollama backend.
	ApiTypeOllama ApiType = "ollama"
)

// AllApiTypes lists every supported backend in display order.
var AllApiTypes = []ApiType{ApiTypeOpenAI, ApiTypeOllama}

// String returns the string representation of the backend identifier.
func (a ApiType) String() string {
	return string(a)
}

// DisplayName returns a human-readable name for the backend.
func (a ApiType) DisplayName() string {
	switch a {
	case ApiTypeOpenAI:
		return "OpenAI"
	case ApiTypeOllama:
		return "Ollama"
	default:
		return string(a)
	}
}

// Valid reports whether the identifier names a supported backend.
func (a ApiType) Valid() bool {
	for _, t := range AllApiTypes {
		if t == a {
			return true
		}
	}
	return false
}

// ParseApiType parses a backend identifier, case-insensitively.
func ParseApiType(s string) (ApiType, bool) {
	t := ApiType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// =============================================================================
// PLATFORM SETS
// =============================================================================

// ParsePlatforms parses a comma-joined list of backend identifiers,
// preserving order and dropping duplicates and unknown names. The
// comma-joined form is the same one the conversation store persists.
func ParsePlatforms(s string) []ApiType {
	var out []ApiType
	seen := make(map[ApiType]bool)
	for _, part := range strings.Split(s, ",") {
		t, ok := ParseApiType(part)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// JoinPlatforms renders a backend set in its comma-joined storage form.
func JoinPlatforms(platforms []ApiType) string {
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ",")
}

// SortByPlatform orders messages by backend identifier for
// deterministic side-by-side display within one answer slot.
func SortByPlatform(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		var a, b string
		if messages[i].PlatformType != nil {
			a = string(*messages[i].PlatformType)
		}
		if messages[j].PlatformType != nil {
			b = string(*messages[j].PlatformType)
		}
		return a < b
	})
}
