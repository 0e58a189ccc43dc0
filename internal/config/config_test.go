// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hoshisato/eva-tui/internal/model"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.OpenAI.Enabled = true
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.OpenAI.Temperature = 0.7
	cfg.Ollama.Model = "qwen2.5:7b"
	cfg.UI.Theme = "light"

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if !loaded.OpenAI.Enabled || loaded.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai section lost in round trip: %+v", loaded.OpenAI)
	}
	if loaded.OpenAI.Temperature != 0.7 {
		t.Errorf("temperature = %g, want 0.7", loaded.OpenAI.Temperature)
	}
	if loaded.Ollama.Model != "qwen2.5:7b" {
		t.Errorf("ollama model = %q", loaded.Ollama.Model)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", loaded.UI.Theme)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[ollama]\nenabled = true\nmodel = \"mistral\"\n\n[ui]\ntheme = \"dark\"\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Ollama.BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("ollama base_url default missing: %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("explicit value overwritten: %q", cfg.Ollama.Model)
	}
	if cfg.OpenAI.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("system prompt default missing: %q", cfg.OpenAI.SystemPrompt)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.Temperature = 5.0
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted out-of-range values")
	}
	errs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidateErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("error count = %d, want 2: %v", len(errs), errs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EVA_OPENAI_TOKEN", "sk-test")
	t.Setenv("EVA_OLLAMA_URL", "http://10.0.0.5:11434")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.OpenAI.Token != "sk-test" {
		t.Errorf("token override missing: %q", cfg.OpenAI.Token)
	}
	if cfg.Ollama.BaseURL != "http://10.0.0.5:11434" {
		t.Errorf("ollama url override missing: %q", cfg.Ollama.BaseURL)
	}
}

func TestEnabledPlatforms(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.Enabled = true
	cfg.Ollama.Enabled = true

	got := cfg.EnabledPlatforms()
	if len(got) != 2 || got[0] != model.ApiTypeOpenAI || got[1] != model.ApiTypeOllama {
		t.Errorf("EnabledPlatforms = %v, want [openai ollama]", got)
	}

	cfg.OpenAI.Enabled = false
	got = cfg.EnabledPlatforms()
	if len(got) != 1 || got[0] != model.ApiTypeOllama {
		t.Errorf("EnabledPlatforms = %v, want [ollama]", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.Token = "sealed:abc123"

	safe := cfg.Redacted()
	if safe.OpenAI.Token != "[REDACTED]" {
		t.Errorf("token not redacted: %q", safe.OpenAI.Token)
	}
	if cfg.OpenAI.Token != "sealed:abc123" {
		t.Error("Redacted mutated the original")
	}
}
