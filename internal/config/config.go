// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hoshisato/eva-tui/internal/model"
	"github.com/hoshisato/eva-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete eva configuration.
type Config struct {
	// General settings
	Version string `toml:"version"`

	// OpenAI (cloud) backend configuration
	OpenAI OpenAIConfig `toml:"openai"`

	// Ollama (local) backend configuration
	Ollama OllamaConfig `toml:"ollama"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// OpenAIConfig configures the cloud OpenAI-compatible backend.
type OpenAIConfig struct {
	// Enabled controls whether questions fan out to this backend
	Enabled bool `toml:"enabled"`
	// BaseURL is the API base URL (any OpenAI-compatible endpoint)
	BaseURL string `toml:"base_url"`
	// Model is the model identifier to request
	Model string `toml:"model"`
	// Token is the API token, sealed at rest (see Vault)
	Token string `toml:"token,omitempty"`
	// SystemPrompt is prepended to every conversation
	SystemPrompt string `toml:"system_prompt"`
	// Temperature controls sampling randomness (0.0-2.0)
	Temperature float64 `toml:"temperature"`
	// TopP is the nucleus sampling cutoff (0.0-1.0)
	TopP float64 `toml:"top_p"`
	// MaxTokens caps the answer length (0 = provider default)
	MaxTokens int `toml:"max_tokens"`
	// RateLimitRPS throttles outgoing requests (0 = unlimited)
	RateLimitRPS float64 `toml:"rate_limit_rps"`
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	// Enabled controls whether questions fan out to this backend
	Enabled bool `toml:"enabled"`
	// BaseURL is the Ollama server URL
	BaseURL string `toml:"base_url"`
	// Model is the local model to use
	Model string `toml:"model"`
	// SystemPrompt is prepended to every conversation
	SystemPrompt string `toml:"system_prompt"`
	// Temperature controls sampling randomness (0.0-2.0)
	Temperature float64 `toml:"temperature"`
	// TopP is the nucleus sampling cutoff (0.0-1.0)
	TopP float64 `toml:"top_p"`
	// AutoStart launches a local ollama server when none is reachable
	AutoStart bool `toml:"auto_start"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
	// MarkdownRendering renders answers as formatted markdown
	MarkdownRendering bool `toml:"markdown_rendering"`
}

// DefaultSystemPrompt is the assistant persona used when a backend has
// no prompt configured.
const DefaultSystemPrompt = "Your name is Eva. You are a helpful assistant."

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		OpenAI: OpenAIConfig{
			Enabled:      false,
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-4o",
			SystemPrompt: DefaultSystemPrompt,
			Temperature:  1.0,
			TopP:         1.0,
			MaxTokens:    0,
			RateLimitRPS: 0,
		},

		Ollama: OllamaConfig{
			Enabled:      true,
			BaseURL:      "http://127.0.0.1:11434",
			Model:        "llama3.2",
			SystemPrompt: DefaultSystemPrompt,
			Temperature:  1.0,
			TopP:         1.0,
			AutoStart:    true,
		},

		UI: UIConfig{
			Theme:             "dark",
			CompactMode:       false,
			MarkdownRendering: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the eva configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".eva"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) since
// they carry sealed API tokens.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back
// to defaults when none exists. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// OpenAI
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaults.OpenAI.BaseURL
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaults.OpenAI.Model
	}
	if c.OpenAI.SystemPrompt == "" {
		c.OpenAI.SystemPrompt = defaults.OpenAI.SystemPrompt
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = defaults.OpenAI.Temperature
	}
	if c.OpenAI.TopP == 0 {
		c.OpenAI.TopP = defaults.OpenAI.TopP
	}

	// Ollama
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaults.Ollama.BaseURL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaults.Ollama.Model
	}
	if c.Ollama.SystemPrompt == "" {
		c.Ollama.SystemPrompt = defaults.Ollama.SystemPrompt
	}
	if c.Ollama.Temperature == 0 {
		c.Ollama.Temperature = defaults.Ollama.Temperature
	}
	if c.Ollama.TopP == 0 {
		c.Ollama.TopP = defaults.Ollama.TopP
	}

	// UI
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner
// read/write only).
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# eva configuration file")
	fmt.Fprintln(&buf, "# Generated by eva - edit with care")
	fmt.Fprintln(&buf, "")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0755); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.OpenAI.BaseURL != "" {
		if _, err := url.Parse(c.OpenAI.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "openai.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "openai.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.OpenAI.Temperature),
		})
	}
	if c.OpenAI.TopP < 0 || c.OpenAI.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "openai.top_p",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.OpenAI.TopP),
		})
	}
	if c.OpenAI.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "openai.max_tokens",
			Message: "must be non-negative",
		})
	}
	if c.OpenAI.RateLimitRPS < 0 {
		errs = append(errs, ValidationError{
			Field:   "openai.rate_limit_rps",
			Message: "must be non-negative",
		})
	}

	if c.Ollama.BaseURL != "" {
		if _, err := url.Parse(c.Ollama.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "ollama.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "ollama.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Ollama.Temperature),
		})
	}
	if c.Ollama.TopP < 0 || c.Ollama.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "ollama.top_p",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Ollama.TopP),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the
// config.
//
// Supported environment variables:
//   - EVA_OPENAI_TOKEN: overrides openai.token (plain, not sealed)
//   - EVA_OPENAI_URL: overrides openai.base_url
//   - EVA_OPENAI_MODEL: overrides openai.model
//   - EVA_OLLAMA_URL: overrides ollama.base_url
//   - EVA_OLLAMA_MODEL: overrides ollama.model
//   - EVA_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if token := os.Getenv("EVA_OPENAI_TOKEN"); token != "" {
		c.OpenAI.Token = token
	}
	if u := os.Getenv("EVA_OPENAI_URL"); u != "" {
		c.OpenAI.BaseURL = u
	}
	if m := os.Getenv("EVA_OPENAI_MODEL"); m != "" {
		c.OpenAI.Model = m
	}
	if u := os.Getenv("EVA_OLLAMA_URL"); u != "" {
		c.Ollama.BaseURL = u
	}
	if m := os.Getenv("EVA_OLLAMA_MODEL"); m != "" {
		c.Ollama.Model = m
	}
	if theme := os.Getenv("EVA_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// EnabledPlatforms returns the backends enabled for new conversations,
// in display order.
func (c *Config) EnabledPlatforms() []model.ApiType {
	var out []model.ApiType
	for _, p := range model.AllApiTypes {
		switch p {
		case model.ApiTypeOpenAI:
			if c.OpenAI.Enabled {
				out = append(out, p)
			}
		case model.ApiTypeOllama:
			if c.Ollama.Enabled {
				out = append(out, p)
			}
		}
	}
	return out
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy safe for display, with token material
// blanked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.OpenAI.Token != "" {
		safe.OpenAI.Token = "[REDACTED]"
	}
	return safe
}
