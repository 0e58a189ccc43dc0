// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// =============================================================================
// TOKEN VAULT
// =============================================================================

// sealedPrefix marks vault-sealed values in the config file.
const sealedPrefix = "sealed:"

var (
	// ErrVaultKeyCorrupt means the key file exists but is unusable.
	ErrVaultKeyCorrupt = errors.New("vault key file is corrupt")

	// ErrSealedValueCorrupt means a sealed value failed to decode or
	// authenticate. The usual cause is a key file replaced after the
	// value was sealed.
	ErrSealedValueCorrupt = errors.New("sealed value is corrupt or sealed with a different key")
)

// Vault seals API tokens at rest with a locally generated secretbox
// key. The key lives next to the config file with 0600 permissions;
// sealing protects tokens from casual disclosure (backups, pastes of
// the config file), not from an attacker with access to the key file.
type Vault struct {
	key [32]byte
}

// OpenVault loads the vault key from dir, generating one on first use.
func OpenVault(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	keyPath := filepath.Join(dir, "vault.key")

	v := &Vault{}
	data, err := os.ReadFile(keyPath)
	if err == nil {
		raw, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(raw) != 32 {
			return nil, ErrVaultKeyCorrupt
		}
		copy(v.key[:], raw)
		return v, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}

	if _, err := io.ReadFull(rand.Reader, v.key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(v.key[:])
	if err := os.WriteFile(keyPath, []byte(encoded+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write vault key: %w", err)
	}
	return v, nil
}

// Seal encrypts a secret for storage in the config file. Empty input
// stays empty.
func (v *Vault) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the sealed prefix pass
// through unchanged, so plain tokens (environment overrides, hand
// edits) keep working.
func (v *Vault) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < 24 {
		return "", ErrSealedValueCorrupt
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &v.key)
	if !ok {
		return "", ErrSealedValueCorrupt
	}
	return string(plain), nil
}

// IsSealed reports whether a config value is vault-sealed.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
