// Package keyfile stores a player's commitment secret on disk.
package keyfile

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/fairpoker/internal/protocol"
)

// Key is a player's address with the secret behind its current public key.
// Next holds the secret committed to for the following hand, once rotated.
type Key struct {
	Address   protocol.Address `json:"address"`
	Secret    protocol.Hash    `json:"secret"`
	PublicKey protocol.Hash    `json:"public_key"`
	Next      *protocol.Hash   `json:"next,omitempty"`
}

// NewSecret draws a random nonzero secret.
func NewSecret() (protocol.Hash, error) {
	var secret protocol.Hash
	for secret.IsZero() {
		if _, err := rand.Read(secret[:]); err != nil {
			return protocol.Hash{}, fmt.Errorf("read random secret: %w", err)
		}
	}
	return secret, nil
}

// New wraps an existing secret.
func New(addr protocol.Address, secret protocol.Hash) *Key {
	return &Key{Address: addr, Secret: secret, PublicKey: protocol.Commit(secret)}
}

// Generate creates a key with a fresh secret.
func Generate(addr protocol.Address) (*Key, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: empty address", protocol.ErrInvalidKey)
	}
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	return &Key{Address: addr, Secret: secret, PublicKey: protocol.Commit(secret)}, nil
}

// PrepareNext draws the secret for the next hand and returns its public
// key, which is what a reveal announces. Calling it again before Advance
// returns the same key.
func (k *Key) PrepareNext() (protocol.Hash, error) {
	if k.Next == nil {
		secret, err := NewSecret()
		if err != nil {
			return protocol.Hash{}, err
		}
		k.Next = &secret
	}
	return protocol.Commit(*k.Next), nil
}

// Advance makes the prepared secret current.
func (k *Key) Advance() error {
	if k.Next == nil {
		return fmt.Errorf("%w: no next secret prepared", protocol.ErrInvalidKey)
	}
	k.Secret = *k.Next
	k.PublicKey = protocol.Commit(k.Secret)
	k.Next = nil
	return nil
}

// Validate checks the secret opens the public key.
func (k *Key) Validate() error {
	if k.Address.IsZero() {
		return fmt.Errorf("%w: empty address", protocol.ErrInvalidKey)
	}
	if !protocol.VerifyCommitment(k.PublicKey, k.Secret) {
		return fmt.Errorf("%w: secret does not open public key %s", protocol.ErrInvalidKey, k.PublicKey.Short())
	}
	return nil
}

// Load reads and validates a key file.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	var k Key
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", path, err)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

// Save writes the key readable only by its owner. The write is atomic, so
// a crash leaves either the old key or the new one.
func (k *Key) Save(path string) error {
	if err := k.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'), 0o600)
}

func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	// Same directory, so the rename never crosses filesystems.
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, filename); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
