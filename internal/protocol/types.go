// Package protocol holds the identifiers, hashing and error kinds shared by
// the dealer, the game engine and their collaborators.
package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies a participant or ledger account.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

func (a Address) String() string { return string(a) }

// Hash is a 32 byte Keccak-256 digest. Secrets, public keys and block
// hashes all use it.
type Hash [32]byte

// ZeroHash is never a valid key or entropy value.
var ZeroHash Hash

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool { return h == ZeroHash }

// Bytes returns a copy of the digest as a slice.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

// Hex returns the 0x-prefixed hex encoding.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// Short is an abbreviated hex form for logs.
func (h Hash) Short() string { return h.Hex()[:10] }

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed or bare hex hash.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes 64 hex characters, with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 64 {
		return Hash{}, fmt.Errorf("hash must be 32 bytes, got %d hex chars", len(s))
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("decode hash: %w", err)
	}
	return h, nil
}
