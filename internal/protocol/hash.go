package protocol

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of data with the legacy Keccak-256
// padding used by Ethereum, so commitments match keccak256 in contracts.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// Commit returns the public key for a secret.
func Commit(secret Hash) Hash {
	return Keccak256(secret[:])
}

// VerifyCommitment reports whether secret opens the commitment publicKey.
func VerifyCommitment(publicKey, secret Hash) bool {
	return !publicKey.IsZero() && Commit(secret) == publicKey
}

// Uint256 encodes n as a 32 byte big-endian word, the same layout as
// abi.encodePacked(uint256(n)).
func Uint256(n uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], n)
	return word[:]
}
