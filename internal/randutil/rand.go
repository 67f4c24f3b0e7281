// Package randutil provides reproducible random sources for simulations.
package randutil

import (
	"encoding/binary"
	rand "math/rand/v2"

	"github.com/lox/fairpoker/internal/protocol"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// All call sites derive the two rand/v2 PCG seeds the same way.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Derive returns an independent source for one stream of a seeded run,
// such as a single table or bot.
func Derive(seed int64, stream uint64) *rand.Rand {
	u := mix(uint64(seed) ^ mix(stream+goldenRatio64))
	return rand.New(rand.NewPCG(u, mix(u+goldenRatio64)))
}

// Secret draws a nonzero commitment secret from r. Only simulations should
// use it: a seeded source makes the secret predictable.
func Secret(r *rand.Rand) protocol.Hash {
	var h protocol.Hash
	for h.IsZero() {
		for i := 0; i < len(h); i += 8 {
			binary.BigEndian.PutUint64(h[i:], r.Uint64())
		}
	}
	return h
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
