// Package random provides seed generation and seedable random sources.
//
// Seeds come from crypto/rand; the sources built from them are deterministic
// so that a draw can be replayed from its recorded seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a deterministic random source for seed.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// ResolveSeed returns *requested when set, otherwise a fresh seed from
// newSeed. A nil newSeed falls back to NewSeed.
func ResolveSeed(requested *int64, newSeed func() (int64, error)) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	if newSeed == nil {
		newSeed = NewSeed
	}
	seed, err := newSeed()
	if err != nil {
		return 0, fmt.Errorf("new seed: %w", err)
	}
	return seed, nil
}
