package utils

import (
	"crypto/sha256"
	"encoding/binary"
)

// SeedFromString derives a stable 64 bit seed from arg.
// Used to make sessions reproducible for the same roster when no
// explicit seed is given.
func SeedFromString(arg string) uint64 {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return binary.BigEndian.Uint64(hasher.Sum(nil)[:8])
}
