package keys

import (
	"crypto/sha1" // #nosec G505 -- used as a content-addressed digest, not for cryptographic integrity
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Hasher computes a term hash used to look up an existing TermKey for a
// serialized term (the th:t index). Any deterministic function works;
// collisions are treated as store corruption (CORRUPT_INDEX), not handled.
type Hasher interface {
	Hash(data []byte) []byte
}

// SHA1Hasher is the default Hasher, matching the data model's stated
// default algorithm.
type SHA1Hasher struct{}

func (SHA1Hasher) Hash(data []byte) []byte {
	sum := sha1.Sum(data) // #nosec G401 -- content-addressed digest, not a security boundary
	return sum[:]
}

// XXH3Hasher is a non-cryptographic alternative, selected via
// store.hash_algo when a deployment prefers speed over SHA1's collision
// resistance guarantees.
type XXH3Hasher struct{}

func (XXH3Hasher) Hash(data []byte) []byte {
	h := xxh3.Hash128(data)
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], h.Hi)
	binary.BigEndian.PutUint64(buf[8:16], h.Lo)
	return buf
}
