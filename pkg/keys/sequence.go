package keys

import "fmt"

// DefaultKeyLength is the byte length of a TermKey absent any
// configuration override.
const DefaultKeyLength = 5

// DefaultStartByte is the first byte value a KeySequence allocates.
// 0x00 is reserved as a separator elsewhere in the key space and 0x01 is
// kept spare, so allocation starts at 0x02.
const DefaultStartByte = 0x02

// ErrSequenceExhausted is returned when a KeySequence cannot allocate any
// further key: every byte position, including the first, has overflowed.
// Exhausting a 5-byte sequence started at 0x02 requires allocating roughly
// (0xFF-0x02)^5 keys, so in practice this signals corruption rather than
// legitimate growth.
var ErrSequenceExhausted = fmt.Errorf("keys: sequence exhausted")

// KeySequence generates the lexicographically next fixed-length byte
// string after a given one, starting from [start, ..., start]. It holds no
// state of its own; callers persist the last-allocated key (typically
// alongside the interning table) and pass it back in on the next call.
type KeySequence struct {
	Length int
	Start  byte
}

// NewKeySequence returns a KeySequence with the default length and start
// byte.
func NewKeySequence() *KeySequence {
	return &KeySequence{Length: DefaultKeyLength, Start: DefaultStartByte}
}

// First returns the first key a fresh sequence allocates.
func (s *KeySequence) First() []byte {
	key := make([]byte, s.Length)
	for i := range key {
		key[i] = s.Start
	}
	return key
}

// Next returns the key lexicographically following prev. prev must have
// exactly s.Length bytes. Incrementing carries from the last byte toward
// the first; a carry past the first byte means the sequence is exhausted.
func (s *KeySequence) Next(prev []byte) ([]byte, error) {
	if len(prev) != s.Length {
		return nil, fmt.Errorf("keys: expected key of length %d, got %d", s.Length, len(prev))
	}

	next := make([]byte, s.Length)
	copy(next, prev)

	for i := s.Length - 1; i >= 0; i-- {
		if next[i] != 0xFF {
			next[i]++
			return next, nil
		}
		next[i] = s.Start
		if i == 0 {
			return nil, ErrSequenceExhausted
		}
	}

	return nil, ErrSequenceExhausted
}
