package keys

import "testing"

func TestKeySequence_FirstAndNext(t *testing.T) {
	seq := NewKeySequence()
	first := seq.First()
	if len(first) != DefaultKeyLength {
		t.Fatalf("expected length %d, got %d", DefaultKeyLength, len(first))
	}
	for _, b := range first {
		if b != DefaultStartByte {
			t.Fatalf("expected all bytes == 0x%02x, got %v", DefaultStartByte, first)
		}
	}

	next, err := seq.Next(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []byte{0x02, 0x02, 0x02, 0x02, 0x03}
	if !bytesEqual(next, expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestKeySequence_CarriesOnOverflow(t *testing.T) {
	seq := NewKeySequence()
	prev := []byte{0x02, 0x02, 0x02, 0x02, 0xFF}
	next, err := seq.Next(prev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []byte{0x02, 0x02, 0x02, 0x03, 0x02}
	if !bytesEqual(next, expected) {
		t.Errorf("expected %v, got %v", expected, next)
	}
}

func TestKeySequence_ExhaustionIsFatal(t *testing.T) {
	seq := &KeySequence{Length: 2, Start: 0x02}
	prev := []byte{0xFF, 0xFF}
	_, err := seq.Next(prev)
	if err != ErrSequenceExhausted {
		t.Fatalf("expected ErrSequenceExhausted, got %v", err)
	}
}

func TestKeySequence_RejectsWrongLength(t *testing.T) {
	seq := NewKeySequence()
	_, err := seq.Next([]byte{0x02, 0x02})
	if err == nil {
		t.Fatal("expected error for mismatched key length")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
