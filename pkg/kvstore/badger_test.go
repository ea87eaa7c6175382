package kvstore

import "testing"

func TestBadgerStorage_SetGetDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStorage(dir, []Table{"t:st", "spo:c"})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer s.Close()

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin txn: %v", err)
	}
	if err := txn.Set("t:st", []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	ro, err := s.Begin(false)
	if err != nil {
		t.Fatalf("failed to begin read-only txn: %v", err)
	}
	defer ro.Rollback()

	v, err := ro.Get("t:st", []byte("k1"))
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if string(v) != "v1" {
		t.Errorf("expected v1, got %s", v)
	}

	if err := ro.Set("t:st", []byte("k2"), []byte("v2")); err != ErrTransactionRO {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
}

func TestBadgerStorage_TablesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStorage(dir, []Table{"a", "b"})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer s.Close()

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin txn: %v", err)
	}
	if err := txn.Set("a", []byte("k"), []byte("from-a")); err != nil {
		t.Fatal(err)
	}
	if err := txn.Set("b", []byte("k"), []byte("from-b")); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	ro, _ := s.Begin(false)
	defer ro.Rollback()

	va, err := ro.Get("a", []byte("k"))
	if err != nil || string(va) != "from-a" {
		t.Errorf("table a: expected from-a, got %s, err %v", va, err)
	}
	vb, err := ro.Get("b", []byte("k"))
	if err != nil || string(vb) != "from-b" {
		t.Errorf("table b: expected from-b, got %s, err %v", vb, err)
	}
}

func TestBadgerStorage_GetUnknownTable(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStorage(dir, []Table{"a"})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer s.Close()

	txn, _ := s.Begin(false)
	defer txn.Rollback()

	if _, err := txn.Get("nonexistent", []byte("k")); err == nil {
		t.Error("expected error for unregistered table")
	}
}

func TestBadgerStorage_ScanRange(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStorage(dir, []Table{"s:po"})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer s.Close()

	txn, _ := s.Begin(true)
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := txn.Set("s:po", []byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	ro, _ := s.Begin(false)
	defer ro.Rollback()

	it, err := ro.Scan("s:po", []byte("b"), []byte("d"))
	if err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("expected [b c], got %v", got)
	}
}
