package kvstore

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage implements Storage using BadgerDB. The set of tables it will
// serve is fixed at open time; each table gets a one-byte prefix so a single
// Badger instance can hold several logical tables without them colliding in
// the LSM tree's key space.
type BadgerStorage struct {
	db       *badger.DB
	prefixes map[Table]byte
}

// NewBadgerStorage opens a BadgerDB instance at path, recognizing exactly
// the tables listed. Order matters only in that it determines prefix byte
// assignment; callers should keep it stable across restarts since the
// prefixes are baked into every key on disk.
func NewBadgerStorage(path string, tables []Table) (*BadgerStorage, error) {
	return newBadgerStorage(path, tables, 0)
}

// maxValueLogFileSize is Badger's own ceiling on ValueLogFileSize: its vlog
// offsets are 32-bit, so anything at or above 2GiB fails to open.
const maxValueLogFileSize = 1<<31 - 1

// NewBadgerStorageWithSize is NewBadgerStorage with an explicit cap on
// Badger's value log segment size, sourced from store.map_size_bytes. A
// mapSizeBytes of 0 leaves Badger's own default in place.
func NewBadgerStorageWithSize(path string, tables []Table, mapSizeBytes int64) (*BadgerStorage, error) {
	return newBadgerStorage(path, tables, mapSizeBytes)
}

func newBadgerStorage(path string, tables []Table, mapSizeBytes int64) (*BadgerStorage, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("kvstore: at least one table is required")
	}
	if len(tables) > 255 {
		return nil, fmt.Errorf("kvstore: too many tables (%d), prefix byte overflows", len(tables))
	}

	prefixes := make(map[Table]byte, len(tables))
	for i, t := range tables {
		prefixes[t] = byte(i)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // ambient logging goes through the caller, not Badger's own logger
	if mapSizeBytes > 0 {
		size := mapSizeBytes
		if size > maxValueLogFileSize {
			size = maxValueLogFileSize
		}
		opts.ValueLogFileSize = size
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at %s: %w", path, err)
	}

	return &BadgerStorage{db: db, prefixes: prefixes}, nil
}

// Begin starts a new transaction.
func (s *BadgerStorage) Begin(writable bool) (Transaction, error) {
	txn := s.db.NewTransaction(writable)
	return &BadgerTransaction{
		txn:      txn,
		writable: writable,
		prefixes: s.prefixes,
	}, nil
}

// Close closes the storage.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk.
func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

func (s *BadgerStorage) tablePrefix(table Table) ([]byte, error) {
	b, ok := s.prefixes[table]
	if !ok {
		return nil, fmt.Errorf("kvstore: unregistered table %q", table)
	}
	return []byte{b}, nil
}

// BadgerTransaction implements Transaction using BadgerDB.
type BadgerTransaction struct {
	txn      *badger.Txn
	writable bool
	prefixes map[Table]byte
}

func (t *BadgerTransaction) tablePrefix(table Table) ([]byte, error) {
	b, ok := t.prefixes[table]
	if !ok {
		return nil, fmt.Errorf("kvstore: unregistered table %q", table)
	}
	return []byte{b}, nil
}

func (t *BadgerTransaction) prefixKey(table Table, key []byte) ([]byte, error) {
	prefix, err := t.tablePrefix(table)
	if err != nil {
		return nil, err
	}
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result, nil
}

// Get retrieves a value by key.
func (t *BadgerTransaction) Get(table Table, key []byte) ([]byte, error) {
	prefixedKey, err := t.prefixKey(table, key)
	if err != nil {
		return nil, err
	}

	item, err := t.txn.Get(prefixedKey)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a key-value pair.
func (t *BadgerTransaction) Set(table Table, key, value []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}

	prefixedKey, err := t.prefixKey(table, key)
	if err != nil {
		return err
	}
	return t.txn.Set(prefixedKey, value)
}

// Delete removes a key.
func (t *BadgerTransaction) Delete(table Table, key []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}

	prefixedKey, err := t.prefixKey(table, key)
	if err != nil {
		return err
	}
	return t.txn.Delete(prefixedKey)
}

// Scan iterates over a key range [start, end) within table. With a nil end
// and a non-nil start, only keys having start as a prefix are returned.
func (t *BadgerTransaction) Scan(table Table, start, end []byte) (Iterator, error) {
	tablePrefix, err := t.tablePrefix(table)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultIteratorOptions

	var seekKey []byte
	var scanPrefix []byte
	if start != nil {
		seekKey, err = t.prefixKey(table, start)
		if err != nil {
			return nil, err
		}
		if end == nil {
			scanPrefix = seekKey
		} else {
			scanPrefix = tablePrefix
		}
	} else {
		seekKey = tablePrefix
		scanPrefix = tablePrefix
	}

	opts.Prefix = scanPrefix
	it := t.txn.NewIterator(opts)

	var endKey []byte
	if end != nil {
		endKey, err = t.prefixKey(table, end)
		if err != nil {
			it.Close()
			return nil, err
		}
	}

	return &BadgerIterator{
		it:      it,
		prefix:  tablePrefix,
		endKey:  endKey,
		seekKey: seekKey,
	}, nil
}

// Commit commits the transaction.
func (t *BadgerTransaction) Commit() error {
	return t.txn.Commit()
}

// Rollback rolls back the transaction.
func (t *BadgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// BadgerIterator implements Iterator using BadgerDB.
type BadgerIterator struct {
	it       *badger.Iterator
	prefix   []byte
	endKey   []byte
	seekKey  []byte
	started  bool
	hasValue bool
}

// Next advances to the next item.
func (i *BadgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.hasValue = false
		return false
	}

	if i.endKey != nil && bytes.Compare(i.it.Item().Key(), i.endKey) >= 0 {
		i.hasValue = false
		return false
	}

	i.hasValue = true
	return true
}

// Key returns the current key, with the table prefix stripped.
func (i *BadgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) > len(i.prefix) {
		return key[len(i.prefix):]
	}
	return nil
}

// Value returns the current value.
func (i *BadgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, ErrNotFound
	}
	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close closes the iterator.
func (i *BadgerIterator) Close() error {
	i.it.Close()
	return nil
}
