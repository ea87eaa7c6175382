package quadstore

import (
	"sync"

	"github.com/clover-repo/ldpstore/pkg/kvstore"
)

// Txn is a logical transaction spanning both environments.
type Txn struct {
	Data  kvstore.Transaction
	Index kvstore.Transaction

	write bool
}

// Writable reports whether this transaction may mutate either environment.
func (t *Txn) Writable() bool { return t.write }

func (t *Txn) commit() error {
	if err := t.Data.Commit(); err != nil {
		t.Index.Rollback()
		return err
	}
	// Data is now durable; if the index commit fails, its error is returned
	// and the data environment keeps this transaction's writes while the
	// index environment does not. Nothing in this package rebuilds the index
	// environment from data.
	return t.Index.Commit()
}

func (t *Txn) rollback() error {
	err1 := t.Data.Rollback()
	err2 := t.Index.Rollback()
	if err1 != nil {
		return err1
	}
	return err2
}

// TxnManager is a scoped-acquisition primitive: With begins a transaction
// of the requested mode unless a compatible one is already active on this
// manager, runs fn, and commits on success or rolls back on error/panic.
// Nested calls while a transaction is active reuse it rather than opening
// a second one; a nested write request under an active read-only scope
// fails with TXN_READONLY rather than silently escalating.
//
// mu guards active/depth, not fn itself: callers on different goroutines
// that aren't actually nested within each other's call stack each open
// their own independent Txn (Badger's own MVCC is what lets those coexist,
// per §5's "multiple readers may coexist"), rather than racing on the same
// active/depth fields the way an unguarded TxnManager would.
type TxnManager struct {
	store *QuadStore

	mu     sync.Mutex
	active *Txn
	depth  int
}

// With runs fn within a scoped transaction. See the type doc for the
// nesting and failure-mode rules.
func (m *TxnManager) With(write bool, fn func(*Txn) error) error {
	m.mu.Lock()
	if m.active != nil {
		if write && !m.active.write {
			m.mu.Unlock()
			return newStoreError(ErrTxnReadOnly, nil)
		}
		txn := m.active
		m.depth++
		m.mu.Unlock()
		defer func() {
			m.mu.Lock()
			m.depth--
			m.mu.Unlock()
		}()
		return fn(txn)
	}
	m.mu.Unlock()

	txn, err := m.store.begin(write)
	if err != nil {
		return err
	}

	m.mu.Lock()
	owns := m.active == nil
	if owns {
		m.active = txn
	}
	m.mu.Unlock()
	if owns {
		defer func() {
			m.mu.Lock()
			m.active = nil
			m.mu.Unlock()
		}()
	}

	if err := m.runScoped(txn, fn); err != nil {
		txn.rollback()
		return err
	}
	return txn.commit()
}

func (m *TxnManager) runScoped(txn *Txn, fn func(*Txn) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			txn.rollback()
			panic(r)
		}
	}()
	return fn(txn)
}
