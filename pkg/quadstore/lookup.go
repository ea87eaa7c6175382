package quadstore

import (
	"github.com/clover-repo/ldpstore/pkg/keys"
	"github.com/clover-repo/ldpstore/pkg/kvstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// tripleKeys resolves pattern (optionally scoped to graph/ck) to the set of
// matching triple keys. ck must already be resolved by the caller when
// graph is non-nil.
func (s *QuadStore) tripleKeys(txn *Txn, pattern TriplePattern, graph rdf.Term, ck keys.TermKey) ([]TripleKey, error) {
	if graph == nil {
		return s.lookup(txn, pattern)
	}

	if pattern.Subject != nil && pattern.Predicate != nil && pattern.Object != nil {
		tk, ok, err := s.exactTripleKey(txn, pattern)
		if err != nil || !ok {
			return nil, err
		}
		exists, err := s.spocExists(txn, tk, ck)
		if err != nil || !exists {
			return nil, err
		}
		return []TripleKey{tk}, nil
	}

	if pattern.Subject == nil && pattern.Predicate == nil && pattern.Object == nil {
		return s.triplesInContext(txn, ck)
	}

	all, err := s.lookup(txn, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]TripleKey, 0, len(all))
	for _, tk := range all {
		exists, err := s.spocExists(txn, tk, ck)
		if err != nil {
			return nil, err
		}
		if exists {
			out = append(out, tk)
		}
	}
	return out, nil
}

// lookup dispatches on which of s,p,o are bound, per the static strategy
// table: point probe when all three are bound, a ranked two-bound lookup
// (s, o, p) when exactly two are bound, a single-index scan when exactly
// one is bound, and a full nodup scan of spo:c when none are.
func (s *QuadStore) lookup(txn *Txn, pattern TriplePattern) ([]TripleKey, error) {
	sub, pred, obj := pattern.Subject, pattern.Predicate, pattern.Object

	switch {
	case sub != nil && pred != nil && obj != nil:
		tk, ok, err := s.exactTripleKey(txn, pattern)
		if err != nil || !ok {
			return nil, err
		}
		exists, err := s.tripleExists(txn, tk)
		if err != nil || !exists {
			return nil, err
		}
		return []TripleKey{tk}, nil

	case sub != nil && pred != nil:
		return s.lookup2Bound(txn, "s", sub, "p", pred)
	case sub != nil && obj != nil:
		return s.lookup2Bound(txn, "s", sub, "o", obj)
	case pred != nil && obj != nil:
		return s.lookup2Bound(txn, "p", pred, "o", obj)

	case sub != nil:
		return s.lookup1Bound(txn, "s", sub)
	case pred != nil:
		return s.lookup1Bound(txn, "p", pred)
	case obj != nil:
		return s.lookup1Bound(txn, "o", obj)

	default:
		return s.allTriples(txn)
	}
}

func tableForLabel(label string) kvstore.Table {
	switch label {
	case "s":
		return TableSByPO
	case "p":
		return TablePBySO
	case "o":
		return TableOBySP
	}
	return ""
}

// remainderLabels returns the two labels, in on-disk order, that follow
// the bound label's key in its single-bound index.
func remainderLabels(label string) [2]string {
	switch label {
	case "s":
		return [2]string{"p", "o"}
	case "p":
		return [2]string{"s", "o"}
	case "o":
		return [2]string{"s", "p"}
	}
	return [2]string{}
}

func compose(m map[string]keys.TermKey) TripleKey {
	return concatKeys(m["s"], m["p"], m["o"])
}

func (s *QuadStore) lookup1Bound(txn *Txn, label string, term rdf.Term) ([]TripleKey, error) {
	k, ok, err := s.codec.Lookup(txn.Index, term)
	if err != nil || !ok {
		return nil, err
	}

	table := tableForLabel(label)
	rem := remainderLabels(label)

	it, err := txn.Index.Scan(table, []byte(k), nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []TripleKey
	for it.Next() {
		full := it.Key()
		if len(full) != 3*s.keyLen {
			return nil, newStoreError(ErrCorruptIndex, nil)
		}
		remainder := full[s.keyLen:]
		m := map[string]keys.TermKey{
			label:  k,
			rem[0]: keys.TermKey(remainder[0:s.keyLen]),
			rem[1]: keys.TermKey(remainder[s.keyLen : 2*s.keyLen]),
		}
		out = append(out, compose(m))
	}
	return out, nil
}

func (s *QuadStore) lookup2Bound(txn *Txn, label1 string, term1 rdf.Term, label2 string, term2 rdf.Term) ([]TripleKey, error) {
	bound := map[string]rdf.Term{label1: term1, label2: term2}

	var primary, secondary string
	for _, l := range [...]string{"s", "o", "p"} {
		if _, ok := bound[l]; ok {
			if primary == "" {
				primary = l
			} else {
				secondary = l
			}
		}
	}

	k1, ok, err := s.codec.Lookup(txn.Index, bound[primary])
	if err != nil || !ok {
		return nil, err
	}
	k2, ok, err := s.codec.Lookup(txn.Index, bound[secondary])
	if err != nil || !ok {
		return nil, err
	}

	table := tableForLabel(primary)
	rem := remainderLabels(primary)
	filterPos := 0
	if rem[1] == secondary {
		filterPos = 1
	}
	freePos := 1 - filterPos
	freeLabel := rem[freePos]

	it, err := txn.Index.Scan(table, []byte(k1), nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []TripleKey
	for it.Next() {
		full := it.Key()
		if len(full) != 3*s.keyLen {
			return nil, newStoreError(ErrCorruptIndex, nil)
		}
		remainder := full[s.keyLen:]
		filterKey := keys.TermKey(remainder[filterPos*s.keyLen : (filterPos+1)*s.keyLen])
		if !filterKey.Equal(k2) {
			continue
		}
		freeKey := keys.TermKey(remainder[freePos*s.keyLen : (freePos+1)*s.keyLen])

		m := map[string]keys.TermKey{
			primary:   k1,
			secondary: k2,
			freeLabel: freeKey,
		}
		out = append(out, compose(m))
	}
	return out, nil
}

func (s *QuadStore) allTriples(txn *Txn) ([]TripleKey, error) {
	it, err := txn.Data.Scan(TableSPOByC, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	seen := make(map[string]bool)
	var out []TripleKey
	for it.Next() {
		full := it.Key()
		if len(full) < 3*s.keyLen {
			return nil, newStoreError(ErrCorruptIndex, nil)
		}
		tk := full[:3*s.keyLen]
		if seen[string(tk)] {
			continue
		}
		seen[string(tk)] = true
		out = append(out, TripleKey(append([]byte{}, tk...)))
	}
	return out, nil
}

// exactTripleKey resolves a fully-bound pattern to its TripleKey without
// checking whether that triple is actually stored.
func (s *QuadStore) exactTripleKey(txn *Txn, pattern TriplePattern) (TripleKey, bool, error) {
	sk, ok, err := s.codec.Lookup(txn.Index, pattern.Subject)
	if err != nil || !ok {
		return nil, false, err
	}
	pk, ok, err := s.codec.Lookup(txn.Index, pattern.Predicate)
	if err != nil || !ok {
		return nil, false, err
	}
	objKey, ok, err := s.codec.Lookup(txn.Index, pattern.Object)
	if err != nil || !ok {
		return nil, false, err
	}
	return concatKeys(sk, pk, objKey), true, nil
}

// tripleExists reports whether tk has at least one context association.
func (s *QuadStore) tripleExists(txn *Txn, tk TripleKey) (bool, error) {
	it, err := txn.Data.Scan(TableSPOByC, []byte(tk), nil)
	if err != nil {
		return false, err
	}
	defer it.Close()
	return it.Next(), nil
}

func (s *QuadStore) spocExists(txn *Txn, tk TripleKey, ck keys.TermKey) (bool, error) {
	_, err := txn.Data.Get(TableSPOByC, concatBytes(tk, ck))
	if err == kvstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// contextsForTriple returns every context key tk is associated with.
func (s *QuadStore) contextsForTriple(txn *Txn, tk TripleKey) ([]keys.TermKey, error) {
	it, err := txn.Data.Scan(TableSPOByC, []byte(tk), nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []keys.TermKey
	for it.Next() {
		full := it.Key()
		if len(full) <= 3*s.keyLen {
			return nil, newStoreError(ErrCorruptIndex, nil)
		}
		out = append(out, keys.TermKey(append([]byte{}, full[3*s.keyLen:]...)))
	}
	return out, nil
}

// triplesInContext returns every triple key associated with ck.
func (s *QuadStore) triplesInContext(txn *Txn, ck keys.TermKey) ([]TripleKey, error) {
	it, err := txn.Index.Scan(TableCBySPO, []byte(ck), nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []TripleKey
	for it.Next() {
		full := it.Key()
		if len(full) <= len(ck) {
			return nil, newStoreError(ErrCorruptIndex, nil)
		}
		out = append(out, TripleKey(append([]byte{}, full[len(ck):]...)))
	}
	return out, nil
}

// indexTriple adds or removes the s:po/p:so/o:sp index entries for a
// triple key's three terms.
func (s *QuadStore) indexTriple(txn *Txn, sk, pk, ok keys.TermKey, add bool) error {
	entries := []struct {
		table kvstore.Table
		key   []byte
	}{
		{TableSByPO, concatBytes(sk, pk, ok)},
		{TablePBySO, concatBytes(pk, sk, ok)},
		{TableOBySP, concatBytes(ok, sk, pk)},
	}
	for _, e := range entries {
		if add {
			if err := txn.Index.Set(e.table, e.key, nil); err != nil {
				return err
			}
		} else {
			if err := txn.Index.Delete(e.table, e.key); err != nil && err != kvstore.ErrNotFound {
				return err
			}
		}
	}
	return nil
}
