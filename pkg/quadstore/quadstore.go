// Package quadstore implements the six-index quad store described by
// lakesuperior's LMDB store, realized over two BadgerDB environments. Term
// interning is delegated to pkg/keys; this package owns the triple/quad
// indices built on top of TermKeys.
package quadstore

import (
	"path/filepath"

	"github.com/clover-repo/ldpstore/pkg/keys"
	"github.com/clover-repo/ldpstore/pkg/kvstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// Table names, grouped by the environment that owns them. Indices are
// reconstructible from data, so they live in a separate environment that
// can be rebuilt without touching preservation-worthy state.
const (
	TableTermData  kvstore.Table = "t:st"
	TableSPOByC    kvstore.Table = "spo:c"
	TableCByID     kvstore.Table = "c:"
	TablePrefixNS  kvstore.Table = "pfx:ns"
	TableTermHash  kvstore.Table = "th:t"
	TableNSPrefix  kvstore.Table = "ns:pfx"
	TableSByPO     kvstore.Table = "s:po"
	TablePBySO     kvstore.Table = "p:so"
	TableOBySP     kvstore.Table = "o:sp"
	TableCBySPO    kvstore.Table = "c:spo"
)

var dataTables = []kvstore.Table{TableTermData, TableSPOByC, TableCByID, TablePrefixNS}
var indexTables = []kvstore.Table{TableTermHash, TableNSPrefix, TableSByPO, TablePBySO, TableOBySP, TableCBySPO}

// Options configures term-key layout and storage sizing for a QuadStore,
// mirroring store.key_length, store.hash_algo and store.map_size_bytes in
// internal/config.
type Options struct {
	KeyLength    int
	HashAlgo     string
	MapSizeBytes int64
}

// DefaultOptions matches keys.DefaultKeyLength, the SHA1 hasher, and
// Badger's own default sizing.
func DefaultOptions() Options {
	return Options{KeyLength: keys.DefaultKeyLength, HashAlgo: "sha1"}
}

func hasherFor(algo string) keys.Hasher {
	switch algo {
	case "xxh3":
		return keys.XXH3Hasher{}
	default:
		return keys.SHA1Hasher{}
	}
}

// TriplePattern is a triple with optional (nil) terms standing for an
// unbound position.
type TriplePattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
}

// TripleKey is the concatenation of three TermKeys: subject, predicate,
// object, in that order.
type TripleKey []byte

// QuadStore is the six-index quad store: two environments (data, index),
// term interning via a shared TermCodec, and a TxnManager that scopes
// transactions spanning both environments.
type QuadStore struct {
	data  kvstore.Storage
	index kvstore.Storage
	codec *keys.TermCodec

	keyLen int

	Txns *TxnManager
}

// Open opens (creating if necessary) a QuadStore rooted at path, with the
// data environment at <path>/main and the index environment at
// <path>/index, using keys.DefaultKeyLength, the SHA1 hasher, and Badger's
// own default sizing.
func Open(path string) (*QuadStore, error) {
	return OpenWithOptions(path, DefaultOptions())
}

// OpenWithOptions is Open with an explicit Options, sourced from
// internal/config.StoreConfig by callers that load a config file.
func OpenWithOptions(path string, opts Options) (*QuadStore, error) {
	keyLength := opts.KeyLength
	if keyLength <= 0 {
		keyLength = keys.DefaultKeyLength
	}

	data, err := kvstore.NewBadgerStorageWithSize(filepath.Join(path, "main"), dataTables, opts.MapSizeBytes)
	if err != nil {
		return nil, err
	}
	index, err := kvstore.NewBadgerStorageWithSize(filepath.Join(path, "index"), indexTables, opts.MapSizeBytes)
	if err != nil {
		data.Close()
		return nil, err
	}

	qs := &QuadStore{
		data:   data,
		index:  index,
		codec:  keys.NewTermCodecWithOptions(TableTermData, TableTermHash, hasherFor(opts.HashAlgo), keyLength),
		keyLen: keyLength,
	}
	qs.Txns = &TxnManager{store: qs}
	return qs, nil
}

// Close closes both environments. It attempts to close both even if the
// first fails.
func (s *QuadStore) Close() error {
	err1 := s.data.Close()
	err2 := s.index.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *QuadStore) begin(write bool) (*Txn, error) {
	dataTxn, err := s.data.Begin(write)
	if err != nil {
		return nil, err
	}
	indexTxn, err := s.index.Begin(write)
	if err != nil {
		dataTxn.Rollback()
		return nil, err
	}
	return &Txn{Data: dataTxn, Index: indexTxn, write: write}, nil
}

// Add interns quad's terms and records the (s,p,o,c) association, updating
// the s:po/p:so/o:sp indices. A nil Graph is treated as the default graph.
func (s *QuadStore) Add(txn *Txn, quad *rdf.Quad) error {
	if !txn.write {
		return newStoreError(ErrTxnReadOnly, nil)
	}

	graph := quad.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}

	sk, err := s.codec.Intern(txn.Data, txn.Index, quad.Subject)
	if err != nil {
		return err
	}
	pk, err := s.codec.Intern(txn.Data, txn.Index, quad.Predicate)
	if err != nil {
		return err
	}
	ok, err := s.codec.Intern(txn.Data, txn.Index, quad.Object)
	if err != nil {
		return err
	}
	ck, err := s.codec.Intern(txn.Data, txn.Index, graph)
	if err != nil {
		return err
	}

	if err := s.ensureContext(txn, ck); err != nil {
		return err
	}

	tk := concatKeys(sk, pk, ok)
	if err := txn.Data.Set(TableSPOByC, concatBytes(tk, ck), nil); err != nil {
		return err
	}
	if err := txn.Index.Set(TableCBySPO, concatBytes(ck, tk), nil); err != nil {
		return err
	}
	return s.indexTriple(txn, sk, pk, ok, true)
}

// Remove deletes every quad matching pattern. If graph is nil, every
// context association for each matching triple is removed; otherwise only
// the association with graph is removed (and the triple's own indices are
// dropped only once it has no context left).
func (s *QuadStore) Remove(txn *Txn, pattern TriplePattern, graph rdf.Term) error {
	if !txn.write {
		return newStoreError(ErrTxnReadOnly, nil)
	}

	var ck keys.TermKey
	if graph != nil {
		k, ok, err := s.codec.Lookup(txn.Index, graph)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ck = k
	}

	tks, err := s.tripleKeys(txn, pattern, graph, ck)
	if err != nil {
		return err
	}

	for _, tk := range tks {
		if graph != nil {
			if err := s.dropAssociation(txn, tk, ck); err != nil {
				return err
			}
			remaining, err := s.tripleExists(txn, tk)
			if err != nil {
				return err
			}
			if !remaining {
				sk, pk, ok := s.splitTripleKey(tk)
				if err := s.indexTriple(txn, sk, pk, ok, false); err != nil {
					return err
				}
			}
		} else {
			cks, err := s.contextsForTriple(txn, tk)
			if err != nil {
				return err
			}
			for _, c := range cks {
				if err := s.dropAssociation(txn, tk, c); err != nil {
					return err
				}
			}
			sk, pk, ok := s.splitTripleKey(tk)
			if err := s.indexTriple(txn, sk, pk, ok, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *QuadStore) dropAssociation(txn *Txn, tk TripleKey, ck keys.TermKey) error {
	if err := txn.Data.Delete(TableSPOByC, concatBytes(tk, ck)); err != nil && err != kvstore.ErrNotFound {
		return err
	}
	if err := txn.Index.Delete(TableCBySPO, concatBytes(ck, tk)); err != nil && err != kvstore.ErrNotFound {
		return err
	}
	return nil
}

// Triples returns every quad matching pattern. If graph is non-nil,
// results are restricted to that graph and every Quad.Graph equals graph.
// If graph is nil, one Quad is returned per (triple, context) pair the
// triple actually appears in.
func (s *QuadStore) Triples(txn *Txn, pattern TriplePattern, graph rdf.Term) ([]*rdf.Quad, error) {
	var ck keys.TermKey
	if graph != nil {
		k, ok, err := s.codec.Lookup(txn.Index, graph)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		ck = k
	}

	tks, err := s.tripleKeys(txn, pattern, graph, ck)
	if err != nil {
		return nil, err
	}

	var out []*rdf.Quad
	for _, tk := range tks {
		sk, pk, ok := s.splitTripleKey(tk)
		sTerm, err := s.codec.Resolve(txn.Data, sk)
		if err != nil {
			return nil, err
		}
		pTerm, err := s.codec.Resolve(txn.Data, pk)
		if err != nil {
			return nil, err
		}
		oTerm, err := s.codec.Resolve(txn.Data, ok)
		if err != nil {
			return nil, err
		}

		if graph != nil {
			out = append(out, rdf.NewQuad(sTerm, pTerm, oTerm, graph))
			continue
		}

		cks, err := s.contextsForTriple(txn, tk)
		if err != nil {
			return nil, err
		}
		for _, c := range cks {
			gTerm, err := s.codec.Resolve(txn.Data, c)
			if err != nil {
				return nil, err
			}
			out = append(out, rdf.NewQuad(sTerm, pTerm, oTerm, gTerm))
		}
	}
	return out, nil
}

// GraphView materializes a pattern match into a slice. It is a thin
// wrapper over Triples.
func (s *QuadStore) GraphView(txn *Txn, pattern TriplePattern, graph rdf.Term) ([]*rdf.Quad, error) {
	return s.Triples(txn, pattern, graph)
}

// ConstructSimple returns the distinct triples matching pattern, dropping
// the graph component and deduplicating across contexts.
func (s *QuadStore) ConstructSimple(txn *Txn, pattern TriplePattern, graph rdf.Term) ([]*rdf.Triple, error) {
	quads, err := s.Triples(txn, pattern, graph)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(quads))
	out := make([]*rdf.Triple, 0, len(quads))
	for _, q := range quads {
		t := q.ToTriple()
		key := t.Subject.String() + "\x00" + t.Predicate.String() + "\x00" + t.Object.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out, nil
}

// AskSimple reports whether any quad matches pattern.
func (s *QuadStore) AskSimple(txn *Txn, pattern TriplePattern, graph rdf.Term) (bool, error) {
	quads, err := s.Triples(txn, pattern, graph)
	if err != nil {
		return false, err
	}
	return len(quads) > 0, nil
}

// Contexts returns the registered graphs. If pattern is fully unbound, it
// lists every graph ever registered (via Add or AddGraph), including empty
// ones. If pattern is fully bound, it lists the graphs that triple appears
// in. Partially-bound patterns are not supported, mirroring the lookup
// restrictions of the source algorithm this is grounded on.
func (s *QuadStore) Contexts(txn *Txn, pattern TriplePattern) ([]rdf.Term, error) {
	switch {
	case pattern.Subject == nil && pattern.Predicate == nil && pattern.Object == nil:
		it, err := txn.Data.Scan(TableCByID, nil, nil)
		if err != nil {
			return nil, err
		}
		defer it.Close()
		var out []rdf.Term
		for it.Next() {
			term, err := s.codec.Resolve(txn.Data, keys.TermKey(it.Key()))
			if err != nil {
				return nil, err
			}
			out = append(out, term)
		}
		return out, nil

	case pattern.Subject != nil && pattern.Predicate != nil && pattern.Object != nil:
		tk, ok, err := s.exactTripleKey(txn, pattern)
		if err != nil || !ok {
			return nil, err
		}
		cks, err := s.contextsForTriple(txn, tk)
		if err != nil {
			return nil, err
		}
		var out []rdf.Term
		for _, c := range cks {
			term, err := s.codec.Resolve(txn.Data, c)
			if err != nil {
				return nil, err
			}
			out = append(out, term)
		}
		return out, nil

	default:
		return nil, newStoreError(ErrCorruptIndex, nil)
	}
}

// AddGraph registers graph as an (initially empty) context. This is needed
// so an explicitly-created empty graph is not indistinguishable from one
// that was never created.
func (s *QuadStore) AddGraph(txn *Txn, graph rdf.Term) error {
	if !txn.write {
		return newStoreError(ErrTxnReadOnly, nil)
	}
	ck, err := s.codec.Intern(txn.Data, txn.Index, graph)
	if err != nil {
		return err
	}
	return s.ensureContext(txn, ck)
}

// RemoveGraph removes every triple in graph and the graph registration
// itself.
func (s *QuadStore) RemoveGraph(txn *Txn, graph rdf.Term) error {
	if !txn.write {
		return newStoreError(ErrTxnReadOnly, nil)
	}
	if err := s.Remove(txn, TriplePattern{}, graph); err != nil {
		return err
	}
	ck, ok, err := s.codec.Lookup(txn.Index, graph)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := txn.Data.Delete(TableCByID, ck); err != nil && err != kvstore.ErrNotFound {
		return err
	}
	return nil
}

// Bind associates a prefix with a namespace IRI, bidirectionally.
func (s *QuadStore) Bind(txn *Txn, prefix, namespace string) error {
	if !txn.write {
		return newStoreError(ErrTxnReadOnly, nil)
	}
	if err := txn.Data.Set(TablePrefixNS, []byte(prefix), []byte(namespace)); err != nil {
		return err
	}
	return txn.Index.Set(TableNSPrefix, []byte(namespace), []byte(prefix))
}

// Namespace returns the namespace bound to prefix, if any.
func (s *QuadStore) Namespace(txn *Txn, prefix string) (string, bool, error) {
	v, err := txn.Data.Get(TablePrefixNS, []byte(prefix))
	if err == kvstore.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

// Prefix returns the prefix bound to namespace, if any. A namespace can be
// bound to only one prefix.
func (s *QuadStore) Prefix(txn *Txn, namespace string) (string, bool, error) {
	v, err := txn.Index.Get(TableNSPrefix, []byte(namespace))
	if err == kvstore.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

// Namespaces returns every prefix -> namespace binding.
func (s *QuadStore) Namespaces(txn *Txn) (map[string]string, error) {
	it, err := txn.Data.Scan(TablePrefixNS, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make(map[string]string)
	for it.Next() {
		val, err := it.Value()
		if err != nil {
			return nil, err
		}
		out[string(it.Key())] = string(val)
	}
	return out, nil
}

func (s *QuadStore) ensureContext(txn *Txn, ck keys.TermKey) error {
	_, err := txn.Data.Get(TableCByID, ck)
	if err == kvstore.ErrNotFound {
		return txn.Data.Set(TableCByID, ck, nil)
	}
	return err
}

func concatKeys(ks ...keys.TermKey) TripleKey {
	total := 0
	for _, k := range ks {
		total += len(k)
	}
	out := make([]byte, 0, total)
	for _, k := range ks {
		out = append(out, k...)
	}
	return out
}

func concatBytes(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (s *QuadStore) splitTripleKey(tk TripleKey) (sk, pk, ok keys.TermKey) {
	n := s.keyLen
	return keys.TermKey(tk[0:n]), keys.TermKey(tk[n : 2*n]), keys.TermKey(tk[2*n : 3*n])
}
