// Package keys implements term interning: deterministic serialization of
// RDF terms, content hashing for dedup lookup, and allocation of fixed-
// length TermKeys via KeySequence.
package keys

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/clover-repo/ldpstore/pkg/kvstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// CorruptIndexError is returned by Resolve when a TermKey has no t:st
// entry, which means the two tables have drifted out of the 1:1
// correspondence §3 requires. A t:st entry that fails to deserialize is
// reported as a plain decoding error, and Intern and Lookup do not compare
// the stored term with the one being hashed, so a hash collision between
// structurally different terms is not detected.
type CorruptIndexError struct {
	Reason string
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("keys: corrupt index: %s", e.Reason)
}

// TermCodec serializes, hashes, interns, and resolves RDF terms against a
// pair of tables: a data table (TermKey -> serialized term, "t:st") and an
// index table (term hash -> TermKey, "th:t").
type TermCodec struct {
	DataTable  kvstore.Table
	IndexTable kvstore.Table
	Hasher     Hasher
	Sequence   *KeySequence

	lastKeyKey []byte
}

// NewTermCodec builds a TermCodec with the given table names and a SHA1
// hasher over the default-length key sequence.
func NewTermCodec(dataTable, indexTable kvstore.Table) *TermCodec {
	return NewTermCodecWithOptions(dataTable, indexTable, SHA1Hasher{}, DefaultKeyLength)
}

// NewTermCodecWithOptions builds a TermCodec with an explicit hasher and
// key length, sourced from store.hash_algo/store.key_length.
func NewTermCodecWithOptions(dataTable, indexTable kvstore.Table, hasher Hasher, keyLength int) *TermCodec {
	seq := &KeySequence{Length: keyLength, Start: DefaultStartByte}
	return &TermCodec{
		DataTable:  dataTable,
		IndexTable: indexTable,
		Hasher:     hasher,
		Sequence:   seq,
		lastKeyKey: bytes.Repeat([]byte{0x00}, seq.Length),
	}
}

// Serialize produces a deterministic, structural (not textual) byte
// encoding of term: type tag, then length-prefixed fields. Two terms that
// are Term.Equals produce byte-identical output and vice versa.
func (c *TermCodec) Serialize(term rdf.Term) ([]byte, error) {
	var buf bytes.Buffer

	switch t := term.(type) {
	case *rdf.NamedNode:
		buf.WriteByte(byte(rdf.TermTypeNamedNode))
		writeString(&buf, t.IRI)
	case *rdf.BlankNode:
		buf.WriteByte(byte(rdf.TermTypeBlankNode))
		writeString(&buf, t.ID)
	case *rdf.Literal:
		buf.WriteByte(byte(rdf.TermTypeLiteral))
		writeString(&buf, t.Value)
		writeString(&buf, t.Language)
		if t.Datatype != nil {
			buf.WriteByte(1)
			writeString(&buf, t.Datatype.IRI)
		} else {
			buf.WriteByte(0)
		}
	case *rdf.DefaultGraph:
		buf.WriteByte(byte(rdf.TermTypeDefaultGraph))
	default:
		return nil, fmt.Errorf("keys: unsupported term type %T", term)
	}

	return buf.Bytes(), nil
}

// Deserialize is the inverse of Serialize.
func (c *TermCodec) Deserialize(data []byte) (rdf.Term, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("keys: empty serialized term")
	}
	r := bytes.NewReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch rdf.TermType(tag) {
	case rdf.TermTypeNamedNode:
		iri, err := readString(r)
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil

	case rdf.TermTypeBlankNode:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		return rdf.NewBlankNode(id), nil

	case rdf.TermTypeLiteral:
		value, err := readString(r)
		if err != nil {
			return nil, err
		}
		lang, err := readString(r)
		if err != nil {
			return nil, err
		}
		hasDatatype, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if hasDatatype == 1 {
			dtIRI, err := readString(r)
			if err != nil {
				return nil, err
			}
			if lang != "" {
				return nil, fmt.Errorf("keys: literal has both language tag and datatype")
			}
			return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dtIRI)), nil
		}
		if lang != "" {
			return rdf.NewLiteralWithLanguage(value, lang), nil
		}
		return rdf.NewLiteral(value), nil

	case rdf.TermTypeDefaultGraph:
		return rdf.NewDefaultGraph(), nil

	default:
		return nil, fmt.Errorf("keys: unknown term type tag %d", tag)
	}
}

// Intern looks up term's TermKey by content hash, allocating a fresh one
// via Sequence if this is the first time the term has been seen. Calling
// Intern twice for structurally equal terms within (or across) the same
// write transaction returns the same TermKey. dataTxn and indexTxn are the
// two environments' transactions (t:st/the key-sequence cursor live in the
// data environment; th:t lives in the index environment); callers pass the
// same handle twice for a single-environment test double.
func (c *TermCodec) Intern(dataTxn, indexTxn kvstore.Transaction, term rdf.Term) (TermKey, error) {
	ser, err := c.Serialize(term)
	if err != nil {
		return nil, err
	}
	hash := c.Hasher.Hash(ser)

	if existing, err := indexTxn.Get(c.IndexTable, hash); err == nil {
		return TermKey(existing), nil
	} else if err != kvstore.ErrNotFound {
		return nil, err
	}

	last, err := dataTxn.Get(c.DataTable, c.lastKeyKey)
	var next []byte
	switch {
	case err == kvstore.ErrNotFound:
		next = c.Sequence.First()
	case err != nil:
		return nil, err
	default:
		next, err = c.Sequence.Next(last)
		if err != nil {
			return nil, fmt.Errorf("keys: allocating term key: %w", err)
		}
	}

	if err := dataTxn.Set(c.DataTable, next, ser); err != nil {
		return nil, err
	}
	if err := indexTxn.Set(c.IndexTable, hash, next); err != nil {
		return nil, err
	}
	if err := dataTxn.Set(c.DataTable, c.lastKeyKey, next); err != nil {
		return nil, err
	}

	return TermKey(next), nil
}

// Lookup returns the TermKey already assigned to term, if any, without
// allocating a new one. The bool result is false if term has never been
// interned.
func (c *TermCodec) Lookup(indexTxn kvstore.Transaction, term rdf.Term) (TermKey, bool, error) {
	ser, err := c.Serialize(term)
	if err != nil {
		return nil, false, err
	}
	hash := c.Hasher.Hash(ser)

	key, err := indexTxn.Get(c.IndexTable, hash)
	if err == kvstore.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return TermKey(key), true, nil
}

// Resolve reads a term's serialized form back out of the data table and
// deserializes it. A missing entry is reported as a CorruptIndexError: any
// TermKey that was ever handed out must have a t:st entry for its entire
// lifetime.
func (c *TermCodec) Resolve(dataTxn kvstore.Transaction, key TermKey) (rdf.Term, error) {
	ser, err := dataTxn.Get(c.DataTable, key)
	if err == kvstore.ErrNotFound {
		return nil, &CorruptIndexError{Reason: fmt.Sprintf("term key %s has no t:st entry", key)}
	}
	if err != nil {
		return nil, err
	}
	return c.Deserialize(ser)
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	buf.Write(lenBuf[:n])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := r.Read(buf); err != nil && length > 0 {
		return "", err
	}
	return string(buf), nil
}
