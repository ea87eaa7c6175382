package ldp

import "io"

// BinaryStore is the external collaborator an LdpResource tagged as
// fcrepo:Binary delegates byte storage to; the core never reads or writes
// file bytes itself. See SPEC_FULL §4.5 ("Supplemented: binary (non-RDF)
// resources").
type BinaryStore interface {
	Put(uid string, r io.Reader) (checksum string, size int64, err error)
	Get(uid string) (io.ReadCloser, error)
	Delete(uid string) error
}

// Disposition is the already-parsed Content-Disposition filename the
// framing layer hands to the core; header parsing itself stays with the
// collaborator.
type Disposition struct {
	Filename string
}
