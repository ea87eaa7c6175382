package ldp

import (
	"testing"

	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

func newTestRepo(t *testing.T) (*Repository, *OpContext) {
	t.Helper()
	qs, err := quadstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { qs.Close() })
	return NewRepository(qs, nil, NewEventJournal(nil)), testCtx()
}

func triple(s, p string, o *rdf.NamedNode) *rdf.Triple {
	return rdf.NewTriple(rdf.NewNamedNode(s), rdf.NewNamedNode(p), o)
}
