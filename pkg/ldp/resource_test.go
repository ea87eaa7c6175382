package ldp

import (
	"testing"

	"github.com/clover-repo/ldpstore/pkg/rdf"
)

func TestGetNotFoundForUnknownUID(t *testing.T) {
	repo, ctx := newTestRepo(t)
	_, err := repo.Get(ctx, "nope", DefaultGetOptions())
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetOmitsServerManagedTriplesByDefault(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.Put(ctx, "r1", nil, HandlingLenient); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "r1", DefaultGetOptions())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, tr := range got.Triples {
		if isServerManagedTriple(tr) {
			t.Errorf("expected server-managed triple to be hidden by default: %+v", tr)
		}
	}

	gotAll, err := repo.Get(ctx, "r1", GetOptions{InclSrvMgd: true, InclChildren: true})
	if err != nil {
		t.Fatalf("get incl_srv_mgd: %v", err)
	}
	if !gotAll.HasType(typeResource) {
		t.Error("expected fcrepo:Resource to be present when incl_srv_mgd is requested")
	}
}

func TestGetOnTombstoneReturnsGoneWithTimestamp(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.Put(ctx, "r2", nil, HandlingLenient); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := repo.Delete(ctx, "r2", DefaultDeleteOptions()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := repo.Get(ctx, "r2", DefaultGetOptions())
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrGone {
		t.Fatalf("expected GONE, got %v", err)
	}
	if _, ok := TombstoneTime(err); !ok {
		t.Error("expected a recoverable tombstone timestamp")
	}
}

func TestGetInclChildrenToggle(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.Put(ctx, "", nil, HandlingLenient); err != nil {
		t.Fatalf("put root: %v", err)
	}
	childURI := uri(ctx, "child")
	if _, _, err := repo.Post(ctx, "", strPtr("child"), []*rdf.Triple{
		rdf.NewTriple(childURI, rdf.NewNamedNode("urn:test:p"), rdf.NewLiteral("v")),
	}, HandlingLenient); err != nil {
		t.Fatalf("post: %v", err)
	}

	withChildren, err := repo.Get(ctx, "", GetOptions{InclChildren: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	found := false
	for _, tr := range withChildren.Triples {
		if isContainsTriple(tr) {
			found = true
		}
	}
	if !found {
		t.Error("expected ldp:contains triple when InclChildren is set")
	}

	withoutChildren, err := repo.Get(ctx, "", GetOptions{InclChildren: false})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, tr := range withoutChildren.Triples {
		if isContainsTriple(tr) {
			t.Error("expected ldp:contains triple to be omitted when InclChildren is false")
		}
	}
}
