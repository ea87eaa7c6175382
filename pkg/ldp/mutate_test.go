package ldp

import (
	"strings"
	"testing"

	"github.com/clover-repo/ldpstore/internal/config"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

func strPtr(s string) *string { return &s }

func TestPostCreatesChildUnderRoot(t *testing.T) {
	repo, ctx := newTestRepo(t)

	if _, err := repo.Put(ctx, "", nil, HandlingLenient); err != nil {
		t.Fatalf("put root: %v", err)
	}

	childURI := uri(ctx, "child")
	payload := []*rdf.Triple{
		rdf.NewTriple(childURI, rdf.NewNamedNode("urn:test:title"), rdf.NewLiteral("hello")),
	}
	uid, outcome, err := repo.Post(ctx, "", strPtr("child"), payload, HandlingLenient)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if uid != "child" || outcome != Created {
		t.Fatalf("unexpected post result: uid=%q outcome=%v", uid, outcome)
	}

	got, err := repo.Get(ctx, "child", DefaultGetOptions())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	foundTitle := false
	for _, tr := range got.Triples {
		if tr.Predicate.(*rdf.NamedNode).IRI == "urn:test:title" {
			foundTitle = true
		}
	}
	if !foundTitle {
		t.Error("expected title triple to survive")
	}
	if !got.HasType(typeLdpRDFSource) {
		t.Error("expected base LDP type to be assigned")
	}
}

func TestPostSlugCollisionFallsBackToFreshUUID(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.Put(ctx, "", nil, HandlingLenient); err != nil {
		t.Fatalf("put root: %v", err)
	}

	childURI := uri(ctx, "dup")
	if _, _, err := repo.Post(ctx, "", strPtr("dup"), []*rdf.Triple{
		rdf.NewTriple(childURI, rdf.NewNamedNode("urn:test:title"), rdf.NewLiteral("first")),
	}, HandlingLenient); err != nil {
		t.Fatalf("first post: %v", err)
	}

	// The slug is only a hint: a second POST for the same slug must not
	// fail, it must fall back to a fresh uid.
	uid2, outcome, err := repo.Post(ctx, "", strPtr("dup"), nil, HandlingLenient)
	if err != nil {
		t.Fatalf("second post: %v", err)
	}
	if uid2 == "dup" || outcome != Created {
		t.Fatalf("expected a fresh uid distinct from the collided slug, got %q", uid2)
	}
}

func TestPutStripsProtectedTermsInLenientMode(t *testing.T) {
	repo, ctx := newTestRepo(t)
	resURI := uri(ctx, "r1")
	payload := []*rdf.Triple{
		rdf.NewTriple(resURI, predCreated, rdf.NewLiteral("2020-01-01T00:00:00Z")),
		rdf.NewTriple(resURI, rdf.NewNamedNode("urn:test:title"), rdf.NewLiteral("v1")),
	}
	if _, err := repo.Put(ctx, "r1", payload, HandlingLenient); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "r1", GetOptions{InclSrvMgd: true})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, tr := range got.Triples {
		if sameIRI(tr.Predicate, predCreated) {
			if lit, ok := tr.Object.(*rdf.Literal); ok && lit.Value == "2020-01-01T00:00:00Z" {
				t.Error("client-supplied fcrepo:created should have been stripped, not honored")
			}
		}
	}
}

func TestPutRejectsProtectedTermsInStrictMode(t *testing.T) {
	repo, ctx := newTestRepo(t)
	resURI := uri(ctx, "r2")
	payload := []*rdf.Triple{
		rdf.NewTriple(resURI, predCreated, rdf.NewLiteral("2020-01-01T00:00:00Z")),
	}
	_, err := repo.Put(ctx, "r2", payload, HandlingStrict)
	if err == nil {
		t.Fatal("expected PROTECTED_TERM error in strict mode")
	}
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrProtectedTerm {
		t.Fatalf("expected ResourceError(PROTECTED_TERM), got %v", err)
	}
}

func TestPutRejectsForeignSubject(t *testing.T) {
	repo, ctx := newTestRepo(t)
	payload := []*rdf.Triple{
		rdf.NewTriple(rdf.NewNamedNode("urn:test:other"), rdf.NewNamedNode("urn:test:p"), rdf.NewLiteral("v")),
	}
	_, err := repo.Put(ctx, "r3", payload, HandlingLenient)
	if err == nil {
		t.Fatal("expected SINGLE_SUBJECT error")
	}
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrSingleSubject {
		t.Fatalf("expected ResourceError(SINGLE_SUBJECT), got %v", err)
	}
}

func TestPutOnGoneUIDReturnsGone(t *testing.T) {
	repo, ctx := newTestRepo(t)
	if _, err := repo.Put(ctx, "gone1", nil, HandlingLenient); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := repo.Delete(ctx, "gone1", DefaultDeleteOptions()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := repo.Put(ctx, "gone1", nil, HandlingLenient)
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrGone {
		t.Fatalf("expected GONE, got %v", err)
	}
}

func TestReferentialIntegrityStrictRejectsDanglingReference(t *testing.T) {
	repo, ctx := newTestRepo(t)
	ctx.Config.Store.LdpRs.ReferentialIntegrity = config.RefIntStrict

	resURI := uri(ctx, "r4")
	missing := uri(ctx, "does-not-exist")
	payload := []*rdf.Triple{
		rdf.NewTriple(resURI, rdf.NewNamedNode("urn:test:ref"), missing),
	}
	_, err := repo.Put(ctx, "r4", payload, HandlingLenient)
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrRefIntViolation {
		t.Fatalf("expected REF_INT_VIOLATION, got %v", err)
	}
}

func TestReferentialIntegrityLenientPrunesDanglingReference(t *testing.T) {
	repo, ctx := newTestRepo(t)

	resURI := uri(ctx, "r5")
	missing := uri(ctx, "does-not-exist")
	payload := []*rdf.Triple{
		rdf.NewTriple(resURI, rdf.NewNamedNode("urn:test:ref"), missing),
	}
	if _, err := repo.Put(ctx, "r5", payload, HandlingLenient); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := repo.Get(ctx, "r5", DefaultGetOptions())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, tr := range got.Triples {
		if strings.Contains(tr.Predicate.(*rdf.NamedNode).IRI, "urn:test:ref") {
			t.Error("dangling reference should have been pruned under lenient mode")
		}
	}
}
