package ldp

import (
	"time"

	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// Repository is the storage-facing entry point for the LDP resource layer:
// a QuadStore for metadata, an optional BinaryStore for non-RDF content,
// and an EventJournal dispatched on every committed write. It corresponds
// to the collaborators Ldpr.__init__ pulls from current_app (rdfly,
// nonrdfly) plus the atomic decorator's changelog/dispatch behavior.
type Repository struct {
	QS      *quadstore.QuadStore
	Bin     BinaryStore
	Journal *EventJournal
}

// NewRepository wires a QuadStore (required), an optional BinaryStore, and
// an EventJournal (nil is replaced by NewEventJournal(nil), the default
// LogSink-backed journal).
func NewRepository(qs *quadstore.QuadStore, bin BinaryStore, journal *EventJournal) *Repository {
	if journal == nil {
		journal = NewEventJournal(nil)
	}
	return &Repository{QS: qs, Bin: bin, Journal: journal}
}

// Outcome reports which of the three possible write results an operation
// produced, modeling ldpr.py's RES_CREATED/RES_UPDATED/RES_DELETED result
// strings as a Go-native enum per SPEC_FULL §9 ("exception-driven control
// flow... model outcomes as a result variant").
type Outcome int

const (
	Created Outcome = iota
	Updated
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "CREATED"
	case Updated:
		return "UPDATED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// LdpResource is the in-memory representation (IMR) returned by Get: a
// resource's metadata graph, already filtered per GetOptions.
type LdpResource struct {
	UID     string
	URI     *rdf.NamedNode
	Triples []*rdf.Triple
}

// Types returns the rdf:type objects asserted directly on r.URI.
func (r *LdpResource) Types() []rdf.Term {
	var out []rdf.Term
	for _, t := range r.Triples {
		if sameIRI(t.Subject, r.URI) && sameIRI(t.Predicate, rdfType) {
			out = append(out, t.Object)
		}
	}
	return out
}

// HasType reports whether r asserts rdf:type want on itself.
func (r *LdpResource) HasType(want *rdf.NamedNode) bool {
	for _, t := range r.Types() {
		if sameIRI(t, want) {
			return true
		}
	}
	return false
}

func sameIRI(t rdf.Term, n *rdf.NamedNode) bool {
	nn, ok := t.(*rdf.NamedNode)
	return ok && nn.IRI == n.IRI
}

// graphFor returns the named graph a resource's metadata (and, for the
// tombstone state, its tombstone marker) is stored under: the resource's
// own canonical IRI. This realizes the "rsrc-centric" layout the original
// source's VERS_CONT_LABEL/context-per-resource convention describes,
// mapped onto QuadStore's context dimension instead of a separate
// resource-centric store.
func graphFor(ctx *OpContext, uid string) *rdf.NamedNode {
	return UUIDToURI(ctx, uid)
}

func versionGraphFor(ctx *OpContext, uid, verUID string) *rdf.NamedNode {
	return UUIDToURI(ctx, uid+"/fcr:versions/"+verUID)
}

// managedPredicates are stripped from (or rejected in) client payloads and
// from GET output unless incl_srv_mgd is requested.
var managedPredicates = map[string]bool{
	predCreated.IRI:          true,
	predCreatedBy.IRI:        true,
	predLastModified.IRI:     true,
	predLastModifiedBy.IRI:   true,
	predHasParent.IRI:        true,
	predHasVersion.IRI:       true,
	predHasVersions.IRI:      true,
	predHasMessageDigest.IRI: true,
}

// managedTypes are the rdf:type objects considered server-managed
// classification rather than user data, ported from lakesuperior's
// srv_mgd_types (base_types plus the structural markers ldpr.py assigns in
// _add_ldp_rs_triples / pairtree creation / versioning).
var managedTypes = map[string]bool{
	typeResource.IRI:       true,
	typeLdpResource.IRI:    true,
	typeLdpRDFSource.IRI:   true,
	typeLdpNonRdfSource.IRI: true,
	typeContainer.IRI:      true,
	typeLdpContainer.IRI:   true,
	typeLdpBasicContainer.IRI: true,
	typePairtree.IRI:       true,
	typeVersion.IRI:        true,
	typeBinary.IRI:         true,
	typeTombstone.IRI:      true,
}

func isServerManagedTriple(t *rdf.Triple) bool {
	if nn, ok := t.Predicate.(*rdf.NamedNode); ok {
		if managedPredicates[nn.IRI] {
			return true
		}
		if nn.IRI == rdfType.IRI {
			if onn, ok := t.Object.(*rdf.NamedNode); ok && managedTypes[onn.IRI] {
				return true
			}
		}
	}
	return false
}

func isContainsTriple(t *rdf.Triple) bool {
	nn, ok := t.Predicate.(*rdf.NamedNode)
	return ok && nn.IRI == predLdpContains.IRI
}

// isTombstoned reports whether uid's graph currently holds a tombstone
// marker, and if so returns its recorded creation time. A descendant buried
// alongside an ancestor's delete_children carries only a fcsystem:tombstone
// pointer rather than its own rdf:type Tombstone assertion (see buryResource);
// in that case the timestamp is read from the pointed-at resource's own
// tombstone.
func (repo *Repository) isTombstoned(txn *quadstore.Txn, ctx *OpContext, uid string) (bool, time.Time, error) {
	uri := UUIDToURI(ctx, uid)
	graph := graphFor(ctx, uid)

	direct, err := repo.QS.AskSimple(txn, quadstore.TriplePattern{
		Subject:   uri,
		Predicate: rdfType,
		Object:    typeTombstone,
	}, graph)
	if err != nil {
		return false, time.Time{}, err
	}
	if direct {
		quads, err := repo.QS.Triples(txn, quadstore.TriplePattern{
			Subject:   uri,
			Predicate: predCreated,
		}, graph)
		if err != nil {
			return true, time.Time{}, err
		}
		for _, q := range quads {
			if lit, ok := q.Object.(*rdf.Literal); ok {
				if ts, err := time.Parse(time.RFC3339, lit.Value); err == nil {
					return true, ts, nil
				}
			}
		}
		return true, time.Time{}, nil
	}

	pointers, err := repo.QS.Triples(txn, quadstore.TriplePattern{
		Subject:   uri,
		Predicate: predTombstone,
	}, graph)
	if err != nil {
		return false, time.Time{}, err
	}
	if len(pointers) == 0 {
		return false, time.Time{}, nil
	}
	target, ok := pointers[0].Object.(*rdf.NamedNode)
	if !ok {
		return true, time.Time{}, nil
	}
	return repo.isTombstoned(txn, ctx, URIToUUID(ctx, target.IRI))
}

// exists reports whether uid's graph holds any triple at all (tombstoned
// or live).
func (repo *Repository) exists(txn *quadstore.Txn, ctx *OpContext, uid string) (bool, error) {
	graph := graphFor(ctx, uid)
	triples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, graph)
	if err != nil {
		return false, err
	}
	return len(triples) > 0, nil
}

// Get implements SPEC_FULL §4.5 get(): returns the filtered IMR for uid, or
// NOT_FOUND/GONE.
func (repo *Repository) Get(ctx *OpContext, uid string, opts GetOptions) (*LdpResource, error) {
	var result *LdpResource
	err := repo.QS.Txns.With(false, func(txn *quadstore.Txn) error {
		tombstoned, createdAt, err := repo.isTombstoned(txn, ctx, uid)
		if err != nil {
			return err
		}
		if tombstoned {
			return newResourceError(ErrGone, uid, goneAt(createdAt))
		}

		graph := graphFor(ctx, uid)
		triples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, graph)
		if err != nil {
			return err
		}
		if len(triples) == 0 {
			return newResourceError(ErrNotFound, uid, nil)
		}

		uri := UUIDToURI(ctx, uid)
		out := make([]*rdf.Triple, 0, len(triples))
		for _, q := range triples {
			t := q.ToTriple()
			if !opts.InclSrvMgd && isServerManagedTriple(t) {
				continue
			}
			if !opts.InclChildren && isContainsTriple(t) {
				continue
			}
			out = append(out, t)
		}

		if opts.InclInbound {
			inbound, err := repo.QS.Triples(txn, quadstore.TriplePattern{Object: uri}, nil)
			if err != nil {
				return err
			}
			for _, q := range inbound {
				t := q.ToTriple()
				if sameIRI(t.Subject, uri) {
					continue
				}
				out = append(out, t)
			}
		}

		if opts.EmbedChildren {
			embedded, err := repo.embeddedChildTriples(txn, ctx, uid, opts)
			if err != nil {
				return err
			}
			out = append(out, embedded...)
		}

		result = &LdpResource{UID: uid, URI: uri, Triples: out}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// embeddedChildTriples returns the filtered metadata graph of every direct
// ldp:contains child of uid, per SPEC_FULL §4.5 get()'s embed_children
// filter (fcrepo:EmbedResources). Embedding does not recurse into a child's
// own children. A tombstoned child is skipped rather than surfacing GONE
// inline.
func (repo *Repository) embeddedChildTriples(txn *quadstore.Txn, ctx *OpContext, uid string, opts GetOptions) ([]*rdf.Triple, error) {
	graph := graphFor(ctx, uid)
	parentURI := UUIDToURI(ctx, uid)

	contains, err := repo.QS.Triples(txn, quadstore.TriplePattern{
		Subject: parentURI, Predicate: predLdpContains,
	}, graph)
	if err != nil {
		return nil, err
	}

	var out []*rdf.Triple
	for _, q := range contains {
		childURI, ok := q.Object.(*rdf.NamedNode)
		if !ok {
			continue
		}
		childUID := URIToUUID(ctx, childURI.IRI)

		if tombstoned, _, err := repo.isTombstoned(txn, ctx, childUID); err != nil {
			return nil, err
		} else if tombstoned {
			continue
		}

		childGraph := graphFor(ctx, childUID)
		childTriples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, childGraph)
		if err != nil {
			return nil, err
		}
		for _, cq := range childTriples {
			t := cq.ToTriple()
			if !opts.InclSrvMgd && isServerManagedTriple(t) {
				continue
			}
			if !opts.InclChildren && isContainsTriple(t) {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}

type goneError struct {
	at time.Time
}

func (e *goneError) Error() string { return "gone: " + e.at.Format(time.RFC3339) }

// goneAt wraps a tombstone's creation time so callers can recover it via
// errors.As on the wrapped *goneError, per get()'s "GONE with the creation
// timestamp" contract.
func goneAt(t time.Time) error { return &goneError{at: t} }

// TombstoneTime extracts the creation timestamp from a GONE ResourceError,
// if present.
func TombstoneTime(err error) (time.Time, bool) {
	re, ok := err.(*ResourceError)
	if !ok || re.Kind != ErrGone {
		return time.Time{}, false
	}
	ge, ok := re.Err.(*goneError)
	if !ok {
		return time.Time{}, false
	}
	return ge.at, true
}
