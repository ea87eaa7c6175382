package ldp

import (
	"github.com/clover-repo/ldpstore/internal/ldpupdate"
	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// Patch implements SPEC_FULL §4.5 patch(): apply a SPARQL-Update delta to
// uid's graph, atomically. Protected predicates and server-managed terms
// in the delta are rejected or stripped per handling mode.
func (repo *Repository) Patch(ctx *OpContext, uid, sparqlUpdate string, handling Handling) error {
	delta, err := ldpupdate.Parse(sparqlUpdate)
	if err != nil {
		return newResourceError(ErrInvalidResource, uid, err)
	}

	err = repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		if tomb, _, err := repo.isTombstoned(txn, ctx, uid); err != nil {
			return err
		} else if tomb {
			return newResourceError(ErrGone, uid, nil)
		}
		if ok, err := repo.exists(txn, ctx, uid); err != nil {
			return err
		} else if !ok {
			return newResourceError(ErrNotFound, uid, nil)
		}

		resURI := uri(ctx, uid)
		graph := graphFor(ctx, uid)

		if err := validateSingleSubject(resURI, delta.Remove); err != nil {
			return err
		}
		if err := validateSingleSubject(resURI, delta.Add); err != nil {
			return err
		}

		removeDelta, err := enforceHandling(uid, delta.Remove, handling)
		if err != nil {
			return err
		}
		addDelta, err := enforceHandling(uid, delta.Add, handling)
		if err != nil {
			return err
		}

		if len(delta.Where) > 0 {
			for _, t := range delta.Where {
				found, err := repo.QS.AskSimple(txn, quadstore.TriplePattern{
					Subject: t.Subject, Predicate: t.Predicate, Object: t.Object,
				}, graph)
				if err != nil {
					return err
				}
				if !found {
					// WHERE did not match; the update is a no-op, not an
					// error, matching a join that returns zero bindings.
					return nil
				}
			}
		}

		refMode := ctx.Config.Store.LdpRs.ReferentialIntegrity
		addDelta, err = repo.checkReferentialIntegrity(txn, ctx, uid, addDelta, refMode)
		if err != nil {
			return err
		}

		for _, t := range removeDelta {
			if err := repo.QS.Remove(txn, quadstore.TriplePattern{
				Subject: t.Subject, Predicate: t.Predicate, Object: t.Object,
			}, graph); err != nil {
				return err
			}
		}
		for _, t := range addDelta {
			if err := repo.QS.Add(txn, rdf.NewQuad(t.Subject, t.Predicate, t.Object, graph)); err != nil {
				return err
			}
		}

		for _, t := range serverManagedUpdateTriples(ctx, resURI) {
			if err := repo.QS.Remove(txn, quadstore.TriplePattern{
				Subject: t.Subject, Predicate: t.Predicate,
			}, graph); err != nil {
				return err
			}
			if err := repo.QS.Add(txn, rdf.NewQuad(t.Subject, t.Predicate, t.Object, graph)); err != nil {
				return err
			}
		}

		// current still carries the pre-patch premis:hasMessageDigest triple
		// (it's removed and replaced below); that's fine, since
		// GraphChecksum strips that predicate itself before hashing.
		current, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, graph)
		if err != nil {
			return err
		}
		asTriples := make([]*rdf.Triple, 0, len(current))
		for _, q := range current {
			asTriples = append(asTriples, q.ToTriple())
		}
		checksum := GraphChecksum(asTriples)
		if err := repo.QS.Remove(txn, quadstore.TriplePattern{
			Subject: resURI, Predicate: predHasMessageDigest,
		}, graph); err != nil {
			return err
		}
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predHasMessageDigest,
			rdf.NewLiteral("urn:sha1:"+checksum), graph)); err != nil {
			return err
		}

		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: Updated, AddedTriples: addDelta, RemovedTriples: removeDelta,
			Timestamp: ctx.now(), Actor: ctx.actor(),
		})
		return nil
	})
	repo.finishTxn(ctx, err)
	return err
}
