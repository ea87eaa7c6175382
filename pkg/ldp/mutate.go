package ldp

import (
	"strings"

	"github.com/clover-repo/ldpstore/internal/config"
	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// validateSingleSubject enforces that every triple in a payload names the
// resource's own IRI as subject, per SPEC_FULL §7's SINGLE_SUBJECT kind.
func validateSingleSubject(uri *rdf.NamedNode, triples []*rdf.Triple) error {
	for _, t := range triples {
		if !sameIRI(t.Subject, uri) {
			return newResourceError(ErrSingleSubject, uri.IRI, nil)
		}
	}
	return nil
}

// enforceHandling strips (lenient) or rejects (strict) server-managed
// terms from a client payload, per put()/patch()'s handling contract.
func enforceHandling(uid string, triples []*rdf.Triple, handling Handling) ([]*rdf.Triple, error) {
	out := make([]*rdf.Triple, 0, len(triples))
	for _, t := range triples {
		if isServerManagedTriple(t) || isProtected(t) {
			if handling == HandlingStrict {
				return nil, newResourceError(ErrProtectedTerm, uid, nil)
			}
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func isProtected(t *rdf.Triple) bool {
	nn, ok := t.Predicate.(*rdf.NamedNode)
	return ok && protectedPredicates[nn.IRI]
}

// checkReferentialIntegrity validates that every in-webroot object IRI in
// triples resolves to a live (non-tombstoned, existing) resource. Under
// strict mode a dangling reference fails with REF_INT_VIOLATION; otherwise
// the offending triple is pruned from the returned slice. A reference to uid
// itself is always kept, since uid is the resource being written.
func (repo *Repository) checkReferentialIntegrity(txn *quadstore.Txn, ctx *OpContext, uid string, triples []*rdf.Triple, mode config.ReferentialIntegrity) ([]*rdf.Triple, error) {
	if mode == config.RefIntNone {
		return triples, nil
	}

	out := make([]*rdf.Triple, 0, len(triples))
	for _, t := range triples {
		nn, ok := t.Object.(*rdf.NamedNode)
		if !ok || !strings.HasPrefix(nn.IRI, ctx.Webroot) {
			out = append(out, t)
			continue
		}
		targetUID := URIToUUID(ctx, nn.IRI)
		if targetUID == uid {
			out = append(out, t)
			continue
		}
		live, err := repo.exists(txn, ctx, targetUID)
		if err != nil {
			return nil, err
		}
		if live {
			tomb, _, err := repo.isTombstoned(txn, ctx, targetUID)
			if err != nil {
				return nil, err
			}
			live = !tomb
		}
		if !live {
			if mode == config.RefIntStrict {
				return nil, newResourceError(ErrRefIntViolation, uid, nil)
			}
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func serverManagedCreateTriples(ctx *OpContext, uri *rdf.NamedNode) []*rdf.Triple {
	now := ctx.now()
	out := []*rdf.Triple{
		rdf.NewTriple(uri, predCreated, rdf.NewDateTimeLiteral(now)),
		rdf.NewTriple(uri, predCreatedBy, rdf.NewLiteral(ctx.actor())),
		rdf.NewTriple(uri, predLastModified, rdf.NewDateTimeLiteral(now)),
		rdf.NewTriple(uri, predLastModifiedBy, rdf.NewLiteral(ctx.actor())),
	}
	for _, bt := range baseTypes {
		out = append(out, rdf.NewTriple(uri, rdfType, bt))
	}
	return out
}

func serverManagedUpdateTriples(ctx *OpContext, uri *rdf.NamedNode) []*rdf.Triple {
	now := ctx.now()
	return []*rdf.Triple{
		rdf.NewTriple(uri, predLastModified, rdf.NewDateTimeLiteral(now)),
		rdf.NewTriple(uri, predLastModifiedBy, rdf.NewLiteral(ctx.actor())),
	}
}

// writeGraph replaces every user-managed triple of uid's graph with
// triples, preserving whatever server-managed triples keep are asked to
// survive (used by put's replace path to keep fcrepo:created/createdBy).
func (repo *Repository) writeGraph(txn *quadstore.Txn, ctx *OpContext, graph *rdf.NamedNode, uid string, triples []*rdf.Triple, preserve []*rdf.Triple) error {
	if err := repo.QS.RemoveGraph(txn, graph); err != nil {
		return err
	}
	if err := repo.QS.AddGraph(txn, graph); err != nil {
		return err
	}
	for _, t := range append(append([]*rdf.Triple{}, triples...), preserve...) {
		if err := repo.QS.Add(txn, rdf.NewQuad(t.Subject, t.Predicate, t.Object, graph)); err != nil {
			return err
		}
	}
	checksum := GraphChecksum(append(append([]*rdf.Triple{}, triples...), preserve...))
	return repo.QS.Add(txn, rdf.NewQuad(uri(ctx, uid), predHasMessageDigest,
		rdf.NewLiteral("urn:sha1:"+checksum), graph))
}

func uri(ctx *OpContext, uid string) *rdf.NamedNode { return UUIDToURI(ctx, uid) }

// Post implements SPEC_FULL §4.5 post(): create a new child of parentUID.
// Effective uid = parentUID + "/" + (slug or a fresh UUID), or just the slug
// or UUID when parentUID is the root ""; if a resource
// already exists at that uid, slug is discarded and a fresh UUID is tried,
// per "slug is treated as a hint".
func (repo *Repository) Post(ctx *OpContext, parentUID string, slug *string, payload []*rdf.Triple, handling Handling) (string, Outcome, error) {
	var childUID string
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		parentExists, err := repo.exists(txn, ctx, parentUID)
		if err != nil {
			return err
		}
		if !parentExists {
			return newResourceError(ErrNotFound, parentUID, nil)
		}
		if tomb, _, err := repo.isTombstoned(txn, ctx, parentUID); err != nil {
			return err
		} else if tomb {
			return newResourceError(ErrGone, parentUID, nil)
		}

		hint := ""
		if slug != nil {
			hint = *slug
		}
		for {
			candidate := hint
			if candidate == "" {
				candidate = NewUUID()
			}
			uid := candidate
			if parentUID != "" {
				uid = parentUID + "/" + candidate
			}
			taken, err := repo.exists(txn, ctx, uid)
			if err != nil {
				return err
			}
			if !taken {
				childUID = uid
				break
			}
			hint = "" // retry with a fresh UUID, slug was only a hint
		}

		filtered, err := enforceHandling(childUID, payload, handling)
		if err != nil {
			return err
		}
		childURI := uri(ctx, childUID)
		if err := validateSingleSubject(childURI, filtered); err != nil {
			return err
		}

		refMode := ctx.Config.Store.LdpRs.ReferentialIntegrity
		filtered, err = repo.checkReferentialIntegrity(txn, ctx, childUID, filtered, refMode)
		if err != nil {
			return err
		}

		graph := graphFor(ctx, childUID)
		if err := repo.QS.AddGraph(txn, graph); err != nil {
			return err
		}
		if err := repo.writeGraph(txn, ctx, graph, childUID, filtered, serverManagedCreateTriples(ctx, childURI)); err != nil {
			return err
		}

		actualParent, err := repo.materializePairtree(txn, ctx, childUID)
		if err != nil {
			return err
		}
		if actualParent == "" {
			actualParent = parentUID
		}
		if err := repo.addContainment(txn, ctx, actualParent, childUID); err != nil {
			return err
		}
		if err := repo.applyMembershipInference(txn, ctx, actualParent, childURI, filtered); err != nil {
			return err
		}

		repo.Journal.Record(ChangeEvent{
			UID: childUID, EventType: Created, AddedTriples: filtered,
			Timestamp: ctx.now(), Actor: ctx.actor(),
		})
		return nil
	})
	repo.finishTxn(ctx, err)
	if err != nil {
		return "", 0, err
	}
	return childUID, Created, nil
}

// Put implements SPEC_FULL §4.5 put(): create-or-replace.
func (repo *Repository) Put(ctx *OpContext, uid string, payload []*rdf.Triple, handling Handling) (Outcome, error) {
	var outcome Outcome
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		if tomb, _, err := repo.isTombstoned(txn, ctx, uid); err != nil {
			return err
		} else if tomb {
			return newResourceError(ErrGone, uid, nil)
		}

		already, err := repo.exists(txn, ctx, uid)
		if err != nil {
			return err
		}

		filtered, err := enforceHandling(uid, payload, handling)
		if err != nil {
			return err
		}
		resURI := uri(ctx, uid)
		if err := validateSingleSubject(resURI, filtered); err != nil {
			return err
		}
		refMode := ctx.Config.Store.LdpRs.ReferentialIntegrity
		filtered, err = repo.checkReferentialIntegrity(txn, ctx, uid, filtered, refMode)
		if err != nil {
			return err
		}

		graph := graphFor(ctx, uid)

		var preserve []*rdf.Triple
		if already {
			existing, err := repo.QS.Triples(txn, quadstore.TriplePattern{
				Subject: resURI, Predicate: predCreated,
			}, graph)
			if err != nil {
				return err
			}
			createdBy, err := repo.QS.Triples(txn, quadstore.TriplePattern{
				Subject: resURI, Predicate: predCreatedBy,
			}, graph)
			if err != nil {
				return err
			}
			for _, q := range existing {
				preserve = append(preserve, q.ToTriple())
			}
			for _, q := range createdBy {
				preserve = append(preserve, q.ToTriple())
			}
			preserve = append(preserve, serverManagedUpdateTriples(ctx, resURI)...)
			for _, bt := range baseTypes {
				preserve = append(preserve, rdf.NewTriple(resURI, rdfType, bt))
			}
		} else {
			if err := repo.QS.AddGraph(txn, graph); err != nil {
				return err
			}
			preserve = serverManagedCreateTriples(ctx, resURI)
		}

		if err := repo.writeGraph(txn, ctx, graph, uid, filtered, preserve); err != nil {
			return err
		}

		if !already {
			actualParent, err := repo.materializePairtree(txn, ctx, uid)
			if err != nil {
				return err
			}
			if actualParent != "" || !strings.Contains(uid, "/") {
				parentUID := actualParent
				if !strings.Contains(uid, "/") {
					parentUID = ""
				}
				if err := repo.addContainment(txn, ctx, parentUID, uid); err != nil {
					return err
				}
				if err := repo.applyMembershipInference(txn, ctx, parentUID, resURI, filtered); err != nil {
					return err
				}
			}
			outcome = Created
		} else {
			outcome = Updated
		}

		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: outcome, AddedTriples: filtered,
			Timestamp: ctx.now(), Actor: ctx.actor(),
		})
		return nil
	})
	repo.finishTxn(ctx, err)
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// finishTxn dispatches or discards the journal's pending records
// according to whether the write transaction committed, and whether
// event dispatch is enabled in configuration.
func (repo *Repository) finishTxn(ctx *OpContext, err error) {
	if err != nil {
		repo.Journal.Discard()
		return
	}
	repo.Journal.Commit(ctx.Config.Messaging.Enabled)
}
