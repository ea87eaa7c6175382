package ldp

import (
	"github.com/clover-repo/ldpstore/internal/config"
	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// DeleteOptions controls delete()'s behavior, per SPEC_FULL §4.5 delete().
type DeleteOptions struct {
	LeaveTombstone bool
	DeleteChildren bool
	Inbound        bool
}

// DefaultDeleteOptions matches the distilled spec's stated defaults.
func DefaultDeleteOptions() DeleteOptions {
	return DeleteOptions{LeaveTombstone: true, DeleteChildren: true, Inbound: true}
}

// Delete implements SPEC_FULL §4.5 delete().
func (repo *Repository) Delete(ctx *OpContext, uid string, opts DeleteOptions) (Outcome, error) {
	if ctx.Config.Store.LdpRs.ReferentialIntegrity == config.RefIntStrict {
		opts.Inbound = true
	}

	var outcome Outcome
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
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

		var children []string
		if opts.DeleteChildren {
			var err error
			children, err = repo.descendants(txn, ctx, uid)
			if err != nil {
				return err
			}
		}

		var tstonePointer *rdf.NamedNode
		if opts.LeaveTombstone {
			if err := repo.buryResource(txn, ctx, uid, opts.Inbound, nil); err != nil {
				return err
			}
			tstonePointer = uri(ctx, uid)
		} else {
			if err := repo.purgeResource(txn, ctx, uid, opts.Inbound); err != nil {
				return err
			}
		}

		for _, childUID := range children {
			if opts.LeaveTombstone {
				if err := repo.buryResource(txn, ctx, childUID, opts.Inbound, tstonePointer); err != nil {
					return err
				}
			} else {
				if err := repo.purgeResource(txn, ctx, childUID, opts.Inbound); err != nil {
					return err
				}
			}
		}

		outcome = Deleted
		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: Deleted, Timestamp: ctx.now(), Actor: ctx.actor(),
		})
		return nil
	})
	repo.finishTxn(ctx, err)
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// descendants returns every uid transitively reachable from uid via
// ldp:contains, ported from delete()'s `self.imr[ldp:contains * '+']`.
func (repo *Repository) descendants(txn *quadstore.Txn, ctx *OpContext, uid string) ([]string, error) {
	var out []string
	queue := []string{uid}
	seen := map[string]bool{uid: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		graph := graphFor(ctx, cur)
		quads, err := repo.QS.Triples(txn, quadstore.TriplePattern{
			Subject: uri(ctx, cur), Predicate: predLdpContains,
		}, graph)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			nn, ok := q.Object.(*rdf.NamedNode)
			if !ok {
				continue
			}
			childUID := URIToUUID(ctx, nn.IRI)
			if seen[childUID] {
				continue
			}
			seen[childUID] = true
			out = append(out, childUID)
			queue = append(queue, childUID)
		}
	}
	return out, nil
}

// buryResource replaces uid's live graph with a tombstone marker, ported
// from ldpr.py's _bury_rsrc. A non-nil tstonePointer means uid became a
// tombstone only because an ancestor was deleted with delete_children, in
// which case it points at the ancestor's tombstone instead of asserting
// its own fcsystem:Tombstone type.
func (repo *Repository) buryResource(txn *quadstore.Txn, ctx *OpContext, uid string, inbound bool, tstonePointer *rdf.NamedNode) error {
	if _, err := repo.createRsrcSnapshot(txn, ctx, uid, NewUUID()); err != nil {
		return err
	}

	resURI := uri(ctx, uid)
	graph := graphFor(ctx, uid)
	if err := repo.QS.RemoveGraph(txn, graph); err != nil {
		return err
	}
	if err := repo.QS.AddGraph(txn, graph); err != nil {
		return err
	}

	if tstonePointer != nil {
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predTombstone, tstonePointer, graph)); err != nil {
			return err
		}
	} else {
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, rdfType, typeTombstone, graph)); err != nil {
			return err
		}
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predCreated, rdf.NewDateTimeLiteral(ctx.now()), graph)); err != nil {
			return err
		}
	}

	if inbound {
		if err := repo.removeInboundEdges(txn, ctx, resURI); err != nil {
			return err
		}
	}
	return nil
}

// removeInboundEdges deletes every triple, in any context, whose object is
// target, ported from _bury_rsrc/_purge_rsrc's inbound-cleanup loop. Per
// DESIGN.md's recorded Open Question decision, the target's own outbound
// edges are left untouched.
func (repo *Repository) removeInboundEdges(txn *quadstore.Txn, ctx *OpContext, target *rdf.NamedNode) error {
	inbound, err := repo.QS.Triples(txn, quadstore.TriplePattern{Object: target}, nil)
	if err != nil {
		return err
	}
	for _, q := range inbound {
		if sameIRI(q.Subject, target) {
			continue
		}
		if err := repo.QS.Remove(txn, quadstore.TriplePattern{
			Subject: q.Subject, Predicate: q.Predicate, Object: target,
		}, q.Graph); err != nil {
			return err
		}
	}
	return nil
}

// purgeResource hard-deletes uid: its live/tombstone graph, its versions
// index, and every version graph it names. Ported from ldpr.py's
// _purge_rsrc.
func (repo *Repository) purgeResource(txn *quadstore.Txn, ctx *OpContext, uid string, inbound bool) error {
	resURI := uri(ctx, uid)

	idxGraph := versionsIndexGraph(ctx, uid)
	versionsURI := UUIDToURI(ctx, versionsContainerUID(uid))
	verQuads, err := repo.QS.Triples(txn, quadstore.TriplePattern{
		Subject: versionsURI, Predicate: predHasVersion,
	}, idxGraph)
	if err != nil {
		return err
	}
	for _, q := range verQuads {
		if nn, ok := q.Object.(*rdf.NamedNode); ok {
			label := URIToUUID(ctx, nn.IRI)
			prefix := versionsContainerUID(uid) + "/"
			if len(label) > len(prefix) {
				label = label[len(prefix):]
			}
			if err := repo.QS.RemoveGraph(txn, versionGraphFor(ctx, uid, label)); err != nil {
				return err
			}
		}
	}
	if err := repo.QS.RemoveGraph(txn, idxGraph); err != nil {
		return err
	}

	if inbound {
		if err := repo.removeInboundEdges(txn, ctx, resURI); err != nil {
			return err
		}
	}

	return repo.QS.RemoveGraph(txn, graphFor(ctx, uid))
}

// Purge implements SPEC_FULL §4.5 purge(): hard-delete a resource, its
// tombstone, and all versions. No event is emitted.
func (repo *Repository) Purge(ctx *OpContext, uid string) error {
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		if ok, err := repo.exists(txn, ctx, uid); err != nil {
			return err
		} else if !ok {
			return newResourceError(ErrNotFound, uid, nil)
		}
		inbound := ctx.Config.Store.LdpRs.ReferentialIntegrity == config.RefIntStrict
		return repo.purgeResource(txn, ctx, uid, inbound)
	})
	repo.Journal.Discard() // purge never emits an event, committed or not.
	if err != nil {
		return err
	}
	return nil
}

// Resurrect implements SPEC_FULL §4.5 resurrect(): from a tombstone,
// restore the most recent pre-death snapshot's triples and re-establish
// containment.
func (repo *Repository) Resurrect(ctx *OpContext, uid string) (Outcome, error) {
	var outcome Outcome
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		tomb, _, err := repo.isTombstoned(txn, ctx, uid)
		if err != nil {
			return err
		}
		if !tomb {
			return newResourceError(ErrNotFound, uid, nil)
		}

		verURI, _, ok, err := repo.latestVersion(txn, ctx, uid)
		if err != nil {
			return err
		}
		if !ok {
			return newResourceError(ErrNotFound, uid, nil)
		}
		verGraphQuads, err := repo.QS.Triples(txn, quadstore.TriplePattern{Subject: verURI}, nil)
		if err != nil {
			return err
		}

		resURI := uri(ctx, uid)
		restored := make([]*rdf.Triple, 0, len(verGraphQuads))
		var sawContainer, sawBinary bool
		for _, q := range verGraphQuads {
			t := q.ToTriple()
			if nn, ok := t.Predicate.(*rdf.NamedNode); ok && nn.IRI == rdfType.IRI {
				if onn, ok := t.Object.(*rdf.NamedNode); ok {
					if onn.IRI == typeVersion.IRI {
						continue
					}
					if onn.IRI == typeLdpContainer.IRI {
						sawContainer = true
					}
					if onn.IRI == typeLdpNonRdfSource.IRI {
						sawBinary = true
					}
				}
			}
			restored = append(restored, rdf.NewTriple(resURI, t.Predicate, t.Object))
		}
		restored = append(restored, rdf.NewTriple(resURI, rdfType, typeResource))
		if sawBinary {
			restored = append(restored, rdf.NewTriple(resURI, rdfType, typeBinary))
		} else if sawContainer {
			restored = append(restored, rdf.NewTriple(resURI, rdfType, typeContainer))
		}

		graph := graphFor(ctx, uid)
		if err := repo.QS.RemoveGraph(txn, graph); err != nil {
			return err
		}
		if err := repo.QS.AddGraph(txn, graph); err != nil {
			return err
		}
		for _, t := range restored {
			if err := repo.QS.Add(txn, rdf.NewQuad(t.Subject, t.Predicate, t.Object, graph)); err != nil {
				return err
			}
		}
		checksum := GraphChecksum(restored)
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predHasMessageDigest,
			rdf.NewLiteral("urn:sha1:"+checksum), graph)); err != nil {
			return err
		}

		parentUID := ""
		if idx := lastSlash(uid); idx >= 0 {
			parentUID = uid[:idx]
		}
		if err := repo.addContainment(txn, ctx, parentUID, uid); err != nil {
			return err
		}

		outcome = Created
		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: Created, AddedTriples: restored,
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

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
