package ldp

import (
	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

const versionsLabel = "fcr:versions"

func versionsContainerUID(uid string) string { return uid + "/" + versionsLabel }

// versionsIndexGraph is a small standing record, independent of the live
// resource's own graph, that lists every version ever snapshotted for uid
// and when. It survives a tombstone wipe of the live graph (which replaces
// only graphFor(uid), not this one), which is what lets Resurrect locate
// the most recent pre-death snapshot after the live graph has already been
// overwritten with tombstone triples.
func versionsIndexGraph(ctx *OpContext, uid string) *rdf.NamedNode {
	return graphFor(ctx, versionsContainerUID(uid))
}

// excludedFromSnapshot are the predicates create_rsrc_snapshot (ldpr.py)
// drops when copying the live graph into a version: they describe the
// live resource's place in the store rather than its content.
var excludedFromSnapshot = map[string]bool{
	predHasParent.IRI:        true,
	predHasVersion.IRI:       true,
	predHasVersions.IRI:      true,
	predHasMessageDigest.IRI: true,
}

func excludedSnapshotType(nn *rdf.NamedNode) bool {
	switch nn.IRI {
	case typeBinary.IRI, typeContainer.IRI, typeResource.IRI:
		return true
	}
	return false
}

// createRsrcSnapshot copies uid's current live graph into a new version
// under uid/fcr:versions/verUID, ported from ldpr.py's
// create_rsrc_snapshot. It is the shared primitive behind both the public
// CreateVersion operation and delete()'s pre-tombstone backup.
func (repo *Repository) createRsrcSnapshot(txn *quadstore.Txn, ctx *OpContext, uid, verUID string) (*rdf.NamedNode, error) {
	verFullUID := versionsContainerUID(uid) + "/" + verUID
	verURI := UUIDToURI(ctx, verFullUID)
	verGraph := versionGraphFor(ctx, uid, verUID)

	if err := repo.QS.AddGraph(txn, verGraph); err != nil {
		return nil, err
	}
	if err := repo.QS.Add(txn, rdf.NewQuad(verURI, rdfType, typeVersion, verGraph)); err != nil {
		return nil, err
	}

	live, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, graphFor(ctx, uid))
	if err != nil {
		return nil, err
	}
	for _, q := range live {
		if nn, ok := q.Predicate.(*rdf.NamedNode); ok {
			if excludedFromSnapshot[nn.IRI] {
				continue
			}
			if nn.IRI == rdfType.IRI {
				if onn, ok := q.Object.(*rdf.NamedNode); ok && excludedSnapshotType(onn) {
					continue
				}
			}
		}
		if err := repo.QS.Add(txn, rdf.NewQuad(verURI, q.Predicate, q.Object, verGraph)); err != nil {
			return nil, err
		}
	}

	idxGraph := versionsIndexGraph(ctx, uid)
	if err := repo.QS.AddGraph(txn, idxGraph); err != nil {
		return nil, err
	}
	versionsURI := UUIDToURI(ctx, versionsContainerUID(uid))
	if err := repo.QS.Add(txn, rdf.NewQuad(versionsURI, predHasVersion, verURI, idxGraph)); err != nil {
		return nil, err
	}
	if err := repo.QS.Add(txn, rdf.NewQuad(verURI, predCreated, rdf.NewDateTimeLiteral(ctx.now()), idxGraph)); err != nil {
		return nil, err
	}

	return verURI, nil
}

// latestVersion returns the most recently created version URI and its
// uid-relative label, or ok=false if uid has no versions.
func (repo *Repository) latestVersion(txn *quadstore.Txn, ctx *OpContext, uid string) (verURI *rdf.NamedNode, label string, ok bool, err error) {
	idxGraph := versionsIndexGraph(ctx, uid)
	versionsURI := UUIDToURI(ctx, versionsContainerUID(uid))
	quads, err := repo.QS.Triples(txn, quadstore.TriplePattern{
		Subject: versionsURI, Predicate: predHasVersion,
	}, idxGraph)
	if err != nil {
		return nil, "", false, err
	}

	var best *rdf.NamedNode
	var bestLabel string
	var bestTS string
	for _, q := range quads {
		nn, isNode := q.Object.(*rdf.NamedNode)
		if !isNode {
			continue
		}
		tsQuads, err := repo.QS.Triples(txn, quadstore.TriplePattern{
			Subject: nn, Predicate: predCreated,
		}, idxGraph)
		if err != nil {
			return nil, "", false, err
		}
		ts := ""
		if len(tsQuads) > 0 {
			if lit, ok := tsQuads[0].Object.(*rdf.Literal); ok {
				ts = lit.Value
			}
		}
		if best == nil || ts > bestTS {
			best = nn
			bestTS = ts
			prefix := versionsContainerUID(uid) + "/"
			bestLabel = URIToUUID(ctx, nn.IRI)[len(prefix):]
		}
	}
	if best == nil {
		return nil, "", false, nil
	}
	return best, bestLabel, true, nil
}

// CreateVersion implements SPEC_FULL §4.5 createVersion(): snapshot uid's
// current metadata graph under a fresh or caller-supplied version label,
// and record fcrepo:hasVersion/fcrepo:hasVersions on the live resource.
func (repo *Repository) CreateVersion(ctx *OpContext, uid string, verUID *string) (string, error) {
	var resultLabel string
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

		label := ""
		if verUID != nil {
			label = *verUID
		}
		if label != "" {
			if _, _, taken, err := repo.versionByLabel(txn, ctx, uid, label); err != nil {
				return err
			} else if taken {
				label = ""
			}
		}
		if label == "" {
			label = NewUUID()
		}
		resultLabel = label

		verURI, err := repo.createRsrcSnapshot(txn, ctx, uid, label)
		if err != nil {
			return err
		}

		graph := graphFor(ctx, uid)
		resURI := uri(ctx, uid)
		versionsURI := UUIDToURI(ctx, versionsContainerUID(uid))
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predHasVersion, verURI, graph)); err != nil {
			return err
		}
		if err := repo.QS.Add(txn, rdf.NewQuad(resURI, predHasVersions, versionsURI, graph)); err != nil {
			return err
		}

		// Per ldpr.py's create_version: this produces an event only for
		// the live resource, not for the version snapshot itself.
		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: Updated,
			AddedTriples: []*rdf.Triple{
				rdf.NewTriple(resURI, predHasVersion, verURI),
				rdf.NewTriple(resURI, predHasVersions, versionsURI),
			},
			Timestamp: ctx.now(), Actor: ctx.actor(),
		})
		return nil
	})
	repo.finishTxn(ctx, err)
	if err != nil {
		return "", err
	}
	return resultLabel, nil
}

func (repo *Repository) versionByLabel(txn *quadstore.Txn, ctx *OpContext, uid, label string) (*rdf.NamedNode, *rdf.NamedNode, bool, error) {
	verGraph := versionGraphFor(ctx, uid, label)
	triples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, verGraph)
	if err != nil {
		return nil, nil, false, err
	}
	if len(triples) == 0 {
		return nil, nil, false, nil
	}
	return UUIDToURI(ctx, versionsContainerUID(uid)+"/"+label), verGraph, true, nil
}

// RevertToVersion implements SPEC_FULL §4.5 revertToVersion(): rewrite
// uid's live graph from the named version's graph, stripping server-
// managed types to avoid reclassifying the live resource as a Version.
func (repo *Repository) RevertToVersion(ctx *OpContext, uid, verUID string, backup bool) (Outcome, error) {
	if backup {
		if _, err := repo.CreateVersion(ctx, uid, nil); err != nil {
			return 0, err
		}
	}

	var outcome Outcome
	err := repo.QS.Txns.With(true, func(txn *quadstore.Txn) error {
		verURI, verGraph, ok, err := repo.versionByLabel(txn, ctx, uid, verUID)
		if err != nil {
			return err
		}
		if !ok {
			return newResourceError(ErrNotFound, uid+"/"+versionsLabel+"/"+verUID, nil)
		}

		verTriples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, verGraph)
		if err != nil {
			return err
		}

		resURI := uri(ctx, uid)
		revert := make([]*rdf.Triple, 0, len(verTriples))
		for _, q := range verTriples {
			t := q.ToTriple()
			if !sameIRI(t.Subject, verURI) {
				continue
			}
			if isServerManagedTriple(t) {
				continue
			}
			revert = append(revert, rdf.NewTriple(resURI, t.Predicate, t.Object))
		}

		graph := graphFor(ctx, uid)
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
		var preserve []*rdf.Triple
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

		if err := repo.writeGraph(txn, ctx, graph, uid, revert, preserve); err != nil {
			return err
		}

		outcome = Updated
		repo.Journal.Record(ChangeEvent{
			UID: uid, EventType: Updated, AddedTriples: revert,
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
