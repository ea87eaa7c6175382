package ldp

import (
	"strings"

	"github.com/clover-repo/ldpstore/pkg/quadstore"
	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// splitAncestors returns uid's path-ancestors from shallowest to deepest,
// e.g. "a/b/c" -> ["a", "a/b"]. The root resource ("") is always an
// implicit ancestor and is not included in the result.
func splitAncestors(uid string) []string {
	segments := strings.Split(uid, "/")
	if len(segments) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		out = append(out, strings.Join(segments[:i], "/"))
	}
	return out
}

// materializePairtree finds the deepest already-existing ancestor of uid
// and creates pairtree container stubs for every missing intermediate
// segment, per SPEC_FULL §4.5 "Containment discovery". It returns the uid
// of the immediate parent the final resource should attach its own
// containment triple to.
//
// Grounded on ldpr.py's _find_parent_or_create_pairtree: the original walks
// ancestors deepest-first to locate the nearest existing one, accumulating
// (parent, segment) pairs while walking upward, then creates the missing
// segments in that same accumulated order. Traced carefully (see
// DESIGN.md), each _create_path_segment call needs its own parent to
// already exist, so segments here are created shallowest-first — the
// reverse of the deepest-first order used purely for ancestor discovery.
func (repo *Repository) materializePairtree(txn *quadstore.Txn, ctx *OpContext, uid string) (string, error) {
	ancestors := splitAncestors(uid)
	if len(ancestors) == 0 {
		return "", nil
	}

	// Walk deepest to shallowest to find the nearest existing ancestor.
	nearestExisting := ""
	missingFromDeepest := make([]string, 0, len(ancestors))
	for i := len(ancestors) - 1; i >= 0; i-- {
		ok, err := repo.exists(txn, ctx, ancestors[i])
		if err != nil {
			return "", err
		}
		if ok {
			nearestExisting = ancestors[i]
			break
		}
		missingFromDeepest = append(missingFromDeepest, ancestors[i])
	}

	// Create missing segments shallowest-first so each one's parent
	// already exists by the time it is created.
	parent := nearestExisting
	for i := len(missingFromDeepest) - 1; i >= 0; i-- {
		segUID := missingFromDeepest[i]
		if err := repo.createPathSegment(txn, ctx, segUID, parent); err != nil {
			return "", err
		}
		parent = segUID
	}

	return parent, nil
}

// createPathSegment materializes a single pairtree container at segUID
// whose real or pairtree parent is parentUID, ported from
// ldpr.py's _create_path_segment.
func (repo *Repository) createPathSegment(txn *quadstore.Txn, ctx *OpContext, segUID, parentUID string) error {
	graph := graphFor(ctx, segUID)
	if err := repo.QS.AddGraph(txn, graph); err != nil {
		return err
	}
	uri := UUIDToURI(ctx, segUID)
	parentURI := UUIDToURI(ctx, parentUID)
	now := ctx.now()

	adds := []*rdf.Quad{
		rdf.NewQuad(uri, rdfType, typeLdpBasicContainer, graph),
		rdf.NewQuad(uri, rdfType, typeLdpContainer, graph),
		rdf.NewQuad(uri, rdfType, typeLdpRDFSource, graph),
		rdf.NewQuad(uri, rdfType, typePairtree, graph),
		rdf.NewQuad(uri, predHasParent, parentURI, graph),
		rdf.NewQuad(uri, predCreated, rdf.NewDateTimeLiteral(now), graph),
		rdf.NewQuad(uri, predCreatedBy, rdf.NewLiteral(ctx.actor()), graph),
		rdf.NewQuad(uri, predLastModified, rdf.NewDateTimeLiteral(now), graph),
		rdf.NewQuad(uri, predLastModifiedBy, rdf.NewLiteral(ctx.actor()), graph),
	}
	for _, q := range adds {
		if err := repo.QS.Add(txn, q); err != nil {
			return err
		}
	}

	// The parallel non-LDP containment edge links pairtree segments to
	// each other outside the ldp:contains hierarchy clients observe.
	parentGraph := graphFor(ctx, parentUID)
	if err := repo.QS.Add(txn, rdf.NewQuad(parentURI, predFcSystemContains, uri, parentGraph)); err != nil {
		return err
	}
	return repo.QS.Add(txn, rdf.NewQuad(parentURI, predLdpContains, uri, parentGraph))
}

// addContainment links parentUID to childUID via ldp:contains in the
// parent's own graph.
func (repo *Repository) addContainment(txn *quadstore.Txn, ctx *OpContext, parentUID, childUID string) error {
	parentGraph := graphFor(ctx, parentUID)
	parentURI := UUIDToURI(ctx, parentUID)
	childURI := UUIDToURI(ctx, childUID)
	return repo.QS.Add(txn, rdf.NewQuad(parentURI, predLdpContains, childURI, parentGraph))
}

// applyMembershipInference inspects parentUID's stored metadata for direct
// or indirect container predicates and, if present, asserts the inferred
// membership triple into the parent's graph. newTriples is the payload
// supplied for the just-created child, used (per DESIGN.md's Open Question
// decision #3) as the source of ldp:insertedContentRelation's target for
// indirect containers, since the child has no stored IMR yet at creation
// time.
func (repo *Repository) applyMembershipInference(txn *quadstore.Txn, ctx *OpContext, parentUID string, childURI *rdf.NamedNode, newTriples []*rdf.Triple) error {
	parentGraph := graphFor(ctx, parentUID)
	parentTriples, err := repo.QS.Triples(txn, quadstore.TriplePattern{}, parentGraph)
	if err != nil {
		return err
	}

	var membershipResource, memberRelation, insertedContentRelation rdf.Term
	isDirect, isIndirect := false, false
	for _, q := range parentTriples {
		switch {
		case sameIRI(q.Predicate, rdfType) && sameIRI(q.Object, typeLdpDirectContainer):
			isDirect = true
		case sameIRI(q.Predicate, rdfType) && sameIRI(q.Object, typeLdpIndirectContainer):
			isIndirect = true
		case sameIRI(q.Predicate, predLdpMembershipResource):
			membershipResource = q.Object
		case sameIRI(q.Predicate, predLdpHasMemberRelation):
			memberRelation = q.Object
		case sameIRI(q.Predicate, predLdpInsertedContentRelation):
			insertedContentRelation = q.Object
		}
	}

	if !isDirect && !isIndirect {
		return nil
	}
	if membershipResource == nil || memberRelation == nil {
		return nil
	}

	memberRelNode, ok := memberRelation.(*rdf.NamedNode)
	if !ok {
		return nil
	}

	target := rdf.Term(childURI)
	if isIndirect {
		if insertedContentRelation == nil {
			return nil
		}
		icrNode, ok := insertedContentRelation.(*rdf.NamedNode)
		if !ok {
			return nil
		}
		for _, t := range newTriples {
			if sameIRI(t.Subject, childURI) && sameIRI(t.Predicate, icrNode) {
				target = t.Object
				break
			}
		}
		if target == rdf.Term(childURI) {
			// No matching statement in the payload; nothing to infer.
			return nil
		}
	}

	return repo.QS.Add(txn, rdf.NewQuad(membershipResource, memberRelNode, target, parentGraph))
}
