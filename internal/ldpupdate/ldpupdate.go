// Package ldpupdate parses the ground-triple SPARQL-Update subset
// LdpResource.Patch accepts, per SPEC_FULL §4.5 ("Supplemented:
// ground-triple SPARQL-Update for patch()"): INSERT DATA, DELETE DATA, and
// DELETE {...} INSERT {...} WHERE {...} where every block contains only
// ground N-Quads triples (no variables). A join evaluator is explicitly
// out of scope; a WHERE block is checked for presence with a plain
// contains() test.
package ldpupdate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clover-repo/ldpstore/pkg/rdf"
)

// Delta is the add/remove pair a successfully parsed update resolves to.
type Delta struct {
	Remove []*rdf.Triple
	Add    []*rdf.Triple
	// Where holds the WHERE block's ground triples, when present; the
	// caller is responsible for checking each is contained before
	// applying Remove/Add.
	Where []*rdf.Triple
}

var (
	insertDataRe = regexp.MustCompile(`(?is)^\s*INSERT\s+DATA\s*\{(.*)\}\s*$`)
	deleteDataRe = regexp.MustCompile(`(?is)^\s*DELETE\s+DATA\s*\{(.*)\}\s*$`)
	deleteInsertWhereRe = regexp.MustCompile(
		`(?is)^\s*DELETE\s*\{(.*)\}\s*INSERT\s*\{(.*)\}\s*WHERE\s*\{(.*)\}\s*$`)
)

// Parse recognizes one of the three supported forms and returns the
// resulting Delta. Any other SPARQL-Update construct (variables, FILTER,
// OPTIONAL, multiple WHERE patterns with joins) is rejected.
func Parse(update string) (*Delta, error) {
	update = strings.TrimSpace(update)

	if m := insertDataRe.FindStringSubmatch(update); m != nil {
		triples, err := parseGroundBlock(m[1])
		if err != nil {
			return nil, fmt.Errorf("ldpupdate: INSERT DATA: %w", err)
		}
		return &Delta{Add: triples}, nil
	}

	if m := deleteDataRe.FindStringSubmatch(update); m != nil {
		triples, err := parseGroundBlock(m[1])
		if err != nil {
			return nil, fmt.Errorf("ldpupdate: DELETE DATA: %w", err)
		}
		return &Delta{Remove: triples}, nil
	}

	if m := deleteInsertWhereRe.FindStringSubmatch(update); m != nil {
		del, err := parseGroundBlock(m[1])
		if err != nil {
			return nil, fmt.Errorf("ldpupdate: DELETE block: %w", err)
		}
		ins, err := parseGroundBlock(m[2])
		if err != nil {
			return nil, fmt.Errorf("ldpupdate: INSERT block: %w", err)
		}
		where, err := parseGroundBlock(m[3])
		if err != nil {
			return nil, fmt.Errorf("ldpupdate: WHERE block: %w", err)
		}
		if err := requireGround(where); err != nil {
			return nil, err
		}
		return &Delta{Remove: del, Add: ins, Where: where}, nil
	}

	return nil, fmt.Errorf("ldpupdate: unsupported update form (only INSERT DATA, DELETE DATA, and ground-triple DELETE/INSERT/WHERE are accepted)")
}

func parseGroundBlock(block string) ([]*rdf.Triple, error) {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil, nil
	}
	parser := rdf.NewNQuadsParser(block)
	quads, err := parser.Parse()
	if err != nil {
		return nil, err
	}
	triples := make([]*rdf.Triple, 0, len(quads))
	for _, q := range quads {
		triples = append(triples, q.ToTriple())
	}
	if err := requireGround(triples); err != nil {
		return nil, err
	}
	return triples, nil
}

// requireGround rejects triples that reference a SPARQL variable
// (recognized here as a blank node ID beginning with "?", since the
// ground-triple N-Quads grammar has no native variable production).
func requireGround(triples []*rdf.Triple) error {
	for _, t := range triples {
		for _, term := range []rdf.Term{t.Subject, t.Predicate, t.Object} {
			if bn, ok := term.(*rdf.BlankNode); ok && strings.HasPrefix(bn.ID, "?") {
				return fmt.Errorf("ldpupdate: variables are not supported (%s)", bn.ID)
			}
		}
	}
	return nil
}
