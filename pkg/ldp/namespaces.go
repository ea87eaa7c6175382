package ldp

import "github.com/clover-repo/ldpstore/pkg/rdf"

// Namespace prefixes, grounded on lakesuperior's nsc ("namespace collection")
// as used throughout model/ldpr.py. fcres is intentionally absent here: its
// base is the request-scoped webroot rather than a fixed string, so resource
// IRIs are built by Toolbox.UUIDToURI against an OpContext instead.
const (
	nsFcrepo   = "http://fedora.info/definitions/v4/repository#"
	nsFcsystem = "http://fedora.info/definitions/v4/system#"
	nsLdp      = "http://www.w3.org/ns/ldp#"
	nsPremis   = "http://www.loc.gov/premis/rdf/v1#"
	nsRdf      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

func fcrepo(local string) *rdf.NamedNode   { return rdf.NewNamedNode(nsFcrepo + local) }
func fcsystem(local string) *rdf.NamedNode { return rdf.NewNamedNode(nsFcsystem + local) }
func ldpNs(local string) *rdf.NamedNode    { return rdf.NewNamedNode(nsLdp + local) }
func premis(local string) *rdf.NamedNode   { return rdf.NewNamedNode(nsPremis + local) }

// rdfType is the single rdf:type predicate used throughout the resource
// layer, ported from ldpr.py's bare RDF.type references.
var rdfType = rdf.NewNamedNode(nsRdf + "type")

// Class and predicate terms named directly by ldpr.py's module-level
// constants and server-managed-triple logic.
var (
	typeResource      = fcrepo("Resource")
	typeContainer     = fcrepo("Container")
	typeVersion       = fcrepo("Version")
	typeBinary        = fcrepo("Binary")
	typePairtree      = fcrepo("Pairtree")
	typeServerManaged = fcrepo("ServerManaged")
	typeChildren      = fcrepo("Children")
	typeEmbedChildren = fcrepo("EmbedResources")
	typeInboundRefs   = fcrepo("InboundReferences")
	typeTombstone     = fcsystem("Tombstone")

	predCreated        = fcrepo("created")
	predCreatedBy      = fcrepo("createdBy")
	predLastModified   = fcrepo("lastModified")
	predLastModifiedBy = fcrepo("lastModifiedBy")
	predHasParent      = fcrepo("hasParent")
	predHasVersion     = fcrepo("hasVersion")
	predHasVersions    = fcrepo("hasVersions")
	predHasMessageDigest = premis("hasMessageDigest")
	predTombstone      = fcsystem("tombstone")
	predFcSystemContains = fcsystem("contains")

	typeLdpResource        = ldpNs("Resource")
	typeLdpRDFSource       = ldpNs("RDFSource")
	typeLdpNonRdfSource    = ldpNs("NonRDFSource")
	typeLdpContainer       = ldpNs("Container")
	typeLdpBasicContainer  = ldpNs("BasicContainer")
	typeLdpDirectContainer = ldpNs("DirectContainer")
	typeLdpIndirectContainer = ldpNs("IndirectContainer")

	predLdpContains            = ldpNs("contains")
	predLdpMembershipResource  = ldpNs("membershipResource")
	predLdpHasMemberRelation   = ldpNs("hasMemberRelation")
	predLdpInsertedContentRelation = ldpNs("insertedContentRelation")
)

// baseTypes are the rdf:type triples every RDF-source resource receives,
// ported from Ldpr.base_types.
var baseTypes = []rdf.Term{typeResource, typeLdpResource, typeLdpRDFSource}

// protectedPredicates may never be set directly by a client payload; see
// Ldpr.protected_pred.
var protectedPredicates = map[string]bool{
	predCreated.IRI:          true,
	predCreatedBy.IRI:        true,
	predLastModified.IRI:     true,
	predLastModifiedBy.IRI:   true,
	predHasParent.IRI:        true,
	predHasVersion.IRI:       true,
	predHasVersions.IRI:      true,
	predHasMessageDigest.IRI: true,
}

// DefaultUser matches Ldpr.DEFAULT_USER, the actor attributed to writes
// performed without an authenticated caller.
const DefaultUser = "BypassAdmin"
