package owl

import "strings"

// Namespaces.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	OWL  = "http://www.w3.org/2002/07/owl#"
	XSD  = "http://www.w3.org/2001/XMLSchema#"
	SH   = "http://www.w3.org/ns/shacl#"
	XML  = "http://www.w3.org/XML/1998/namespace"
)

// RDF terms.
const (
	RDFType        = RDF + "type"
	RDFProperty    = RDF + "Property"
	RDFFirst       = RDF + "first"
	RDFRest        = RDF + "rest"
	RDFNil         = RDF + "nil"
	RDFLangString  = RDF + "langString"
	RDFXMLLiteral  = RDF + "XMLLiteral"
	RDFDescription = RDF + "Description"
)

// RDFS terms.
const (
	RDFSClass         = RDFS + "Class"
	RDFSSubClassOf    = RDFS + "subClassOf"
	RDFSSubPropertyOf = RDFS + "subPropertyOf"
	RDFSDomain        = RDFS + "domain"
	RDFSRange         = RDFS + "range"
	RDFSLabel         = RDFS + "label"
	RDFSComment       = RDFS + "comment"
	RDFSLiteral       = RDFS + "Literal"
	RDFSResource      = RDFS + "Resource"
	RDFSDatatype      = RDFS + "Datatype"
)

// OWL terms.
const (
	OWLOntology                  = OWL + "Ontology"
	OWLClass                     = OWL + "Class"
	OWLThing                     = OWL + "Thing"
	OWLNothing                   = OWL + "Nothing"
	OWLObjectProperty            = OWL + "ObjectProperty"
	OWLDatatypeProperty          = OWL + "DatatypeProperty"
	OWLAnnotationProperty        = OWL + "AnnotationProperty"
	OWLFunctionalProperty        = OWL + "FunctionalProperty"
	OWLTransitiveProperty        = OWL + "TransitiveProperty"
	OWLSymmetricProperty         = OWL + "SymmetricProperty"
	OWLInverseFunctionalProperty = OWL + "InverseFunctionalProperty"
	OWLNamedIndividual           = OWL + "NamedIndividual"
	OWLRestriction               = OWL + "Restriction"
	OWLOnProperty                = OWL + "onProperty"
	OWLUnionOf                   = OWL + "unionOf"
	OWLIntersectionOf            = OWL + "intersectionOf"
	OWLInverseOf                 = OWL + "inverseOf"
	OWLImports                   = OWL + "imports"
	OWLVersionIRI                = OWL + "versionIRI"
	OWLEquivalentClass           = OWL + "equivalentClass"
	OWLDisjointWith              = OWL + "disjointWith"
)

// SHACL terms.
const (
	SHNodeShape          = SH + "NodeShape"
	SHPropertyShape      = SH + "PropertyShape"
	SHTargetClass        = SH + "targetClass"
	SHTargetNode         = SH + "targetNode"
	SHTargetSubjectsOf   = SH + "targetSubjectsOf"
	SHTargetObjectsOf    = SH + "targetObjectsOf"
	SHProperty           = SH + "property"
	SHPath               = SH + "path"
	SHMinCount           = SH + "minCount"
	SHMaxCount           = SH + "maxCount"
	SHClass              = SH + "class"
	SHDatatype           = SH + "datatype"
	SHNodeKind           = SH + "nodeKind"
	SHIn                 = SH + "in"
	SHHasValue           = SH + "hasValue"
	SHPattern            = SH + "pattern"
	SHFlags              = SH + "flags"
	SHMinLength          = SH + "minLength"
	SHMaxLength          = SH + "maxLength"
	SHMessage            = SH + "message"
	SHSeverity           = SH + "severity"
	SHDeactivated        = SH + "deactivated"
	SHViolation          = SH + "Violation"
	SHWarning            = SH + "Warning"
	SHInfo               = SH + "Info"
	SHIRI                = SH + "IRI"
	SHBlankNode          = SH + "BlankNode"
	SHLiteral            = SH + "Literal"
	SHBlankNodeOrIRI     = SH + "BlankNodeOrIRI"
	SHBlankNodeOrLiteral = SH + "BlankNodeOrLiteral"
	SHIRIOrLiteral       = SH + "IRIOrLiteral"
)

// SHACL core constraint components.
const (
	SHMinCountConstraintComponent  = SH + "MinCountConstraintComponent"
	SHMaxCountConstraintComponent  = SH + "MaxCountConstraintComponent"
	SHClassConstraintComponent     = SH + "ClassConstraintComponent"
	SHDatatypeConstraintComponent  = SH + "DatatypeConstraintComponent"
	SHNodeKindConstraintComponent  = SH + "NodeKindConstraintComponent"
	SHInConstraintComponent        = SH + "InConstraintComponent"
	SHHasValueConstraintComponent  = SH + "HasValueConstraintComponent"
	SHPatternConstraintComponent   = SH + "PatternConstraintComponent"
	SHMinLengthConstraintComponent = SH + "MinLengthConstraintComponent"
	SHMaxLengthConstraintComponent = SH + "MaxLengthConstraintComponent"
)

// XSD datatypes.
const (
	XSDString   = XSD + "string"
	XSDBoolean  = XSD + "boolean"
	XSDInteger  = XSD + "integer"
	XSDDecimal  = XSD + "decimal"
	XSDDouble   = XSD + "double"
	XSDDate     = XSD + "date"
	XSDDateTime = XSD + "dateTime"
	XSDAnyURI   = XSD + "anyURI"
)

// DefaultPrefixes returns the standard prefix → namespace map.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":  RDF,
		"rdfs": RDFS,
		"owl":  OWL,
		"xsd":  XSD,
		"sh":   SH,
	}
}

// Compact shortens iri to prefix:local using prefixes. IRIs with no matching
// namespace are returned unchanged.
func Compact(iri string, prefixes map[string]string) string {
	best, bestNS := "", ""
	for prefix, ns := range prefixes {
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			best, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return iri
	}
	return best + ":" + strings.TrimPrefix(iri, bestNS)
}

// LocalName returns the fragment or last path segment of iri, the way
// ontology tools print entity names.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// Namespace returns iri up to and including its last '#' or '/'.
func Namespace(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[:i+1]
	}
	return ""
}
