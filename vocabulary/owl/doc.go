// Package owl provides the W3C vocabulary IRIs used when reading, validating
// and writing OWL ontologies.
//
// The constants cover the subset of RDF, RDFS, OWL 2, SHACL Core and XSD that
// the ontology pipeline touches:
//   - RDF / RDFS: typing, subclass and subproperty hierarchies, domain and range
//   - OWL: class, property and individual declarations, ontology headers
//   - SHACL: node and property shapes, core constraint components, report terms
//   - XSD: datatypes used for literal checks
//
// # Prefixes
//
// DefaultPrefixes maps the conventional prefix names to namespaces. Serializers
// use it for Turtle @prefix lines and RDF/XML xmlns declarations, and the
// validation report uses it to compact IRIs the way pyshacl prints them.
package owl
