// Package ontology exposes an OWL-level view over an RDF graph: declared
// classes, object and data properties, individuals and the ontology header.
package ontology

import (
	"fmt"
	"strings"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// Entity is a named ontology entity.
type Entity struct {
	IRI   string
	Name  string
	Label string
}

// Property is an object or data property with its declared domains and ranges.
type Property struct {
	Entity
	Domain []Entity
	Range  []Entity
}

// Ontology is a read-only OWL view of a graph.
type Ontology struct {
	graph *graph.Graph

	// IRI is the subject of the owl:Ontology declaration, if any.
	IRI string
}

// New builds the view over g.
func New(g *graph.Graph) *Ontology {
	o := &Ontology{graph: g}
	for _, s := range g.SubjectsOfType(owl.OWLOntology) {
		if s.IsIRI() {
			o.IRI = s.Value
			break
		}
	}
	return o
}

// Load parses the ontology file at path.
func Load(path string) (*Ontology, error) {
	g, err := graph.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load ontology: %w", err)
	}
	return New(g), nil
}

// Graph returns the underlying graph.
func (o *Ontology) Graph() *graph.Graph {
	return o.graph
}

// BaseIRI returns the namespace entities are minted in: the ontology IRI with
// a trailing '#' appended when it has no separator, falling back to the
// document base.
func (o *Ontology) BaseIRI() string {
	base := o.IRI
	if base == "" {
		base = o.graph.Base
	}
	if base == "" {
		return ""
	}
	if strings.HasSuffix(base, "#") || strings.HasSuffix(base, "/") {
		return base
	}
	return base + "#"
}

// Classes returns the named classes declared with owl:Class or rdfs:Class,
// sorted by IRI. owl:Thing and owl:Nothing are not listed.
func (o *Ontology) Classes() []Entity {
	terms := append(o.graph.SubjectsOfType(owl.OWLClass), o.graph.SubjectsOfType(owl.RDFSClass)...)
	return o.named(terms, owl.OWLThing, owl.OWLNothing)
}

// ObjectProperties returns declared owl:ObjectProperty entities with domain and range.
func (o *Ontology) ObjectProperties() []Property {
	return o.properties(owl.OWLObjectProperty)
}

// DataProperties returns declared owl:DatatypeProperty entities with domain and range.
func (o *Ontology) DataProperties() []Property {
	return o.properties(owl.OWLDatatypeProperty)
}

// Individuals returns named individuals: subjects declared owl:NamedIndividual
// or typed by a declared class.
func (o *Ontology) Individuals() []Entity {
	terms := o.graph.SubjectsOfType(owl.OWLNamedIndividual)
	for _, cls := range o.Classes() {
		terms = append(terms, o.graph.SubjectsOfType(cls.IRI)...)
	}
	return o.named(terms)
}

// Imports returns the owl:imports targets of the ontology header.
func (o *Ontology) Imports() []string {
	if o.IRI == "" {
		return nil
	}
	var out []string
	for _, t := range o.graph.Objects(graph.IRI(o.IRI), owl.OWLImports) {
		if t.IsIRI() {
			out = append(out, t.Value)
		}
	}
	return out
}

func (o *Ontology) properties(typeIRI string) []Property {
	ents := o.named(o.graph.SubjectsOfType(typeIRI))
	out := make([]Property, 0, len(ents))
	for _, e := range ents {
		subj := graph.IRI(e.IRI)
		out = append(out, Property{
			Entity: e,
			Domain: o.classExpressions(o.graph.Objects(subj, owl.RDFSDomain)),
			Range:  o.classExpressions(o.graph.Objects(subj, owl.RDFSRange)),
		})
	}
	return out
}

// classExpressions flattens domain/range objects into named entities;
// owl:unionOf blank nodes contribute each member.
func (o *Ontology) classExpressions(terms []graph.Term) []Entity {
	var named []graph.Term
	for _, t := range terms {
		if t.IsBlank() {
			if head, ok := o.graph.Object(t, owl.OWLUnionOf); ok {
				named = append(named, o.graph.List(head)...)
			}
			continue
		}
		named = append(named, t)
	}
	return o.named(named)
}

// named keeps IRI terms, drops excluded IRIs and duplicates, sorts, and
// attaches local names and labels.
func (o *Ontology) named(terms []graph.Term, exclude ...string) []Entity {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	terms = graph.UniqueTerms(terms)
	graph.SortTerms(terms)

	out := make([]Entity, 0, len(terms))
	for _, t := range terms {
		if !t.IsIRI() || skip[t.Value] {
			continue
		}
		out = append(out, Entity{
			IRI:   t.Value,
			Name:  owl.LocalName(t.Value),
			Label: o.label(t),
		})
	}
	return out
}

func (o *Ontology) label(t graph.Term) string {
	labels := o.graph.Objects(t, owl.RDFSLabel)
	for _, l := range labels {
		if l.Lang == "" || l.Lang == "en" {
			return l.Value
		}
	}
	if len(labels) > 0 {
		return labels[0].Value
	}
	return ""
}
