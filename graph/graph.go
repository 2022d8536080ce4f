// Package graph holds an in-memory RDF graph with subject and predicate
// indexes, and decoders for RDF/XML, Turtle and N-Triples documents.
package graph

import (
	"sort"

	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// Graph is a set of triples with lookup indexes. The zero value is not
// usable; create graphs with New.
type Graph struct {
	// Base is the document base IRI (xml:base, or the location it was read from).
	Base string

	// Prefixes holds namespace declarations found in the source document.
	Prefixes map[string]string

	triples     []Triple
	seen        map[Triple]struct{}
	bySubject   map[Term][]int
	byPredicate map[string][]int
	byObject    map[Term][]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		Prefixes:    make(map[string]string),
		seen:        make(map[Triple]struct{}),
		bySubject:   make(map[Term][]int),
		byPredicate: make(map[string][]int),
		byObject:    make(map[Term][]int),
	}
}

// Add inserts t, returning false if it was already present.
func (g *Graph) Add(t Triple) bool {
	if _, ok := g.seen[t]; ok {
		return false
	}
	g.seen[t] = struct{}{}
	idx := len(g.triples)
	g.triples = append(g.triples, t)
	g.bySubject[t.Subject] = append(g.bySubject[t.Subject], idx)
	g.byPredicate[t.Predicate.Value] = append(g.byPredicate[t.Predicate.Value], idx)
	g.byObject[t.Object] = append(g.byObject[t.Object], idx)
	return true
}

// AddAll inserts every triple and returns how many were new.
func (g *Graph) AddAll(ts []Triple) int {
	n := 0
	for _, t := range ts {
		if g.Add(t) {
			n++
		}
	}
	return n
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns the triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Has reports whether the triple (s, p, o) is present.
func (g *Graph) Has(s Term, p string, o Term) bool {
	_, ok := g.seen[Triple{Subject: s, Predicate: IRI(p), Object: o}]
	return ok
}

// Objects returns the objects of all triples with subject s and predicate p.
func (g *Graph) Objects(s Term, p string) []Term {
	var out []Term
	for _, idx := range g.bySubject[s] {
		if t := g.triples[idx]; t.Predicate.Value == p {
			out = append(out, t.Object)
		}
	}
	return out
}

// Object returns the first object for (s, p) and whether one exists.
func (g *Graph) Object(s Term, p string) (Term, bool) {
	for _, idx := range g.bySubject[s] {
		if t := g.triples[idx]; t.Predicate.Value == p {
			return t.Object, true
		}
	}
	return Term{}, false
}

// Subjects returns the subjects of all triples with predicate p and object o.
func (g *Graph) Subjects(p string, o Term) []Term {
	var out []Term
	for _, idx := range g.byObject[o] {
		if t := g.triples[idx]; t.Predicate.Value == p {
			out = append(out, t.Subject)
		}
	}
	return out
}

// WithPredicate returns all triples using predicate p.
func (g *Graph) WithPredicate(p string) []Triple {
	idxs := g.byPredicate[p]
	out := make([]Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.triples[idx])
	}
	return out
}

// About returns all triples with subject s.
func (g *Graph) About(s Term) []Triple {
	idxs := g.bySubject[s]
	out := make([]Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.triples[idx])
	}
	return out
}

// SubjectsOfType returns the distinct subjects typed rdf:type typeIRI.
func (g *Graph) SubjectsOfType(typeIRI string) []Term {
	return g.Subjects(owl.RDFType, IRI(typeIRI))
}

// Types returns the rdf:type objects of s.
func (g *Graph) Types(s Term) []Term {
	return g.Objects(s, owl.RDFType)
}

// HasType reports whether s is asserted to have type typeIRI.
func (g *Graph) HasType(s Term, typeIRI string) bool {
	return g.Has(s, owl.RDFType, IRI(typeIRI))
}

// List walks an RDF collection starting at head and returns its members.
// Cycles and malformed lists stop the walk.
func (g *Graph) List(head Term) []Term {
	var out []Term
	visited := make(map[Term]bool)
	for node := head; !(node.IsIRI() && node.Value == owl.RDFNil); {
		if visited[node] {
			break
		}
		visited[node] = true
		first, ok := g.Object(node, owl.RDFFirst)
		if !ok {
			break
		}
		out = append(out, first)
		rest, ok := g.Object(node, owl.RDFRest)
		if !ok {
			break
		}
		node = rest
	}
	return out
}

// AllSubjects returns every distinct subject, sorted by value.
func (g *Graph) AllSubjects() []Term {
	out := make([]Term, 0, len(g.bySubject))
	for s := range g.bySubject {
		out = append(out, s)
	}
	SortTerms(out)
	return out
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := New()
	c.Base = g.Base
	for k, v := range g.Prefixes {
		c.Prefixes[k] = v
	}
	c.AddAll(g.triples)
	return c
}

// Merge adds every triple of other to g and returns how many were new.
func (g *Graph) Merge(other *Graph) int {
	for k, v := range other.Prefixes {
		if _, ok := g.Prefixes[k]; !ok {
			g.Prefixes[k] = v
		}
	}
	return g.AddAll(other.triples)
}

// SortTerms orders terms by kind then value, for deterministic output.
func SortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Kind != terms[j].Kind {
			return terms[i].Kind < terms[j].Kind
		}
		if terms[i].Value != terms[j].Value {
			return terms[i].Value < terms[j].Value
		}
		if terms[i].Datatype != terms[j].Datatype {
			return terms[i].Datatype < terms[j].Datatype
		}
		return terms[i].Lang < terms[j].Lang
	})
}

// UniqueTerms removes duplicates from terms, preserving first occurrence order.
func UniqueTerms(terms []Term) []Term {
	seen := make(map[Term]bool, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
