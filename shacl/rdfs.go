package shacl

import (
	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// ExpandRDFS adds the RDFS entailments used for validation to g in place:
// subclass and subproperty transitivity (rdfs5, rdfs11), type propagation
// along rdfs:subClassOf (rdfs9), property propagation along
// rdfs:subPropertyOf (rdfs7) and domain/range typing (rdfs2, rdfs3).
// It returns the number of triples added.
func ExpandRDFS(g *graph.Graph) int {
	added := 0
	for {
		n := rdfsPass(g)
		if n == 0 {
			return added
		}
		added += n
	}
}

func rdfsPass(g *graph.Graph) int {
	var pending []graph.Triple

	subClass := g.WithPredicate(owl.RDFSSubClassOf)
	subProp := g.WithPredicate(owl.RDFSSubPropertyOf)
	domains := g.WithPredicate(owl.RDFSDomain)
	ranges := g.WithPredicate(owl.RDFSRange)

	// rdfs11: transitivity of subClassOf
	for _, ab := range subClass {
		for _, bc := range g.Objects(ab.Object, owl.RDFSSubClassOf) {
			pending = append(pending, graph.Triple{Subject: ab.Subject, Predicate: ab.Predicate, Object: bc})
		}
	}
	// rdfs5: transitivity of subPropertyOf
	for _, pq := range subProp {
		for _, qr := range g.Objects(pq.Object, owl.RDFSSubPropertyOf) {
			pending = append(pending, graph.Triple{Subject: pq.Subject, Predicate: pq.Predicate, Object: qr})
		}
	}
	// rdfs9: instances of a subclass are instances of the superclass
	for _, sc := range subClass {
		for _, inst := range g.SubjectsOfType(sc.Subject.Value) {
			pending = append(pending, typeTriple(inst, sc.Object))
		}
	}
	// rdfs7: statements with a subproperty hold for the superproperty
	for _, sp := range subProp {
		if !sp.Object.IsIRI() {
			continue
		}
		for _, t := range g.WithPredicate(sp.Subject.Value) {
			pending = append(pending, graph.Triple{Subject: t.Subject, Predicate: sp.Object, Object: t.Object})
		}
	}
	// rdfs2: domain typing
	for _, d := range domains {
		if !d.Object.IsIRI() {
			continue
		}
		for _, t := range g.WithPredicate(d.Subject.Value) {
			pending = append(pending, typeTriple(t.Subject, d.Object))
		}
	}
	// rdfs3: range typing, resources only
	for _, r := range ranges {
		if !r.Object.IsIRI() {
			continue
		}
		for _, t := range g.WithPredicate(r.Subject.Value) {
			if t.Object.IsLiteral() {
				continue
			}
			pending = append(pending, typeTriple(t.Object, r.Object))
		}
	}

	return g.AddAll(pending)
}

func typeTriple(s, class graph.Term) graph.Triple {
	return graph.Triple{Subject: s, Predicate: graph.IRI(owl.RDFType), Object: class}
}

// superClasses returns class and every class reachable through rdfs:subClassOf.
func superClasses(g *graph.Graph, class graph.Term) map[graph.Term]bool {
	seen := map[graph.Term]bool{class: true}
	queue := []graph.Term{class}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, sup := range g.Objects(c, owl.RDFSSubClassOf) {
			if !seen[sup] {
				seen[sup] = true
				queue = append(queue, sup)
			}
		}
	}
	return seen
}

// isInstanceOf reports whether node has rdf:type class or a subclass of it.
func isInstanceOf(g *graph.Graph, node, class graph.Term) bool {
	for _, t := range g.Types(node) {
		if superClasses(g, t)[class] {
			return true
		}
	}
	return false
}

// instancesOf returns every node typed class or one of its subclasses.
func instancesOf(g *graph.Graph, class graph.Term) []graph.Term {
	var out []graph.Term
	seen := map[graph.Term]bool{class: true}
	queue := []graph.Term{class}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, g.Subjects(owl.RDFType, c)...)
		for _, sub := range g.Subjects(owl.RDFSSubClassOf, c) {
			if !seen[sub] {
				seen[sub] = true
				queue = append(queue, sub)
			}
		}
	}
	return graph.UniqueTerms(out)
}
