package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// WriteRDFXML writes g as an RDF/XML document. Subjects are emitted as
// rdf:Description elements grouped ontology header first, then classes,
// properties, individuals and anything else.
func WriteRDFXML(w io.Writer, g *graph.Graph) error {
	x := &xmlWriter{
		bw:       bufio.NewWriter(w),
		prefixes: make(map[string]string),
		byNS:     make(map[string]string),
	}
	x.declare("rdf", owl.RDF)
	for p, ns := range owl.DefaultPrefixes() {
		x.declare(p, ns)
	}
	for p, ns := range g.Prefixes {
		if p != "" {
			x.declare(p, ns)
		}
	}

	triples := sortedTriples(g)
	for _, t := range triples {
		if _, _, err := x.qname(t.Predicate.Value); err != nil {
			return err
		}
	}

	x.writeHeader(g)
	subjects := orderSubjects(g)
	for _, s := range subjects {
		x.writeSubject(s, g.About(s))
	}
	x.printf("</rdf:RDF>\n")
	if x.err != nil {
		return x.err
	}
	return x.bw.Flush()
}

type xmlWriter struct {
	bw       *bufio.Writer
	prefixes map[string]string // prefix -> namespace
	byNS     map[string]string // namespace -> prefix
	next     int
	err      error
}

func (x *xmlWriter) printf(format string, args ...any) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.bw, format, args...)
}

func (x *xmlWriter) declare(prefix, ns string) {
	if _, ok := x.byNS[ns]; ok {
		return
	}
	if _, ok := x.prefixes[prefix]; ok {
		return
	}
	x.prefixes[prefix] = ns
	x.byNS[ns] = prefix
}

// qname splits a predicate IRI into a declared prefix and an XML local
// name, inventing nsN prefixes for unknown namespaces.
func (x *xmlWriter) qname(iri string) (string, string, error) {
	i := splitPoint(iri)
	if i <= 0 || i >= len(iri) {
		return "", "", fmt.Errorf("predicate %s cannot be written as an XML element name", iri)
	}
	ns, local := iri[:i], iri[i:]
	prefix, ok := x.byNS[ns]
	if !ok {
		for {
			x.next++
			prefix = fmt.Sprintf("ns%d", x.next)
			if _, taken := x.prefixes[prefix]; !taken {
				break
			}
		}
		x.declare(prefix, ns)
	}
	return prefix, local, nil
}

// splitPoint finds the start of the longest trailing NCName in iri.
func splitPoint(iri string) int {
	runes := []rune(iri)
	start := len(runes)
	for start > 0 && isNameChar(runes[start-1]) {
		start--
	}
	for start < len(runes) && !isNameStart(runes[start]) {
		start++
	}
	return len(string(runes[:start]))
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r)
}

func (x *xmlWriter) writeHeader(g *graph.Graph) {
	x.printf("<?xml version=\"1.0\"?>\n<rdf:RDF")
	if ns, ok := g.Prefixes[""]; ok {
		x.printf("\n    xmlns=\"%s\"", attr(ns))
	}
	if g.Base != "" && !strings.HasPrefix(g.Base, "file:") {
		x.printf("\n    xml:base=\"%s\"", attr(g.Base))
	}
	prefixes := make([]string, 0, len(x.prefixes))
	for p := range x.prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		x.printf("\n    xmlns:%s=\"%s\"", p, attr(x.prefixes[p]))
	}
	x.printf(">\n")
}

func (x *xmlWriter) writeSubject(s graph.Term, about []graph.Triple) {
	if s.IsBlank() {
		x.printf("  <rdf:Description rdf:nodeID=\"%s\">\n", attr(s.Value))
	} else {
		x.printf("  <rdf:Description rdf:about=\"%s\">\n", attr(s.Value))
	}
	sort.SliceStable(about, func(i, j int) bool {
		pi, pj := about[i].Predicate.Value, about[j].Predicate.Value
		if (pi == owl.RDFType) != (pj == owl.RDFType) {
			return pi == owl.RDFType
		}
		if pi != pj {
			return pi < pj
		}
		return termLess(about[i].Object, about[j].Object)
	})
	for _, t := range about {
		prefix, local, err := x.qname(t.Predicate.Value)
		if err != nil {
			x.err = err
			return
		}
		el := prefix + ":" + local
		o := t.Object
		switch {
		case o.IsIRI():
			x.printf("    <%s rdf:resource=\"%s\"/>\n", el, attr(o.Value))
		case o.IsBlank():
			x.printf("    <%s rdf:nodeID=\"%s\"/>\n", el, attr(o.Value))
		case o.Lang != "":
			x.printf("    <%s xml:lang=\"%s\">%s</%s>\n", el, attr(o.Lang), text(o.Value), el)
		case o.Datatype != "" && o.Datatype != owl.XSDString:
			x.printf("    <%s rdf:datatype=\"%s\">%s</%s>\n", el, attr(o.Datatype), text(o.Value), el)
		default:
			x.printf("    <%s>%s</%s>\n", el, text(o.Value), el)
		}
	}
	x.printf("  </rdf:Description>\n")
}

// subjectRank orders subjects into the sections of an OWL document.
func subjectRank(g *graph.Graph, s graph.Term) int {
	switch {
	case g.HasType(s, owl.OWLOntology):
		return 0
	case g.HasType(s, owl.OWLClass), g.HasType(s, owl.RDFSClass):
		return 1
	case g.HasType(s, owl.OWLObjectProperty):
		return 2
	case g.HasType(s, owl.OWLDatatypeProperty):
		return 3
	case s.IsBlank():
		return 5
	default:
		return 4
	}
}

func orderSubjects(g *graph.Graph) []graph.Term {
	subjects := g.AllSubjects()
	rank := make(map[graph.Term]int, len(subjects))
	for _, s := range subjects {
		rank[s] = subjectRank(g, s)
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		if rank[subjects[i]] != rank[subjects[j]] {
			return rank[subjects[i]] < rank[subjects[j]]
		}
		return termLess(subjects[i], subjects[j])
	})
	return subjects
}

func text(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func attr(s string) string {
	return text(s)
}
