// Package export serializes ontology graphs to RDF syntaxes and renders
// class graphs for Graphviz and Mermaid.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/knakk/rdf"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// Write serializes g to w in the given format.
func Write(w io.Writer, g *graph.Graph, format Format) error {
	switch format {
	case FormatRDFXML:
		return WriteRDFXML(w, g)
	case FormatTurtle:
		return encodeTriples(w, g, rdf.Turtle)
	case FormatNTriples:
		return encodeTriples(w, g, rdf.NTriples)
	case FormatJSONLD:
		return writeJSONLD(w, g)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Marshal returns the serialization of g in the given format.
func Marshal(g *graph.Graph, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeTriples streams g through the rdf encoder, subjects grouped so the
// Turtle output uses predicate lists.
func encodeTriples(w io.Writer, g *graph.Graph, format rdf.Format) error {
	enc := rdf.NewTripleEncoder(w, format)
	for _, t := range sortedTriples(g) {
		rt, err := graph.ToRDF(t)
		if err != nil {
			return fmt.Errorf("encode %s: %w", t, err)
		}
		if err := enc.Encode(rt); err != nil {
			return fmt.Errorf("encode %s: %w", t, err)
		}
	}
	return enc.Close()
}

func sortedTriples(g *graph.Graph) []graph.Triple {
	ts := g.Triples()
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Subject != ts[j].Subject {
			return termLess(ts[i].Subject, ts[j].Subject)
		}
		if ts[i].Predicate != ts[j].Predicate {
			return ts[i].Predicate.Value < ts[j].Predicate.Value
		}
		return termLess(ts[i].Object, ts[j].Object)
	})
	return ts
}

func termLess(a, b graph.Term) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	if a.Datatype != b.Datatype {
		return a.Datatype < b.Datatype
	}
	return a.Lang < b.Lang
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON flattens Properties next to @id and @type.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

func writeJSONLD(w io.Writer, g *graph.Graph) error {
	doc := JSONLDDocument{Context: make(map[string]any)}
	for k, v := range owl.DefaultPrefixes() {
		doc.Context[k] = v
	}
	for k, v := range g.Prefixes {
		if k == "" {
			doc.Context["@vocab"] = v
			continue
		}
		doc.Context[k] = v
	}

	subjects := g.AllSubjects()
	graph.SortTerms(subjects)
	for _, s := range subjects {
		node := JSONLDNode{ID: jsonldID(s), Properties: make(map[string]any)}
		for _, t := range g.About(s) {
			if t.Predicate.Value == owl.RDFType && t.Object.IsIRI() {
				node.Type = append(node.Type, t.Object.Value)
				continue
			}
			key := t.Predicate.Value
			values, _ := node.Properties[key].([]any)
			node.Properties[key] = append(values, jsonldValue(t.Object))
		}
		sort.Strings(node.Type)
		doc.Graph = append(doc.Graph, node)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func jsonldID(t graph.Term) string {
	if t.IsBlank() {
		return "_:" + t.Value
	}
	return t.Value
}

func jsonldValue(t graph.Term) map[string]string {
	switch {
	case !t.IsLiteral():
		return map[string]string{"@id": jsonldID(t)}
	case t.Lang != "":
		return map[string]string{"@value": t.Value, "@language": t.Lang}
	case t.Datatype != "" && t.Datatype != owl.XSDString:
		return map[string]string{"@value": t.Value, "@type": t.Datatype}
	default:
		return map[string]string{"@value": t.Value}
	}
}
