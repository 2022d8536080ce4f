package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/c360studio/ontogenia/export"
	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/ontology"
)

const ex = "http://example.org/apt41#"

func loadMinimal(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.ParseFile("testdata/minimal.owl")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return g
}

func TestRDFXMLRoundTrip(t *testing.T) {
	g := loadMinimal(t)

	data, err := export.Marshal(g, export.FormatRDFXML)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := graph.ParseString(string(data), graph.FormatRDFXML, "")
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, data)
	}

	if back.Len() != g.Len() {
		t.Errorf("triple count changed: got %d, want %d", back.Len(), g.Len())
	}
	for _, tr := range g.Triples() {
		if !back.Has(tr.Subject, tr.Predicate.Value, tr.Object) {
			t.Errorf("missing triple after round trip: %s", tr)
		}
	}

	before, after := ontology.New(g).Stats(), ontology.New(back).Stats()
	if len(after.Classes) != len(before.Classes) {
		t.Errorf("classes: got %d, want %d", len(after.Classes), len(before.Classes))
	}
	if len(after.ObjectProperties) != len(before.ObjectProperties) {
		t.Errorf("object properties: got %d, want %d", len(after.ObjectProperties), len(before.ObjectProperties))
	}
}

func TestRDFXMLHeader(t *testing.T) {
	data, err := export.Marshal(loadMinimal(t), export.FormatRDFXML)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "<?xml version=\"1.0\"?>\n<rdf:RDF") {
		t.Errorf("unexpected document start: %.60s", out)
	}
	if !strings.Contains(out, `xml:base="http://example.org/apt41"`) {
		t.Error("RDF/XML output should keep xml:base")
	}
	if !strings.Contains(out, `xmlns:owl="http://www.w3.org/2002/07/owl#"`) {
		t.Error("RDF/XML output should declare the owl prefix")
	}
	// ontology header comes before any class
	if strings.Index(out, `rdf:about="http://example.org/apt41"`) > strings.Index(out, "ThreatActor") {
		t.Error("ontology header should be written first")
	}
}

func TestRDFXMLEscapesLiterals(t *testing.T) {
	g := graph.New()
	g.Add(graph.Triple{
		Subject:   graph.IRI(ex + "APT41"),
		Predicate: graph.IRI("http://www.w3.org/2000/01/rdf-schema#comment"),
		Object:    graph.Literal(`uses <script> & "quotes"`),
	})
	g.Add(graph.Triple{
		Subject:   graph.IRI(ex + "APT41"),
		Predicate: graph.IRI("http://other.example/vocab/alias"),
		Object:    graph.LangLiteral("Barium", "en"),
	})

	data, err := export.Marshal(g, export.FormatRDFXML)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "<script>") {
		t.Error("literal markup should be escaped")
	}
	if !strings.Contains(string(data), `xmlns:ns1="http://other.example/vocab/"`) {
		t.Errorf("unknown namespace should get a generated prefix:\n%s", data)
	}

	back, err := graph.ParseString(string(data), graph.FormatRDFXML, "")
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if !back.Has(graph.IRI(ex+"APT41"), "http://other.example/vocab/alias", graph.LangLiteral("Barium", "en")) {
		t.Error("language-tagged literal should survive the round trip")
	}
}

func TestRDFXMLRejectsUnsplittablePredicate(t *testing.T) {
	g := graph.New()
	g.Add(graph.Triple{
		Subject:   graph.IRI(ex + "A"),
		Predicate: graph.IRI("http://example.org/123"),
		Object:    graph.IRI(ex + "B"),
	})
	if _, err := export.Marshal(g, export.FormatRDFXML); err == nil {
		t.Error("expected error for predicate without an XML local name")
	}
}

func TestExportNTriples(t *testing.T) {
	data, err := export.Marshal(loadMinimal(t), export.FormatNTriples)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := graph.ParseString(string(data), graph.FormatNTriples, "")
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if back.Len() != loadMinimal(t).Len() {
		t.Errorf("triple count changed: got %d", back.Len())
	}
	if !strings.Contains(string(data), "<"+ex+"APT41> <"+ex+"uses> <"+ex+"POISONPLUG> .") {
		t.Error("N-Triples output should contain the uses triple")
	}
}

func TestExportTurtle(t *testing.T) {
	data, err := export.Marshal(loadMinimal(t), export.FormatTurtle)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := graph.ParseString(string(data), graph.FormatTurtle, "")
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, data)
	}
	if back.Len() != loadMinimal(t).Len() {
		t.Errorf("triple count changed: got %d", back.Len())
	}
}

func TestExportJSONLD(t *testing.T) {
	data, err := export.Marshal(loadMinimal(t), export.FormatJSONLD)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc struct {
		Context map[string]any   `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Context["@vocab"] != ex {
		t.Errorf("@vocab = %v, want %s", doc.Context["@vocab"], ex)
	}

	var found bool
	for _, node := range doc.Graph {
		if node["@id"] == ex+"POISONPLUG" {
			found = true
			values, ok := node[ex+"firstSeen"].([]any)
			if !ok || len(values) != 1 {
				t.Fatalf("firstSeen values = %v", node[ex+"firstSeen"])
			}
			v := values[0].(map[string]any)
			if v["@value"] != "2016-01-01" || v["@type"] != "http://www.w3.org/2001/XMLSchema#date" {
				t.Errorf("firstSeen value = %v", v)
			}
		}
	}
	if !found {
		t.Error("JSON-LD graph should contain POISONPLUG")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := export.Marshal(graph.New(), export.Format("trig")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]export.Format{
		"out.owl":    export.FormatRDFXML,
		"out.RDF":    export.FormatRDFXML,
		"out.ttl":    export.FormatTurtle,
		"out.nt":     export.FormatNTriples,
		"out.jsonld": export.FormatJSONLD,
	}
	for path, want := range tests {
		got, ok := export.FormatForPath(path)
		if !ok || got != want {
			t.Errorf("FormatForPath(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := export.FormatForPath("out.pdf"); ok {
		t.Error("pdf should not map to an RDF format")
	}
}

func TestListFormats(t *testing.T) {
	formats := export.ListFormats()
	if len(formats) != 4 {
		t.Fatalf("ListFormats() returned %d formats", len(formats))
	}
	for _, f := range formats {
		if _, ok := export.GetFormatInfo(f); !ok {
			t.Errorf("format %s missing from registry", f)
		}
	}
}
