package graph_test

import (
	"errors"
	"testing"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_RDFXML(t *testing.T) {
	g, err := graph.ParseFile("testdata/minimal.owl")
	require.NoError(t, err)

	assert.Equal(t, "http://example.org/apt41", g.Base)
	assert.Equal(t, owl.OWL, g.Prefixes["owl"])
	assert.Equal(t, ex, g.Prefixes[""])

	assert.True(t, g.HasType(graph.IRI(ex+"ThreatActor"), owl.OWLClass))
	assert.True(t, g.HasType(graph.IRI(ex+"uses"), owl.OWLObjectProperty))
	assert.True(t, g.Has(graph.IRI(ex+"Backdoor"), owl.RDFSSubClassOf, graph.IRI(ex+"Malware")))
	assert.True(t, g.Has(graph.IRI(ex+"APT41"), ex+"uses", graph.IRI(ex+"POISONPLUG")))

	seen, ok := g.Object(graph.IRI(ex+"POISONPLUG"), ex+"firstSeen")
	require.True(t, ok)
	assert.Equal(t, "2016-01-01", seen.Value)
	assert.Equal(t, owl.XSDDate, seen.Datatype)
}

func TestParse_MalformedXML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <owl:Class rdf:about="http://example.org/A">
</rdf:RDF>`

	_, err := graph.ParseString(doc, graph.FormatRDFXML, "")
	require.Error(t, err)

	var perr *graph.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, graph.FormatRDFXML, perr.Format)
	assert.Greater(t, perr.Line, 0)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := graph.ParseString("", graph.FormatRDFXML, "")
	require.Error(t, err)
}

func TestParse_NTriples(t *testing.T) {
	doc := `<http://example.org/apt41#A> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2002/07/owl#Class> .
<http://example.org/apt41#A> <http://www.w3.org/2000/01/rdf-schema#label> "A class" .
`
	g, err := graph.ParseString(doc, graph.FormatNTriples, "")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.True(t, g.HasType(graph.IRI(ex+"A"), owl.OWLClass))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, graph.FormatTurtle, graph.FormatFromPath("shapes.TTL"))
	assert.Equal(t, graph.FormatNTriples, graph.FormatFromPath("dump.nt"))
	assert.Equal(t, graph.FormatRDFXML, graph.FormatFromPath("output.owl"))
	assert.Equal(t, graph.FormatRDFXML, graph.FormatFromPath("output.rdf"))
}

func TestParseFile_ProtegeStyle(t *testing.T) {
	g, err := graph.ParseFile("testdata/protege.owl")
	require.NoError(t, err)

	assert.Equal(t, "http://example.org/apt41", g.Base)
	assert.Equal(t, owl.OWL, g.Prefixes["owl"], "entity references expand in namespace declarations")
	assert.Equal(t, ex, g.Prefixes[""])
	assert.True(t, g.HasType(graph.IRI("http://example.org/apt41"), owl.OWLOntology))

	t.Run("property attribute inherits xml:lang", func(t *testing.T) {
		assert.True(t, g.Has(graph.IRI(ex+"ThreatActor"), owl.RDFSLabel, graph.LangLiteral("Threat Actor", "en")))
	})

	t.Run("rdf:ID resolves against xml:base", func(t *testing.T) {
		tool := graph.IRI(ex + "Tool")
		assert.True(t, g.HasType(tool, owl.OWLClass))
		assert.True(t, g.Has(tool, owl.RDFSComment, graph.LangLiteral("Outil", "fr")))
		assert.True(t, g.Has(tool, owl.RDFSComment, graph.LangLiteral("Utility software", "en")))
	})

	t.Run("nested restriction", func(t *testing.T) {
		backdoor := graph.IRI(ex + "Backdoor")
		assert.True(t, g.Has(backdoor, owl.RDFSSubClassOf, graph.IRI(ex+"Malware")))

		var restriction graph.Term
		for _, super := range g.Objects(backdoor, owl.RDFSSubClassOf) {
			if super.IsBlank() {
				restriction = super
			}
		}
		require.False(t, restriction.IsZero())
		assert.True(t, g.HasType(restriction, owl.OWLRestriction))
		assert.True(t, g.Has(restriction, owl.OWLOnProperty, graph.IRI(ex+"communicatesWith")))
		assert.True(t, g.Has(restriction, owl.OWL+"someValuesFrom", graph.IRI(ex+"C2Server")))
	})

	t.Run("union collection", func(t *testing.T) {
		rng, ok := g.Object(graph.IRI(ex+"uses"), owl.RDFSRange)
		require.True(t, ok)
		require.True(t, rng.IsBlank())
		assert.True(t, g.HasType(rng, owl.OWLClass))

		head, ok := g.Object(rng, owl.OWLUnionOf)
		require.True(t, ok)
		assert.Equal(t, []graph.Term{graph.IRI(ex + "Malware"), graph.IRI(ex + "Tool")}, g.List(head))
		assert.True(t, g.HasType(graph.IRI(ex+"Malware"), owl.OWLClass), "typed collection members emit their own triples")
	})

	apt41 := graph.IRI(ex + "APT41")

	t.Run("reification", func(t *testing.T) {
		stmt := graph.IRI(ex + "aliasStatement")
		alias := graph.LangLiteral("Double Dragon", "en")
		assert.True(t, g.Has(apt41, ex+"alias", alias))
		assert.True(t, g.HasType(stmt, owl.RDF+"Statement"))
		assert.True(t, g.Has(stmt, owl.RDF+"subject", apt41))
		assert.True(t, g.Has(stmt, owl.RDF+"predicate", graph.IRI(ex+"alias")))
		assert.True(t, g.Has(stmt, owl.RDF+"object", alias))
	})

	t.Run("parse types", func(t *testing.T) {
		observed, ok := g.Object(apt41, ex+"observedAt")
		require.True(t, ok)
		assert.True(t, observed.IsBlank())
		assert.True(t, g.Has(observed, ex+"firstSeen", graph.TypedLiteral("2012-01-01", owl.XSDDate)))

		excerpt, ok := g.Object(apt41, ex+"reportExcerpt")
		require.True(t, ok)
		assert.Equal(t, owl.RDFXMLLiteral, excerpt.Datatype)
		assert.Equal(t, "uses <b>POISONPLUG</b>", excerpt.Value)
	})

	t.Run("container membership", func(t *testing.T) {
		bag, ok := g.Object(apt41, ex+"sectors")
		require.True(t, ok)
		assert.True(t, g.HasType(bag, owl.RDF+"Bag"))
		assert.True(t, g.Has(bag, owl.RDF+"_1", graph.LangLiteral("Healthcare", "en")))
		assert.True(t, g.Has(bag, owl.RDF+"_2", graph.LangLiteral("Telecommunications", "en")))
	})

	t.Run("node IDs", func(t *testing.T) {
		country := graph.Blank("country")
		assert.True(t, g.Has(apt41, ex+"origin", country))
		assert.True(t, g.Has(country, ex+"countryCode", graph.LangLiteral("CN", "en")))
		assert.True(t, g.Has(country, owl.RDFSLabel, graph.LangLiteral("China", "en")))
	})
}

func TestParse_RDFXMLBareNodeElement(t *testing.T) {
	doc := `<owl:Class xmlns:owl="http://www.w3.org/2002/07/owl#"
    xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
    rdf:about="#A"/>`

	g, err := graph.ParseString(doc, graph.FormatRDFXML, "http://example.org/apt41")
	require.NoError(t, err)
	assert.True(t, g.HasType(graph.IRI(ex+"A"), owl.OWLClass))
}

func TestParse_RDFXMLErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"undeclared entity", `<owl:Class rdf:about="&nope;A"/>`},
		{"undeclared prefix", `<ex:Thing rdf:about="http://example.org/A"/>`},
		{"two node elements in one property", `<owl:Class rdf:about="http://example.org/A">
    <rdfs:subClassOf><owl:Class/><owl:Class/></rdfs:subClassOf>
  </owl:Class>`},
		{"text in node element", `<owl:Class rdf:about="http://example.org/A">stray</owl:Class>`},
		{"conflicting identifiers", `<owl:Class rdf:about="http://example.org/A" rdf:nodeID="a"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
    xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#"
    xmlns:owl="http://www.w3.org/2002/07/owl#">
  ` + tt.body + `
</rdf:RDF>`
			_, err := graph.ParseString(doc, graph.FormatRDFXML, "")
			require.Error(t, err)

			var perr *graph.ParseError
			require.True(t, errors.As(err, &perr))
			assert.Greater(t, perr.Line, 0)
		})
	}
}

func TestParse_TurtleResolvesAgainstBase(t *testing.T) {
	doc := `@prefix owl: <http://www.w3.org/2002/07/owl#> .
<#Malware> a owl:Class .
`
	g, err := graph.ParseString(doc, graph.FormatTurtle, "http://example.org/apt41")
	require.NoError(t, err)
	assert.True(t, g.HasType(graph.IRI(ex+"Malware"), owl.OWLClass))
}
