package owl_test

import (
	"testing"

	"github.com/c360studio/ontogenia/vocabulary/owl"
	"github.com/stretchr/testify/assert"
)

func TestCompact(t *testing.T) {
	prefixes := owl.DefaultPrefixes()
	prefixes["ex"] = "http://example.org/apt41#"

	tests := []struct {
		iri  string
		want string
	}{
		{owl.OWLClass, "owl:Class"},
		{owl.SHMinCountConstraintComponent, "sh:MinCountConstraintComponent"},
		{"http://example.org/apt41#Malware", "ex:Malware"},
		{"http://unknown.org/x", "http://unknown.org/x"},
	}

	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			assert.Equal(t, tt.want, owl.Compact(tt.iri, prefixes))
		})
	}
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "ThreatActor", owl.LocalName("http://example.org/apt41#ThreatActor"))
	assert.Equal(t, "uses", owl.LocalName("http://example.org/onto/uses"))
	assert.Equal(t, "plain", owl.LocalName("plain"))
	assert.Equal(t, "http://example.org/", owl.LocalName("http://example.org/"))
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "http://example.org/apt41#", owl.Namespace("http://example.org/apt41#Malware"))
	assert.Equal(t, "", owl.Namespace("plain"))
}
