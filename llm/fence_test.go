package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFenced(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rdf:RDF/>`

	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"xml fence", "```xml\n" + doc + "\n```", doc, true},
		{"owl fence with prose", "Here is the ontology:\n\n```owl\n" + doc + "\n```\nLet me know.", doc, true},
		{"uppercase tag", "```XML\n" + doc + "\n```", doc, true},
		{"untagged fence", "```\n" + doc + "\n```", doc, true},
		{"bare document", "\n  " + doc + "\n", doc, true},
		{"unterminated fence", "```xml\n" + doc + "\n", doc, true},
		{"skips other languages", "```python\nprint(1)\n```\n```rdf\n" + doc + "\n```", doc, true},
		{"prose only", "I cannot produce an ontology for this input.", "", false},
		{"untagged non-xml fence", "```\nhello\n```", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFenced(tt.content, "xml", "owl", "rdf")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripFixed(t *testing.T) {
	body := "<rdf:RDF/>"

	assert.Equal(t, body, StripFixed("```xml\n"+body+"```", 7, 3))
	// A 6-rune opening fence loses the first body rune as well.
	assert.Equal(t, body[1:], StripFixed("```xm\n"+body+"```", 7, 3))
	// A closing fence preceded by a newline leaves it in place.
	assert.Equal(t, body+"\n", StripFixed("```xml\n"+body+"\n```", 7, 3))
	assert.Equal(t, "", StripFixed("```xml```", 7, 3))
	assert.Equal(t, "é", StripFixed("```xml\né```", 7, 3))
}

func TestMalformedResponseError(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}
	err := NewMalformedResponseError("ontology-synthesizer", "no fence", string(long))

	assert.True(t, IsMalformed(err))
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "ontology-synthesizer: malformed response: no fence")

	var m *MalformedResponseError
	assert.ErrorAs(t, err, &m)
	assert.Len(t, []rune(m.Snippet), snippetLen+3)
}
