package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "R E P O R T |  M A N D I A N T APT41, A Dual Espionage and Cyber Crime Operation"

func pages(texts ...string) []Segment {
	segs := make([]Segment, len(texts))
	for i, t := range texts {
		segs[i] = Segment{Index: i, Text: t, Source: "apt41.pdf"}
	}
	return segs
}

func TestDropSegments(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		want    []string
	}{
		{"none", nil, []string{"p0", "p1", "p2", "p3", "p4"}},
		{"last", []int{4}, []string{"p0", "p1", "p2", "p3"}},
		{"first", []int{0}, []string{"p1", "p2", "p3", "p4"}},
		{"several unordered", []int{3, 1}, []string{"p0", "p2", "p4"}},
		{"duplicate index", []int{2, 2}, []string{"p0", "p1", "p3", "p4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, err := DropSegments(pages("p0", "p1", "p2", "p3", "p4"), tt.indices)
			require.NoError(t, err)
			var got []string
			for _, s := range kept {
				got = append(got, s.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropSegments_OutOfRange(t *testing.T) {
	for _, idx := range []int{4, 10, -1} {
		_, err := DropSegments(pages("a", "b", "c", "d"), []int{idx})

		var indexErr *SegmentIndexError
		require.True(t, errors.As(err, &indexErr), "index %d", idx)
		assert.Equal(t, idx, indexErr.Index)
		assert.Equal(t, 4, indexErr.Count)
	}
}

func TestMerge(t *testing.T) {
	assert.Equal(t, "", Merge(nil))
	assert.Equal(t, "only", Merge(pages("only")))
	assert.Equal(t, "a\nb\nc", Merge(pages("a", "b", "c")))
}

func TestRemoveNoise(t *testing.T) {
	text := header + "\nAPT41 is prolific.\n" + header + "\nIt uses Winnti.\n" + header

	got := RemoveNoise(text, []string{header}, "")
	assert.NotContains(t, got, header)
	assert.Equal(t, len(text)-3*len(header), len(got))

	spaced := RemoveNoise(text, []string{header}, " ")
	assert.Equal(t, " \nAPT41 is prolific.\n \nIt uses Winnti.\n ", spaced)
}

func TestRemoveNoise_LongestFirst(t *testing.T) {
	got := RemoveNoise("xx MANDIANT REPORT yy", []string{"MANDIANT", "MANDIANT REPORT", ""}, "")
	assert.Equal(t, "xx  yy", got)
}

func TestClean(t *testing.T) {
	segs := pages(
		header+"\nIntroduction",
		"Targets: healthcare "+header,
		"Malware: POISONPLUG",
		"Infrastructure",
		"Disclaimer page",
	)

	got, err := Clean(segs, []int{4}, []string{header}, "")
	require.NoError(t, err)

	assert.Equal(t, "\nIntroduction\nTargets: healthcare \nMalware: POISONPLUG\nInfrastructure", got)
	assert.NotContains(t, got, "Disclaimer")
	assert.Equal(t, 4, strings.Count(got, "\n"))
}

func TestDocument_Text(t *testing.T) {
	doc := &Document{Segments: pages("one", "two")}
	assert.Equal(t, "one\ntwo", doc.Text())
}
