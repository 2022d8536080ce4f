// Package source provides the document and segment types produced by parsers,
// and the cleanup applied before a document is handed to the LLM.
package source

import (
	"fmt"
	"sort"
	"strings"
)

// Segment is one parsed unit of a document, usually a page.
type Segment struct {
	// Index is the zero-based position in the parser's output.
	Index int `json:"index" yaml:"index"`

	// Text is the extracted plain text.
	Text string `json:"text" yaml:"text"`

	// Source identifies the document the segment came from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Document is a parsed document.
type Document struct {
	// ID is derived from the file name and content hash.
	ID string `json:"id"`

	// Filename is the base name of the parsed file.
	Filename string `json:"filename"`

	// Title is the document title when the format carries one.
	Title string `json:"title,omitempty"`

	// MimeType is the MIME type the parser handled.
	MimeType string `json:"mime_type"`

	// Segments hold the content in parser order.
	Segments []Segment `json:"segments"`

	// Frontmatter contains parsed YAML frontmatter if present.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Text returns all segments joined with newlines.
func (d *Document) Text() string {
	return Merge(d.Segments)
}

// SegmentIndexError reports a drop index outside the segment list.
type SegmentIndexError struct {
	Index int
	Count int
}

func (e *SegmentIndexError) Error() string {
	return fmt.Sprintf("segment index %d out of range: document has %d segments", e.Index, e.Count)
}

// DropSegments returns segs without the segments at the given positions.
// Positions refer to the original list, so their order does not matter.
// A negative or out-of-range position is a *SegmentIndexError.
func DropSegments(segs []Segment, indices []int) ([]Segment, error) {
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(segs) {
			return nil, &SegmentIndexError{Index: idx, Count: len(segs)}
		}
		drop[idx] = true
	}

	kept := make([]Segment, 0, len(segs)-len(drop))
	for i, s := range segs {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// Merge joins segment texts with "\n" in segment order.
func Merge(segs []Segment) string {
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}

// RemoveNoise replaces every occurrence of each noise string with replacement.
// Longer noise strings are applied first so a noise string that contains
// another is removed whole.
func RemoveNoise(text string, noise []string, replacement string) string {
	ordered := make([]string, 0, len(noise))
	for _, n := range noise {
		if n != "" {
			ordered = append(ordered, n)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for _, n := range ordered {
		text = strings.ReplaceAll(text, n, replacement)
	}
	return text
}

// Clean drops the segments at dropIndices, merges the rest and strips noise.
func Clean(segs []Segment, dropIndices []int, noise []string, replacement string) (string, error) {
	kept, err := DropSegments(segs, dropIndices)
	if err != nil {
		return "", err
	}
	return RemoveNoise(Merge(kept), noise, replacement), nil
}
