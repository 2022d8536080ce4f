package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_Pages(t *testing.T) {
	p := NewTextParser()

	doc, err := p.Parse(context.Background(), "/tmp/APT41 Report.txt", []byte("cover\fintroduction\r\nmore\fappendix"))
	require.NoError(t, err)

	assert.Equal(t, "APT41 Report.txt", doc.Filename)
	assert.Equal(t, "text/plain", doc.MimeType)
	assert.True(t, strings.HasPrefix(doc.ID, "doc.apt41-report."), doc.ID)
	require.Len(t, doc.Segments, 3)
	assert.Equal(t, "introduction\nmore", doc.Segments[1].Text)
	assert.Equal(t, 2, doc.Segments[2].Index)
	assert.Equal(t, "APT41 Report.txt", doc.Segments[0].Source)
}

func TestTextParser_Frontmatter(t *testing.T) {
	p := NewTextParser()

	content := "---\ntitle: APT41 Dual Operation\nvendor: Mandiant\n---\n\n# Summary\nAPT41 targets healthcare.\n"
	doc, err := p.Parse(context.Background(), "apt41.md", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "text/markdown", doc.MimeType)
	assert.Equal(t, "APT41 Dual Operation", doc.Title)
	assert.Equal(t, "Mandiant", doc.Frontmatter["vendor"])
	require.Len(t, doc.Segments, 1)
	assert.Equal(t, "# Summary\nAPT41 targets healthcare.\n", doc.Segments[0].Text)
}

func TestTextParser_UnterminatedFrontmatter(t *testing.T) {
	content := "---\ntitle: broken\n# Body"
	doc, err := NewTextParser().Parse(context.Background(), "x.md", []byte(content))
	require.NoError(t, err)
	assert.Nil(t, doc.Frontmatter)
	assert.Equal(t, content, doc.Segments[0].Text)
}

func TestTextParser_StableID(t *testing.T) {
	p := NewTextParser()
	a, err := p.Parse(context.Background(), "r.txt", []byte("same"))
	require.NoError(t, err)
	b, err := p.Parse(context.Background(), "r.txt", []byte("same"))
	require.NoError(t, err)
	c, err := p.Parse(context.Background(), "r.txt", []byte("different"))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestTextParser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTextParser().Parse(ctx, "r.txt", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
