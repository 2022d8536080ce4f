package contentextractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/source"
	"github.com/c360studio/ontogenia/source/weburl"
	"github.com/c360studio/ontogenia/storage"
)

const header = "APT41: A Dual Espionage and Cyber Crime Operation"

// pageParser returns a fixed list of pages for every document.
type pageParser struct {
	pages []string
	err   error
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
	files    []string
}

func (p *pageParser) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peak {
		p.peak = p.inFlight
	}
	p.files = append(p.files, filename)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}

	doc := &source.Document{Filename: filename, MimeType: "application/pdf"}
	for i, text := range p.pages {
		doc.Segments = append(doc.Segments, source.Segment{Index: i, Text: text, Source: filename})
	}
	return doc, nil
}

func (p *pageParser) CanParse(string) bool { return true }
func (p *pageParser) MimeType() string     { return "application/pdf" }

func fivePages() []string {
	return []string{
		header + " page zero",
		"Executive summary " + header,
		"Attribution and " + header + " targeting",
		"Malware families",
		"Table of contents that confuses the model",
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtract_DropAndNoise(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = []string{header}
	cfg.NoiseReplacement = ""

	c, err := NewComponent(cfg, WithRemoteParser(&pageParser{pages: fivePages()}))
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "apt41.pdf", "%PDF")
	result, err := c.Extract(context.Background(), path)
	require.NoError(t, err)

	pages := fivePages()
	merged := strings.Join(pages[:4], "\n")
	want := strings.ReplaceAll(merged, header, "")

	assert.Equal(t, want, result.Text)
	assert.NotContains(t, result.Text, "Table of contents")
	assert.Equal(t, 5, result.Segments)
	assert.Equal(t, 4, result.Kept)
	assert.Equal(t, 3, result.NoiseMatches)
	assert.Equal(t, len(merged)-3*len(header), len(result.Text))
	assert.Empty(t, result.TextPath)
}

func TestExtract_DefaultReplacementIsSpace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = []string{header}

	c, err := NewComponent(cfg, WithRemoteParser(&pageParser{pages: fivePages()}))
	require.NoError(t, err)

	result, err := c.Extract(context.Background(), writeFile(t, t.TempDir(), "r.pdf", "x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Text, "  page zero"))
}

func TestExtract_DropIndexOutOfRange(t *testing.T) {
	c, err := NewComponent(DefaultConfig(), WithRemoteParser(&pageParser{pages: []string{"one", "two"}}))
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), writeFile(t, t.TempDir(), "short.pdf", "x"))
	require.Error(t, err)
	assert.True(t, llm.IsMalformed(err))

	var malformed *llm.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, Stage, malformed.Stage)
	assert.Contains(t, malformed.Reason, "index 4")
	assert.Contains(t, malformed.Reason, "2 segments")
}

func TestExtract_ParserErrorPropagates(t *testing.T) {
	parseErr := llm.NewTransientError(errors.New("503 from parsing service"))
	c, err := NewComponent(DefaultConfig(), WithRemoteParser(&pageParser{err: parseErr}))
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), writeFile(t, t.TempDir(), "r.pdf", "x"))
	assert.True(t, llm.IsTransient(err))
}

func TestExtract_MissingFile(t *testing.T) {
	c, err := NewComponent(DefaultConfig(), WithRemoteParser(&pageParser{}))
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorContains(t, err, "read document")
}

func TestExtract_LlamaParseWithoutKey(t *testing.T) {
	c, err := NewComponent(DefaultConfig(), WithGetenv(func(string) string { return "" }))
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), writeFile(t, t.TempDir(), "r.pdf", "x"))
	assert.True(t, llm.IsFatal(err))
}

func TestExtract_LocalText(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parser = ParserLocal
	cfg.DropSegments = []int{1}
	cfg.RawTextFile = "raw_text.txt"

	dir := t.TempDir()
	c, err := NewComponent(cfg, WithArtifacts(storage.NewArtifacts(dir, nil)))
	require.NoError(t, err)

	path := writeFile(t, dir, "report.txt", "Page one\fCover page\fPage three")
	result, err := c.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Page one\nPage three", result.Text)
	assert.Equal(t, filepath.Join(dir, "raw_text.txt"), result.TextPath)

	data, err := os.ReadFile(result.TextPath)
	require.NoError(t, err)
	assert.Equal(t, result.Text, string(data))
}

func TestExtract_LocalUnknownExtension(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parser = ParserLocal

	c, err := NewComponent(cfg)
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), writeFile(t, t.TempDir(), "report.docx", "x"))
	assert.ErrorContains(t, err, "no parser for file")
}

func TestExtract_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>APT41</title></head><body><article>
<h1>APT41</h1>
<p>APT41 is a prolific cyber threat group that carries out state-sponsored espionage activity
in parallel with financially motivated operations across healthcare and telecommunications.</p>
<p>The group uses POISONPLUG, HIGHNOON and dozens of other malware families and tools to
accomplish its missions, often through spear-phishing and supply chain compromises.</p>
</article></body></html>`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DropSegments = nil

	c, err := NewComponent(cfg,
		WithRemoteParser(&pageParser{}),
		WithFetcher(weburl.NewFetcher(weburl.FetcherConfig{AllowPrivate: true})))
	require.NoError(t, err)

	result, err := c.Extract(context.Background(), srv.URL+"/apt41")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "POISONPLUG")
	assert.Equal(t, 1, result.Segments)
}

func TestExtractAll_BoundedConcurrency(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeFile(t, dir, fmt.Sprintf("reports/r%d.pdf", i), "x")
	}

	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	cfg.RawTextFile = "raw.txt"
	p := &pageParser{pages: fivePages(), delay: 20 * time.Millisecond}

	c, err := NewComponent(cfg, WithRemoteParser(p), WithArtifacts(storage.NewArtifacts(dir, nil)))
	require.NoError(t, err)

	results, err := c.ExtractAll(context.Background(), []string{filepath.Join(dir, "**/*.pdf")})
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, r := range results {
		assert.Equal(t, filepath.Join(dir, "reports", fmt.Sprintf("r%d.pdf", i)), r.Source)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("r%d_raw.txt", i)), r.TextPath)
	}
	assert.LessOrEqual(t, p.peak, 2)
	assert.Len(t, p.files, 6)
}

func TestExtractAll_FirstErrorCancels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "x")

	c, err := NewComponent(DefaultConfig(), WithRemoteParser(&pageParser{pages: []string{"only"}}))
	require.NoError(t, err)

	_, err = c.ExtractAll(context.Background(), []string{filepath.Join(dir, "*.pdf")})
	assert.True(t, llm.IsMalformed(err))
	assert.ErrorContains(t, err, "a.pdf")
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", "x")
	b := writeFile(t, dir, "nested/b.pdf", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty.pdf"), 0755))

	got, err := ExpandInputs([]string{filepath.Join(dir, "**/*.pdf"), a, "https://example.com/report"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, "https://example.com/report"}, got)

	_, err = ExpandInputs([]string{filepath.Join(dir, "*.html")})
	assert.ErrorContains(t, err, "no files match")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown parser", func(c *Config) { c.Parser = "tika" }},
		{"result type", func(c *Config) { c.ResultType = "json" }},
		{"workers", func(c *Config) { c.NumWorkers = 0 }},
		{"negative drop", func(c *Config) { c.DropSegments = []int{-1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}
