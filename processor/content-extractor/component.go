// Package contentextractor turns a threat report into the raw text handed to
// the question generator: parse into segments, drop unwanted segments, merge
// and strip recurring noise such as running page headers.
package contentextractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/source"
	"github.com/c360studio/ontogenia/source/parser"
	"github.com/c360studio/ontogenia/source/weburl"
	"github.com/c360studio/ontogenia/storage"
)

// Stage is the stage name used in logs and errors.
const Stage = "content-extractor"

// Result is one extracted document.
type Result struct {
	// Source is the path or URL that was extracted.
	Source string

	// Document is the parsed document before cleanup.
	Document *source.Document

	// Text is the cleaned, merged document text.
	Text string

	// Segments is the number of segments the parser returned.
	Segments int

	// Kept is the number of segments merged into Text.
	Kept int

	// NoiseMatches counts noise occurrences found before removal.
	NoiseMatches int

	// TextPath is the written raw text artifact, empty when disabled.
	TextPath string
}

// Component implements the content extractor.
type Component struct {
	config    Config
	remote    parser.Parser
	registry  *parser.Registry
	fetcher   *weburl.Fetcher
	artifacts *storage.Artifacts
	logger    *slog.Logger
	getenv    func(string) string
}

// Option configures a Component.
type Option func(*Component)

// WithRemoteParser replaces the hosted parsing client.
func WithRemoteParser(p parser.Parser) Option {
	return func(c *Component) { c.remote = p }
}

// WithRegistry replaces the local parser registry.
func WithRegistry(r *parser.Registry) Option {
	return func(c *Component) { c.registry = r }
}

// WithFetcher replaces the web page fetcher used for URL inputs.
func WithFetcher(f *weburl.Fetcher) Option {
	return func(c *Component) { c.fetcher = f }
}

// WithArtifacts enables persistence of the raw text.
func WithArtifacts(a *storage.Artifacts) Option {
	return func(c *Component) { c.artifacts = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Component) { c.logger = l }
}

// WithGetenv overrides environment lookup for the parsing API key.
func WithGetenv(getenv func(string) string) Option {
	return func(c *Component) { c.getenv = getenv }
}

// NewComponent creates a content extractor.
func NewComponent(config Config, opts ...Option) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Component{
		config: config,
		logger: slog.Default(),
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", Stage)

	if c.registry == nil {
		c.registry = parser.NewRegistry()
	}
	if c.fetcher == nil {
		c.fetcher = weburl.NewFetcher(weburl.FetcherConfig{})
	}
	if c.remote == nil && config.Parser == ParserLlamaParse {
		c.remote = parser.NewLlamaParse(parser.LlamaParseConfig{
			BaseURL:      config.LlamaParseURL,
			APIKey:       c.getenv(parser.LlamaParseKeyEnv),
			Language:     config.Language,
			ResultType:   config.ResultType,
			PollInterval: config.PollInterval,
			Timeout:      config.Timeout,
		}, parser.WithParseLogger(c.logger))
	}
	return c, nil
}

// Extract parses the document at path (a file or an http(s) URL) and
// returns its cleaned text.
func (c *Component) Extract(ctx context.Context, path string) (*Result, error) {
	return c.extract(ctx, path, c.config.RawTextFile)
}

func (c *Component) extract(ctx context.Context, path, rawTextFile string) (*Result, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	started := time.Now()

	doc, err := c.parse(ctx, path)
	if err != nil {
		return nil, err
	}

	kept, err := source.DropSegments(doc.Segments, c.config.DropSegments)
	if err != nil {
		var idxErr *source.SegmentIndexError
		if errors.As(err, &idxErr) {
			return nil, llm.NewMalformedResponseError(Stage, idxErr.Error(), doc.Text())
		}
		return nil, err
	}

	merged := source.Merge(kept)
	matches := 0
	for _, n := range c.config.Noise {
		if n != "" {
			matches += strings.Count(merged, n)
		}
	}

	result := &Result{
		Source:       path,
		Document:     doc,
		Text:         source.RemoveNoise(merged, c.config.Noise, c.config.NoiseReplacement),
		Segments:     len(doc.Segments),
		Kept:         len(kept),
		NoiseMatches: matches,
	}

	if c.artifacts != nil && rawTextFile != "" {
		p, err := c.artifacts.WriteString(ctx, rawTextFile, result.Text)
		if err != nil {
			return nil, err
		}
		result.TextPath = p
	}

	c.logger.Info("Extracted document",
		"source", path,
		"segments", result.Segments,
		"kept", result.Kept,
		"noise_matches", matches,
		"chars", len(result.Text),
		"duration", time.Since(started).Round(time.Millisecond))
	return result, nil
}

// parse fetches or reads path and runs the matching parser.
func (c *Component) parse(ctx context.Context, path string) (*source.Document, error) {
	if weburl.IsURL(path) {
		page, err := c.fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		p := c.registry.GetByMimeType("text/html")
		if p == nil {
			return nil, fmt.Errorf("no HTML parser registered")
		}
		doc, err := p.Parse(ctx, path, page.Body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	p := c.remote
	if p == nil {
		p = c.registry.GetByExtension(filepath.Base(path))
	}
	if p == nil {
		return nil, fmt.Errorf("no parser for file: %s", path)
	}

	doc, err := p.Parse(ctx, filepath.Base(path), content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ExtractAll extracts every document matched by patterns, at most
// NumWorkers at a time. Patterns are doublestar globs; URLs pass through.
// Results keep the order of the expanded inputs. When more than one
// document is extracted each raw text artifact is prefixed with the
// document's base name.
func (c *Component) ExtractAll(ctx context.Context, patterns []string) ([]*Result, error) {
	inputs, err := ExpandInputs(patterns)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.NumWorkers)

	for i, in := range inputs {
		rawTextFile := c.config.RawTextFile
		if len(inputs) > 1 && rawTextFile != "" {
			rawTextFile = batchName(in, rawTextFile)
		}
		g.Go(func() error {
			r, err := c.extract(gctx, in, rawTextFile)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ExpandInputs resolves glob patterns to a de-duplicated file list, each
// pattern's matches sorted.
// A pattern that matches nothing is an error.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		if weburl.IsURL(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				out = append(out, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		found := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			found++
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
		if found == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
	}
	return out, nil
}

func batchName(input, name string) string {
	base := filepath.Base(input)
	if weburl.IsURL(input) {
		base = weburl.FileName(input)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	dir, file := filepath.Split(name)
	return filepath.Join(dir, base+"_"+file)
}
