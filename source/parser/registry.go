// Package parser turns report files into source.Documents. Local parsers
// handle plain text, markdown, PDF and HTML; the LlamaParse client delegates
// to the hosted parsing service.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/ontogenia/source"
)

// Parser defines the interface for document parsers.
type Parser interface {
	// Parse parses a document and returns its segments.
	Parse(ctx context.Context, filename string, content []byte) (*source.Document, error)

	// CanParse returns true if this parser handles the given MIME type.
	CanParse(mimeType string) bool

	// MimeType returns the primary MIME type for this parser.
	MimeType() string
}

// Registry manages document parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by primary MIME type
}

// NewRegistry creates a registry holding the local parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	r.Register(NewTextParser())
	r.Register(NewPDFParser())
	r.Register(NewHTMLParser())

	return r
}

// Register adds a parser, replacing any parser with the same MIME type.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.MimeType()] = p
}

// GetByMimeType returns a parser for the given MIME type, or nil.
func (r *Registry) GetByMimeType(mimeType string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.parsers[mimeType]; ok {
		return p
	}

	// Iterate in a fixed order so overlapping CanParse sets resolve the same way.
	for _, t := range r.sortedTypes() {
		if p := r.parsers[t]; p.CanParse(mimeType) {
			return p
		}
	}
	return nil
}

// GetByExtension returns a parser for a file based on its extension.
func (r *Registry) GetByExtension(filename string) Parser {
	return r.GetByMimeType(MimeTypeFromExtension(filepath.Ext(filename)))
}

// Parse parses a document using the parser registered for its extension.
func (r *Registry) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	p := r.GetByExtension(filename)
	if p == nil {
		return nil, fmt.Errorf("no parser for file type: %q", filepath.Ext(filename))
	}
	return p.Parse(ctx, filename, content)
}

// ListMimeTypes returns all registered MIME types, sorted.
func (r *Registry) ListMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedTypes()
}

func (r *Registry) sortedTypes() []string {
	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MimeTypeFromExtension returns the MIME type for a file extension.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
