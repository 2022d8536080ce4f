package parser

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ontogenia/source"
)

// pageBreak separates pages in text exported by pdftotext and similar tools.
const pageBreak = "\f"

// TextParser reads plain text and markdown reports. Form feeds split the
// text into segments; markdown frontmatter is parsed and removed.
type TextParser struct{}

// NewTextParser creates a new text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse splits content into page segments.
func (p *TextParser) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mimeType := MimeTypeFromExtension(filepath.Ext(filename))
	if !p.CanParse(mimeType) {
		mimeType = p.MimeType()
	}
	doc := &source.Document{
		ID:       generateID(filename, content),
		Filename: filepath.Base(filename),
		MimeType: mimeType,
	}

	body := strings.ReplaceAll(string(content), "\r\n", "\n")
	if strings.HasPrefix(body, "---\n") {
		if frontmatter, rest, err := extractFrontmatter(body); err == nil {
			doc.Frontmatter = frontmatter
			body = rest
			if title, ok := frontmatter["title"].(string); ok {
				doc.Title = title
			}
		}
	}

	for i, page := range strings.Split(body, pageBreak) {
		doc.Segments = append(doc.Segments, source.Segment{
			Index:  i,
			Text:   page,
			Source: doc.Filename,
		})
	}
	return doc, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *TextParser) CanParse(mimeType string) bool {
	switch mimeType {
	case "text/plain", "text/markdown", "text/x-markdown":
		return true
	default:
		return false
	}
}

// MimeType returns the primary MIME type for this parser.
func (p *TextParser) MimeType() string {
	return "text/plain"
}

// extractFrontmatter splits "---\n<yaml>\n---\n<body>" into its parts.
func extractFrontmatter(content string) (map[string]any, string, error) {
	const delimiter = "---"

	start := len(delimiter) + 1
	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}
	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && content[bodyStart] == '\n' {
		bodyStart++
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil {
		return nil, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}
	return frontmatter, content[bodyStart:], nil
}

// generateID creates a stable document ID from filename and content hash.
func generateID(filename string, content []byte) string {
	base := filepath.Base(filename)
	name := sanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))

	// 12 hex chars = 48 bits
	return fmt.Sprintf("doc.%s.%s", name, ContentHash(content)[:12])
}

// sanitizeID makes a string safe for use as an identifier.
func sanitizeID(s string) string {
	var buf bytes.Buffer
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			buf.WriteRune(r)
		case r == '-', r == '_', r == ' ':
			buf.WriteRune('-')
		}
	}
	return buf.String()
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
