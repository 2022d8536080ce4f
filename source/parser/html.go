package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/c360studio/ontogenia/source"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// HTMLParser extracts the main article of an HTML report (blog-style threat
// write-ups) and converts it to markdown as a single segment.
type HTMLParser struct {
	converter *md.Converter
	logger    *slog.Logger
}

// NewHTMLParser creates a new HTML parser.
func NewHTMLParser() *HTMLParser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTMLParser{
		converter: converter,
		logger:    slog.Default().With("component", "html-parser"),
	}
}

// Parse runs readability over the page, falling back to the whole body when
// no article can be found. filename may be a URL, which then resolves
// relative links.
func (p *HTMLParser) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageURL, err := url.Parse(filename)
	if err != nil || pageURL.Scheme == "" {
		pageURL = &url.URL{Scheme: "file", Path: filename}
	}

	title := extractHTMLTitle(content)
	body := string(content)

	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err != nil {
		p.logger.Debug("Readability failed, converting whole page", "file", filename, "error", err)
	} else if strings.TrimSpace(article.Content) != "" {
		body = article.Content
		if article.Title != "" {
			title = article.Title
		}
	}

	markdown, err := p.converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	name := filepath.Base(pageURL.Path)
	if name == "." || name == "/" {
		name = pageURL.Host
	}
	return &source.Document{
		ID:       generateID(name, content),
		Filename: name,
		Title:    title,
		MimeType: p.MimeType(),
		Segments: []source.Segment{{Index: 0, Text: markdown, Source: name}},
	}, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *HTMLParser) CanParse(mimeType string) bool {
	return mimeType == "text/html" || mimeType == "application/xhtml+xml"
}

// MimeType returns the primary MIME type for this parser.
func (p *HTMLParser) MimeType() string {
	return "text/html"
}

// extractHTMLTitle returns the text of the first <title> element.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return title
}

// cleanMarkdown collapses blank runs and trailing spaces left by conversion.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
