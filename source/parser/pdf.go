package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/c360studio/ontogenia/source"
)

// PDFParser extracts the text layer of a PDF, one segment per page.
// Image-only pages produce empty segments so page indices stay aligned
// with the document.
type PDFParser struct {
	logger *slog.Logger
}

// NewPDFParser creates a new PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{logger: slog.Default().With("component", "pdf-parser")}
}

// Parse extracts text from every page.
func (p *PDFParser) Parse(ctx context.Context, filename string, content []byte) (*source.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	doc := &source.Document{
		ID:       generateID(filename, content),
		Filename: filepath.Base(filename),
		MimeType: p.MimeType(),
	}

	numPages := reader.NumPage()
	empty := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var text string
		if page := reader.Page(i); !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				p.logger.Warn("Skipping unreadable PDF page", "file", doc.Filename, "page", i, "error", err)
				text = ""
			}
		}
		if text == "" {
			empty++
		}
		doc.Segments = append(doc.Segments, source.Segment{Index: i - 1, Text: text, Source: doc.Filename})
	}

	if numPages > 0 && empty == numPages {
		return nil, fmt.Errorf("PDF %s has %d pages but no text layer; use the llamaparse parser", doc.Filename, numPages)
	}
	return doc, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *PDFParser) CanParse(mimeType string) bool {
	return mimeType == "application/pdf"
}

// MimeType returns the primary MIME type for this parser.
func (p *PDFParser) MimeType() string {
	return "application/pdf"
}
