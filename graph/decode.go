package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// Format identifies an RDF serialization.
type Format string

// Supported serializations.
const (
	FormatRDFXML   Format = "xml"
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "nt"
)

// ParseError reports a document that is not well-formed for its format.
type ParseError struct {
	Format Format
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s (line %d): %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatFromPath guesses the serialization from a file extension.
// Unknown extensions default to RDF/XML, the OWL exchange syntax.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl":
		return FormatTurtle
	case ".nt":
		return FormatNTriples
	default:
		return FormatRDFXML
	}
}

// ParseString parses data in the given format. base resolves relative IRIs
// when the document does not declare its own xml:base.
func ParseString(data string, format Format, base string) (*Graph, error) {
	return Parse(strings.NewReader(data), format, base)
}

// ParseFile reads and parses the file at path. The file URI is used as the
// fallback base IRI.
func ParseFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), FormatFromPath(path), FileBase(path))
}

// FileBase returns a file:// IRI for path suitable as a document base.
func FileBase(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// Parse decodes an RDF document. RDF/XML goes through the package's own
// decoder, which also reports malformed markup with a line number; Turtle
// and N-Triples go through knakk/rdf.
func Parse(r io.Reader, format Format, base string) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	g := New()
	g.Base = base

	var rdfFormat rdf.Format
	switch format {
	case FormatRDFXML:
		if err := decodeRDFXML(data, g); err != nil {
			return nil, err
		}
		return g, nil
	case FormatTurtle:
		rdfFormat = rdf.Turtle
	case FormatNTriples:
		rdfFormat = rdf.NTriples
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	dec := rdf.NewTripleDecoder(bytes.NewReader(data), rdfFormat)
	// The N-Triples decoder accepts no options; its IRIs are absolute.
	if format == FormatTurtle && g.Base != "" {
		baseIRI, err := rdf.NewIRI(g.Base)
		if err != nil {
			return nil, fmt.Errorf("base IRI %q: %w", g.Base, err)
		}
		if err := dec.SetOption(rdf.Base, baseIRI); err != nil {
			return nil, fmt.Errorf("set base IRI: %w", err)
		}
	}

	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
		g.Add(fromRDF(tr))
	}

	return g, nil
}

// fromRDF converts a decoded knakk/rdf triple into graph terms.
func fromRDF(tr rdf.Triple) Triple {
	return Triple{
		Subject:   fromRDFTerm(tr.Subj),
		Predicate: fromRDFTerm(tr.Pred),
		Object:    fromRDFTerm(tr.Obj),
	}
}

func fromRDFTerm(t rdf.Term) Term {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String())
	case rdf.Blank:
		return Blank(v.String())
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return LangLiteral(v.String(), lang)
		}
		return TypedLiteral(v.String(), v.DataType.String())
	default:
		return Literal(t.String())
	}
}

// ToRDF converts a graph triple into a knakk/rdf triple for encoding.
func ToRDF(t Triple) (rdf.Triple, error) {
	subj, err := toRDFTerm(t.Subject)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("subject: %w", err)
	}
	pred, err := rdf.NewIRI(t.Predicate.Value)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("predicate: %w", err)
	}
	obj, err := toRDFTerm(t.Object)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("object: %w", err)
	}

	s, ok := subj.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("literal cannot be a subject: %s", t.Subject)
	}
	o, ok := obj.(rdf.Object)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("invalid object: %s", t.Object)
	}
	return rdf.Triple{Subj: s, Pred: pred, Obj: o}, nil
}

func toRDFTerm(t Term) (rdf.Term, error) {
	switch t.Kind {
	case KindIRI:
		return rdf.NewIRI(t.Value)
	case KindBlank:
		return rdf.NewBlank(t.Value)
	default:
		if t.Lang != "" {
			return rdf.NewLangLiteral(t.Value, t.Lang)
		}
		dt, err := rdf.NewIRI(t.Datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(t.Value, dt), nil
	}
}
