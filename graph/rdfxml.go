package graph

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/ontogenia/vocabulary/owl"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// xmlElement is one element of the parsed document tree.
type xmlElement struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder
	inner    string // raw markup between the start and end tags
	line     int
}

var (
	entityDecl = regexp.MustCompile(`<!ENTITY\s+([^\s%"']+)\s+(?:"([^"]*)"|'([^']*)')\s*>`)
	entityRef  = regexp.MustCompile(`&([A-Za-z_][\w.-]*);`)
)

// readXMLTree parses data strictly into an element tree. General entities
// declared in the internal DTD subset are expanded in text and attributes.
func readXMLTree(data []byte) (*xmlElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	var (
		root   *xmlElement
		stack  []*xmlElement
		starts []int64
	)
	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return nil, &ParseError{Format: FormatRDFXML, Line: line, Err: err}
		}

		switch t := tok.(type) {
		case xml.Directive:
			declareEntities(dec.Entity, string(t))
		case xml.StartElement:
			line, _ := dec.InputPos()
			el := &xmlElement{name: t.Name, attrs: t.Attr, line: line}
			if len(stack) == 0 {
				if root != nil {
					return nil, &ParseError{Format: FormatRDFXML, Line: line, Err: errors.New("more than one root element")}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
			starts = append(starts, dec.InputOffset())
		case xml.EndElement:
			top := len(stack) - 1
			stack[top].inner = string(data[starts[top]:before])
			stack, starts = stack[:top], starts[:top]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, &ParseError{Format: FormatRDFXML, Err: errors.New("document has no root element")}
	}
	return root, nil
}

// declareEntities records the general entities of a DOCTYPE directive.
// Parameter entities are ignored.
func declareEntities(entities map[string]string, directive string) {
	if !strings.HasPrefix(strings.TrimSpace(directive), "DOCTYPE") {
		return
	}
	for _, m := range entityDecl.FindAllStringSubmatch(directive, -1) {
		entities[m[1]] = entityRef.ReplaceAllStringFunc(m[2]+m[3], func(ref string) string {
			if v, ok := entities[ref[1:len(ref)-1]]; ok {
				return v
			}
			return ref
		})
	}
}

// scope carries the inherited xml:base and xml:lang.
type scope struct {
	base string
	lang string
}

func (s scope) enter(el *xmlElement) scope {
	for _, a := range el.attrs {
		if a.Name.Space != xmlNamespace && a.Name.Space != "xml" {
			continue
		}
		switch a.Name.Local {
		case "base":
			s.base = resolveIRI(s.base, a.Value)
		case "lang":
			s.lang = a.Value
		}
	}
	return s
}

func (s scope) literal(v string) Term {
	if s.lang != "" {
		return LangLiteral(v, s.lang)
	}
	return Literal(v)
}

// resolveIRI resolves ref against base. The fragment of base never carries over.
func resolveIRI(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	b.Fragment, b.RawFragment = "", ""
	return b.ResolveReference(r).String()
}

// rdfxmlDecoder turns an element tree into triples following the RDF/XML
// grammar: node and property elements, property attributes, rdf:li,
// rdf:ID reification and the Resource, Collection and Literal parse types.
type rdfxmlDecoder struct {
	g      *Graph
	blanks int
	taken  map[string]bool // explicit rdf:nodeID labels
}

// decodeRDFXML parses data into g. g.Base is the fallback base and is
// replaced by the root element's xml:base when present.
func decodeRDFXML(data []byte, g *Graph) error {
	root, err := readXMLTree(data)
	if err != nil {
		return err
	}

	for _, a := range root.attrs {
		switch {
		case a.Name.Space == "xmlns":
			g.Prefixes[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			g.Prefixes[""] = a.Value
		}
	}

	d := &rdfxmlDecoder{g: g, taken: make(map[string]bool)}
	collectNodeIDs(root, d.taken)
	outer := scope{base: g.Base}
	top := outer.enter(root)
	g.Base = top.base

	if root.name.Space == owl.RDF && root.name.Local == "RDF" {
		for _, child := range root.children {
			if _, err := d.nodeElement(child, top); err != nil {
				return err
			}
		}
		return nil
	}
	_, err = d.nodeElement(root, outer)
	return err
}

func (d *rdfxmlDecoder) newBlank() Term {
	for {
		d.blanks++
		id := "genid" + strconv.Itoa(d.blanks)
		if !d.taken[id] {
			return Blank(id)
		}
	}
}

func collectNodeIDs(el *xmlElement, ids map[string]bool) {
	if id, ok := rdfAttr(el, "nodeID"); ok {
		ids[id] = true
	}
	for _, child := range el.children {
		collectNodeIDs(child, ids)
	}
}

func (d *rdfxmlDecoder) add(s Term, p string, o Term) {
	d.g.Add(Triple{Subject: s, Predicate: IRI(p), Object: o})
}

func syntaxError(el *xmlElement, format string, args ...any) error {
	return &ParseError{Format: FormatRDFXML, Line: el.line, Err: fmt.Errorf(format, args...)}
}

// nodeElement emits the triples of a node element and returns its subject.
func (d *rdfxmlDecoder) nodeElement(el *xmlElement, parent scope) (Term, error) {
	sc := parent.enter(el)
	name, err := elementIRI(el)
	if err != nil {
		return Term{}, err
	}
	if name == owl.RDF+"li" || name == owl.RDF+"RDF" {
		return Term{}, syntaxError(el, "%s cannot be a node element", qname(el))
	}

	subject, err := d.subject(el, sc)
	if err != nil {
		return Term{}, err
	}
	if name != owl.RDFDescription {
		d.add(subject, owl.RDFType, IRI(name))
	}
	d.propertyAttributes(subject, el, sc)

	if strings.TrimSpace(el.text.String()) != "" {
		return Term{}, syntaxError(el, "node element %s contains text", qname(el))
	}
	if err := d.propertyElements(subject, el, sc); err != nil {
		return Term{}, err
	}
	return subject, nil
}

func (d *rdfxmlDecoder) subject(el *xmlElement, sc scope) (Term, error) {
	about, hasAbout := rdfAttr(el, "about")
	id, hasID := rdfAttr(el, "ID")
	nodeID, hasNodeID := rdfAttr(el, "nodeID")

	set := 0
	for _, ok := range []bool{hasAbout, hasID, hasNodeID} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return Term{}, syntaxError(el, "%s has more than one of rdf:about, rdf:ID and rdf:nodeID", qname(el))
	}

	switch {
	case hasAbout:
		return IRI(resolveIRI(sc.base, about)), nil
	case hasID:
		return IRI(resolveIRI(sc.base, "#"+id)), nil
	case hasNodeID:
		return Blank(nodeID), nil
	default:
		return d.newBlank(), nil
	}
}

// propertyAttributes emits one triple per property attribute of el.
// rdf:type values are IRIs, everything else is a literal.
func (d *rdfxmlDecoder) propertyAttributes(subject Term, el *xmlElement, sc scope) {
	for _, a := range el.attrs {
		if !isPropertyAttr(a) {
			continue
		}
		pred := a.Name.Space + a.Name.Local
		if pred == owl.RDFType {
			d.add(subject, pred, IRI(resolveIRI(sc.base, a.Value)))
			continue
		}
		d.add(subject, pred, sc.literal(a.Value))
	}
}

func (d *rdfxmlDecoder) propertyElements(subject Term, el *xmlElement, sc scope) error {
	li := 0
	for _, child := range el.children {
		if err := d.propertyElement(child, subject, sc, &li); err != nil {
			return err
		}
	}
	return nil
}

func (d *rdfxmlDecoder) propertyElement(el *xmlElement, subject Term, parent scope, li *int) error {
	sc := parent.enter(el)
	pred, err := elementIRI(el)
	if err != nil {
		return err
	}
	switch pred {
	case owl.RDF + "li":
		*li++
		pred = owl.RDF + "_" + strconv.Itoa(*li)
	case owl.RDFDescription, owl.RDF + "RDF":
		return syntaxError(el, "%s cannot be a property element", qname(el))
	}

	object, err := d.propertyObject(el, sc)
	if err != nil {
		return err
	}
	d.add(subject, pred, object)

	if id, ok := rdfAttr(el, "ID"); ok {
		stmt := IRI(resolveIRI(sc.base, "#"+id))
		d.add(stmt, owl.RDFType, IRI(owl.RDF+"Statement"))
		d.add(stmt, owl.RDF+"subject", subject)
		d.add(stmt, owl.RDF+"predicate", IRI(pred))
		d.add(stmt, owl.RDF+"object", object)
	}
	return nil
}

// propertyObject returns the object of a property element, emitting the
// triples of any nested node elements on the way.
func (d *rdfxmlDecoder) propertyObject(el *xmlElement, sc scope) (Term, error) {
	if pt, ok := rdfAttr(el, "parseType"); ok {
		switch pt {
		case "Resource":
			b := d.newBlank()
			if err := d.propertyElements(b, el, sc); err != nil {
				return Term{}, err
			}
			return b, nil
		case "Collection":
			return d.collection(el, sc)
		default:
			return TypedLiteral(el.inner, owl.RDFXMLLiteral), nil
		}
	}

	switch len(el.children) {
	case 0:
	case 1:
		if strings.TrimSpace(el.text.String()) != "" {
			return Term{}, syntaxError(el, "property element %s mixes text and elements", qname(el))
		}
		return d.nodeElement(el.children[0], sc)
	default:
		return Term{}, syntaxError(el, "property element %s has %d node elements", qname(el), len(el.children))
	}

	resource, hasResource := rdfAttr(el, "resource")
	nodeID, hasNodeID := rdfAttr(el, "nodeID")
	hasProps := false
	for _, a := range el.attrs {
		if isPropertyAttr(a) {
			hasProps = true
			break
		}
	}

	if !hasResource && !hasNodeID && !hasProps {
		text := el.text.String()
		if dt, ok := rdfAttr(el, "datatype"); ok {
			return TypedLiteral(text, resolveIRI(sc.base, dt)), nil
		}
		return sc.literal(text), nil
	}

	var object Term
	switch {
	case hasResource && hasNodeID:
		return Term{}, syntaxError(el, "%s has both rdf:resource and rdf:nodeID", qname(el))
	case hasResource:
		object = IRI(resolveIRI(sc.base, resource))
	case hasNodeID:
		object = Blank(nodeID)
	default:
		object = d.newBlank()
	}
	d.propertyAttributes(object, el, sc)
	return object, nil
}

// collection builds an rdf:List from the node elements of el.
func (d *rdfxmlDecoder) collection(el *xmlElement, sc scope) (Term, error) {
	head := IRI(owl.RDFNil)
	var prev Term
	for _, child := range el.children {
		item, err := d.nodeElement(child, sc)
		if err != nil {
			return Term{}, err
		}
		cell := d.newBlank()
		if prev.IsZero() {
			head = cell
		} else {
			d.add(prev, owl.RDFRest, cell)
		}
		d.add(cell, owl.RDFFirst, item)
		prev = cell
	}
	if !prev.IsZero() {
		d.add(prev, owl.RDFRest, IRI(owl.RDFNil))
	}
	return head, nil
}

func elementIRI(el *xmlElement) (string, error) {
	switch {
	case el.name.Space == "":
		return "", syntaxError(el, "element <%s> is not in a namespace", el.name.Local)
	case !strings.Contains(el.name.Space, ":"):
		return "", syntaxError(el, "undeclared namespace prefix %q", el.name.Space)
	}
	return el.name.Space + el.name.Local, nil
}

func qname(el *xmlElement) string {
	return "<" + el.name.Space + el.name.Local + ">"
}

func rdfAttr(el *xmlElement, local string) (string, bool) {
	for _, a := range el.attrs {
		if a.Name.Space == owl.RDF && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// rdfSyntaxAttrs are the rdf: attributes that steer parsing instead of
// producing triples.
var rdfSyntaxAttrs = map[string]bool{
	"about": true, "ID": true, "nodeID": true, "resource": true,
	"datatype": true, "parseType": true, "bagID": true,
	"aboutEach": true, "aboutEachPrefix": true,
}

// isPropertyAttr reports whether a is a property attribute. Namespace
// declarations, xml: attributes, unqualified attributes and rdf syntax
// attributes are not.
func isPropertyAttr(a xml.Attr) bool {
	switch a.Name.Space {
	case "", "xmlns", "xml", xmlNamespace:
		return false
	case owl.RDF:
		return !rdfSyntaxAttrs[a.Name.Local]
	}
	return strings.Contains(a.Name.Space, ":")
}
