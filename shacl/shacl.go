// Package shacl validates an RDF data graph against SHACL Core shapes.
//
// The validator covers the constraint components generated ontologies
// typically carry: cardinality (sh:minCount, sh:maxCount), value type
// (sh:class, sh:datatype, sh:nodeKind), value enumeration (sh:in,
// sh:hasValue) and string facets (sh:pattern, sh:minLength, sh:maxLength).
// Property paths are limited to predicate IRIs and sh:inversePath.
//
// When no separate shapes graph is supplied the data graph doubles as the
// shapes graph, so an ontology with no shapes conforms trivially.
package shacl

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

const shInversePath = owl.SH + "inversePath"

// Inference selects the entailment applied to the data graph before validation.
type Inference string

// Supported inference modes.
const (
	InferenceNone Inference = "none"
	InferenceRDFS Inference = "rdfs"
)

// ParseInference converts a flag value, defaulting to InferenceNone.
func ParseInference(s string) (Inference, error) {
	switch Inference(s) {
	case "", InferenceNone:
		return InferenceNone, nil
	case InferenceRDFS:
		return InferenceRDFS, nil
	default:
		return "", fmt.Errorf("unsupported inference mode: %q", s)
	}
}

// Options configures a validation run.
type Options struct {
	// Inference is applied to a copy of the data graph.
	Inference Inference

	// Shapes are additional shapes graphs merged with the data graph's own shapes.
	Shapes []*graph.Graph
}

// Result is a single validation result.
type Result struct {
	FocusNode   graph.Term
	ResultPath  graph.Term
	Value       graph.Term
	SourceShape graph.Term
	Component   string
	Severity    string
	Message     string
}

// Report is the outcome of a validation run.
type Report struct {
	Conforms bool
	Results  []Result
}

// Validate checks data against the shapes it contains plus opts.Shapes.
// The data graph itself is never modified.
func Validate(ctx context.Context, data *graph.Graph, opts Options) (*Report, error) {
	shapes := data.Clone()
	for _, s := range opts.Shapes {
		shapes.Merge(s)
	}

	dataGraph := data
	if opts.Inference == InferenceRDFS {
		dataGraph = data.Clone()
		ExpandRDFS(dataGraph)
	}

	v := &validator{data: dataGraph, shapes: shapes, patterns: make(map[string]*regexp.Regexp)}
	report := &Report{Conforms: true}

	for _, shape := range v.shapeNodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if v.deactivated(shape) {
			continue
		}
		for _, focus := range v.targets(shape) {
			results, err := v.validateShape(shape, focus)
			if err != nil {
				return nil, err
			}
			report.Results = append(report.Results, results...)
		}
	}

	report.Conforms = len(report.Results) == 0
	return report, nil
}

type validator struct {
	data     *graph.Graph
	shapes   *graph.Graph
	patterns map[string]*regexp.Regexp
}

// shapeNodes returns every node that is a shape with at least one target.
func (v *validator) shapeNodes() []graph.Term {
	var nodes []graph.Term
	nodes = append(nodes, v.shapes.SubjectsOfType(owl.SHNodeShape)...)
	nodes = append(nodes, v.shapes.SubjectsOfType(owl.SHPropertyShape)...)
	for _, p := range []string{owl.SHTargetClass, owl.SHTargetNode, owl.SHTargetSubjectsOf, owl.SHTargetObjectsOf} {
		for _, t := range v.shapes.WithPredicate(p) {
			nodes = append(nodes, t.Subject)
		}
	}
	nodes = graph.UniqueTerms(nodes)
	graph.SortTerms(nodes)
	return nodes
}

func (v *validator) deactivated(shape graph.Term) bool {
	d, ok := v.shapes.Object(shape, owl.SHDeactivated)
	return ok && d.Value == "true"
}

// targets resolves the focus nodes of a shape.
func (v *validator) targets(shape graph.Term) []graph.Term {
	var focus []graph.Term
	focus = append(focus, v.shapes.Objects(shape, owl.SHTargetNode)...)
	for _, class := range v.shapes.Objects(shape, owl.SHTargetClass) {
		focus = append(focus, instancesOf(v.data, class)...)
	}
	// implicit class target
	if v.shapes.HasType(shape, owl.RDFSClass) || v.shapes.HasType(shape, owl.OWLClass) {
		focus = append(focus, instancesOf(v.data, shape)...)
	}
	for _, p := range v.shapes.Objects(shape, owl.SHTargetSubjectsOf) {
		for _, t := range v.data.WithPredicate(p.Value) {
			focus = append(focus, t.Subject)
		}
	}
	for _, p := range v.shapes.Objects(shape, owl.SHTargetObjectsOf) {
		for _, t := range v.data.WithPredicate(p.Value) {
			focus = append(focus, t.Object)
		}
	}
	return graph.UniqueTerms(focus)
}

// validateShape checks one focus node against a node or property shape.
func (v *validator) validateShape(shape, focus graph.Term) ([]Result, error) {
	path, isProperty := v.shapes.Object(shape, owl.SHPath)
	if isProperty {
		return v.validateProperty(shape, focus, path)
	}

	results, err := v.valueConstraints(shape, focus, graph.Term{}, []graph.Term{focus})
	if err != nil {
		return nil, err
	}
	for _, prop := range v.shapes.Objects(shape, owl.SHProperty) {
		if v.deactivated(prop) {
			continue
		}
		path, ok := v.shapes.Object(prop, owl.SHPath)
		if !ok {
			continue
		}
		r, err := v.validateProperty(prop, focus, path)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}
	return results, nil
}

func (v *validator) validateProperty(shape, focus, path graph.Term) ([]Result, error) {
	values := v.valueNodes(focus, path)
	var results []Result

	if min, ok := v.intParam(shape, owl.SHMinCount); ok && len(values) < min {
		results = append(results, v.result(shape, focus, path, graph.Term{}, owl.SHMinCountConstraintComponent,
			fmt.Sprintf("Less than %d values on %s->%s", min, v.compact(focus), v.compact(path))))
	}
	if max, ok := v.intParam(shape, owl.SHMaxCount); ok && len(values) > max {
		results = append(results, v.result(shape, focus, path, graph.Term{}, owl.SHMaxCountConstraintComponent,
			fmt.Sprintf("More than %d values on %s->%s", max, v.compact(focus), v.compact(path))))
	}

	r, err := v.valueConstraints(shape, focus, path, values)
	if err != nil {
		return nil, err
	}
	return append(results, r...), nil
}

func (v *validator) valueNodes(focus, path graph.Term) []graph.Term {
	if path.IsBlank() {
		if inv, ok := v.shapes.Object(path, shInversePath); ok {
			return graph.UniqueTerms(v.data.Subjects(inv.Value, focus))
		}
		return nil
	}
	return graph.UniqueTerms(v.data.Objects(focus, path.Value))
}

// valueConstraints applies the per-value constraint components.
func (v *validator) valueConstraints(shape, focus, path graph.Term, values []graph.Term) ([]Result, error) {
	var results []Result
	fail := func(value graph.Term, component, msg string) {
		results = append(results, v.result(shape, focus, path, value, component, msg))
	}

	classes := v.shapes.Objects(shape, owl.SHClass)
	datatype, hasDatatype := v.shapes.Object(shape, owl.SHDatatype)
	nodeKind, hasNodeKind := v.shapes.Object(shape, owl.SHNodeKind)
	hasValue, hasHasValue := v.shapes.Object(shape, owl.SHHasValue)
	minLen, hasMinLen := v.intParam(shape, owl.SHMinLength)
	maxLen, hasMaxLen := v.intParam(shape, owl.SHMaxLength)

	var allowed map[graph.Term]bool
	if in, ok := v.shapes.Object(shape, owl.SHIn); ok {
		allowed = make(map[graph.Term]bool)
		for _, m := range v.shapes.List(in) {
			allowed[m] = true
		}
	}

	var pattern *regexp.Regexp
	if p, ok := v.shapes.Object(shape, owl.SHPattern); ok {
		re, err := v.compilePattern(shape, p.Value)
		if err != nil {
			return nil, err
		}
		pattern = re
	}

	for _, value := range values {
		for _, class := range classes {
			if value.IsLiteral() || !isInstanceOf(v.data, value, class) {
				fail(value, owl.SHClassConstraintComponent,
					fmt.Sprintf("Value does not have class %s", v.compact(class)))
			}
		}
		if hasDatatype && !matchesDatatype(value, datatype.Value) {
			fail(value, owl.SHDatatypeConstraintComponent,
				fmt.Sprintf("Value is not Literal with datatype %s", v.compact(datatype)))
		}
		if hasNodeKind && !matchesNodeKind(value, nodeKind.Value) {
			fail(value, owl.SHNodeKindConstraintComponent,
				fmt.Sprintf("Value is not of Node Kind %s", v.compact(nodeKind)))
		}
		if allowed != nil && !allowed[value] {
			fail(value, owl.SHInConstraintComponent, "Value not in list")
		}
		if pattern != nil && (value.IsBlank() || !pattern.MatchString(value.Value)) {
			fail(value, owl.SHPatternConstraintComponent,
				fmt.Sprintf("Value does not match pattern %q", pattern.String()))
		}
		if hasMinLen && (value.IsBlank() || utf8.RuneCountInString(value.Value) < minLen) {
			fail(value, owl.SHMinLengthConstraintComponent,
				fmt.Sprintf("String length not >= %d", minLen))
		}
		if hasMaxLen && (value.IsBlank() || utf8.RuneCountInString(value.Value) > maxLen) {
			fail(value, owl.SHMaxLengthConstraintComponent,
				fmt.Sprintf("String length not <= %d", maxLen))
		}
	}

	if hasHasValue && !containsTerm(values, hasValue) {
		fail(graph.Term{}, owl.SHHasValueConstraintComponent,
			fmt.Sprintf("Node %s->%s does not contain Value %s", v.compact(focus), v.compact(path), v.compact(hasValue)))
	}

	return results, nil
}

func (v *validator) compilePattern(shape graph.Term, pattern string) (*regexp.Regexp, error) {
	if flags, ok := v.shapes.Object(shape, owl.SHFlags); ok && flags.Value != "" {
		pattern = "(?" + flags.Value + ")" + pattern
	}
	if re, ok := v.patterns[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("shape %s: invalid sh:pattern: %w", shape, err)
	}
	v.patterns[pattern] = re
	return re, nil
}

func (v *validator) intParam(shape graph.Term, p string) (int, bool) {
	t, ok := v.shapes.Object(shape, p)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (v *validator) result(shape, focus, path, value graph.Term, component, defaultMsg string) Result {
	severity := owl.SHViolation
	if s, ok := v.shapes.Object(shape, owl.SHSeverity); ok {
		severity = s.Value
	}
	msg := defaultMsg
	if m, ok := v.shapes.Object(shape, owl.SHMessage); ok {
		msg = m.Value
	}
	return Result{
		FocusNode:   focus,
		ResultPath:  path,
		Value:       value,
		SourceShape: shape,
		Component:   component,
		Severity:    severity,
		Message:     msg,
	}
}

func (v *validator) compact(t graph.Term) string {
	return compactTerm(t, v.data.Prefixes)
}

func matchesDatatype(value graph.Term, datatype string) bool {
	if !value.IsLiteral() {
		return false
	}
	if value.Datatype == datatype {
		return true
	}
	return datatype == owl.XSDString && value.Datatype == "" && value.Lang == ""
}

func matchesNodeKind(value graph.Term, kind string) bool {
	switch kind {
	case owl.SHIRI:
		return value.IsIRI()
	case owl.SHBlankNode:
		return value.IsBlank()
	case owl.SHLiteral:
		return value.IsLiteral()
	case owl.SHBlankNodeOrIRI:
		return !value.IsLiteral()
	case owl.SHBlankNodeOrLiteral:
		return !value.IsIRI()
	case owl.SHIRIOrLiteral:
		return !value.IsBlank()
	default:
		return true
	}
}

func containsTerm(terms []graph.Term, t graph.Term) bool {
	for _, x := range terms {
		if x == t {
			return true
		}
	}
	return false
}
