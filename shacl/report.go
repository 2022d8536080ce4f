package shacl

import (
	"fmt"
	"strings"

	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// Text renders the report in the layout pyshacl prints.
func (r *Report) Text(prefixes map[string]string) string {
	var sb strings.Builder
	sb.WriteString("Validation Report\n")
	sb.WriteString(fmt.Sprintf("Conforms: %s\n", pyBool(r.Conforms)))
	if r.Conforms {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Results (%d):\n", len(r.Results)))
	for _, res := range r.Results {
		kind := "Constraint Violation"
		switch res.Severity {
		case owl.SHWarning:
			kind = "Validation Warning"
		case owl.SHInfo:
			kind = "Validation Info"
		}
		sb.WriteString(fmt.Sprintf("%s in %s (%s):\n", kind, owl.LocalName(res.Component), res.Component))
		sb.WriteString(fmt.Sprintf("\tSeverity: %s\n", compactIRI(res.Severity, prefixes)))
		sb.WriteString(fmt.Sprintf("\tSource Shape: %s\n", compactTerm(res.SourceShape, prefixes)))
		sb.WriteString(fmt.Sprintf("\tFocus Node: %s\n", compactTerm(res.FocusNode, prefixes)))
		if !res.Value.IsZero() {
			sb.WriteString(fmt.Sprintf("\tValue Node: %s\n", compactTerm(res.Value, prefixes)))
		}
		if !res.ResultPath.IsZero() {
			sb.WriteString(fmt.Sprintf("\tResult Path: %s\n", compactTerm(res.ResultPath, prefixes)))
		}
		sb.WriteString(fmt.Sprintf("\tMessage: %s\n", res.Message))
	}
	return sb.String()
}

// Violations counts results with sh:Violation severity.
func (r *Report) Violations() int {
	n := 0
	for _, res := range r.Results {
		if res.Severity == owl.SHViolation {
			n++
		}
	}
	return n
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func compactIRI(iri string, prefixes map[string]string) string {
	all := owl.DefaultPrefixes()
	for k, v := range prefixes {
		all[k] = v
	}
	return owl.Compact(iri, all)
}

func compactTerm(t graph.Term, prefixes map[string]string) string {
	switch t.Kind {
	case graph.KindIRI:
		return compactIRI(t.Value, prefixes)
	case graph.KindBlank:
		return "_:" + t.Value
	default:
		if t.Lang != "" {
			return fmt.Sprintf("Literal(%q, lang=%s)", t.Value, t.Lang)
		}
		if t.Datatype != "" && t.Datatype != owl.XSDString {
			return fmt.Sprintf("Literal(%q, datatype=%s)", t.Value, compactIRI(t.Datatype, prefixes))
		}
		return fmt.Sprintf("Literal(%q)", t.Value)
	}
}
