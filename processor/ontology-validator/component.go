// Package ontologyvalidator inspects a generated ontology: it prints the
// declared classes and properties, renders the class graph and checks the
// ontology against SHACL shapes with RDFS inference.
package ontologyvalidator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/c360studio/ontogenia/export"
	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/ontology"
	"github.com/c360studio/ontogenia/shacl"
	"github.com/c360studio/ontogenia/storage"
	"github.com/c360studio/ontogenia/vocabulary/owl"
)

// Stage is the stage name used in logs.
const Stage = "ontology-validator"

// graphName is the digraph name of the rendered class graph.
const graphName = "ontology"

// Report is the outcome of validating one ontology file.
type Report struct {
	Path  string
	Stats ontology.Stats
	Edges []ontology.Edge

	// GraphPath and MermaidPath are the written diagrams, empty when disabled.
	GraphPath   string
	MermaidPath string

	Shapes *shacl.Report

	// ShapesText is the human-readable shapes report.
	ShapesText string
}

// Conforms reports whether the shapes validation passed.
func (r *Report) Conforms() bool {
	return r.Shapes == nil || r.Shapes.Conforms
}

// Component implements the validation utility.
type Component struct {
	config    Config
	inference shacl.Inference
	artifacts *storage.Artifacts
	logger    *slog.Logger
}

// NewComponent creates a validator. artifacts may be nil to skip writing
// diagrams.
func NewComponent(config Config, artifacts *storage.Artifacts, logger *slog.Logger) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	inference, _ := shacl.ParseInference(config.Inference)
	if logger == nil {
		logger = slog.Default()
	}
	return &Component{
		config:    config,
		inference: inference,
		artifacts: artifacts,
		logger:    logger.With("component", Stage),
	}, nil
}

// Validate loads the ontology at path once and produces its statistics,
// class graph and shapes report. A non-conforming report is returned
// together with a *ValidationFailure when FailOnViolation is set.
func (c *Component) Validate(ctx context.Context, path string) (*Report, error) {
	return c.validate(ctx, path, c.config.GraphFile, c.config.MermaidFile)
}

func (c *Component) validate(ctx context.Context, path, graphFile, mermaidFile string) (*Report, error) {
	o, err := ontology.Load(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Path:  path,
		Stats: o.Stats(),
		Edges: o.ClassEdges(),
	}

	if c.artifacts != nil && graphFile != "" {
		dot, err := export.DOT(graphName, report.Stats.Classes, report.Edges)
		if err != nil {
			return nil, fmt.Errorf("render class graph: %w", err)
		}
		if report.GraphPath, err = c.artifacts.WriteString(ctx, graphFile, dot); err != nil {
			return nil, err
		}
	}
	if c.artifacts != nil && mermaidFile != "" {
		mermaid := export.Mermaid(report.Stats.Classes, report.Edges)
		if report.MermaidPath, err = c.artifacts.WriteString(ctx, mermaidFile, mermaid); err != nil {
			return nil, err
		}
	}

	shapes, err := c.loadShapes()
	if err != nil {
		return nil, err
	}
	report.Shapes, err = shacl.Validate(ctx, o.Graph(), shacl.Options{Inference: c.inference, Shapes: shapes})
	if err != nil {
		return nil, fmt.Errorf("shapes validation: %w", err)
	}
	report.ShapesText = report.Shapes.Text(prefixes(o.Graph()))

	c.logger.Info("Validated ontology",
		"path", path,
		"classes", len(report.Stats.Classes),
		"object_properties", len(report.Stats.ObjectProperties),
		"conforms", report.Shapes.Conforms,
		"results", len(report.Shapes.Results))

	if c.config.FailOnViolation && !report.Shapes.Conforms {
		return report, &ValidationFailure{
			Path:       path,
			Results:    len(report.Shapes.Results),
			Violations: report.Shapes.Violations(),
		}
	}
	return report, nil
}

// ValidateAll validates every file matched by patterns in order. Diagram
// files are prefixed with each ontology's base name when more than one file
// matches. The first load error stops the run; ValidationFailures are
// collected and the last one returned after all files were checked.
func (c *Component) ValidateAll(ctx context.Context, patterns []string) ([]*Report, error) {
	paths, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}

	var reports []*Report
	var failure error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := c.validateOne(ctx, p, len(paths) > 1)
		if r != nil {
			reports = append(reports, r)
		}
		if err != nil {
			if !IsValidationFailure(err) {
				return reports, err
			}
			failure = err
		}
	}
	return reports, failure
}

func (c *Component) validateOne(ctx context.Context, path string, multi bool) (*Report, error) {
	graphFile, mermaidFile := c.config.GraphFile, c.config.MermaidFile
	if multi {
		graphFile, mermaidFile = perFile(path, graphFile), perFile(path, mermaidFile)
	}
	return c.validate(ctx, path, graphFile, mermaidFile)
}

func (c *Component) loadShapes() ([]*graph.Graph, error) {
	shapes := make([]*graph.Graph, 0, len(c.config.Shapes))
	for _, path := range c.config.Shapes {
		g, err := graph.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("load shapes %s: %w", path, err)
		}
		shapes = append(shapes, g)
	}
	return shapes, nil
}

// prefixes merges the document's namespace declarations over the defaults.
func prefixes(g *graph.Graph) map[string]string {
	out := owl.DefaultPrefixes()
	for p, ns := range g.Prefixes {
		if p != "" {
			out[p] = ns
		}
	}
	return out
}

func perFile(path, name string) string {
	if name == "" {
		return ""
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir, file := filepath.Split(name)
	return filepath.Join(dir, stem+"_"+file)
}

// Summary renders the statistics block printed before the shapes report.
func (r *Report) Summary() string {
	var sb strings.Builder
	names := make([]string, len(r.Stats.Classes))
	for i, cls := range r.Stats.Classes {
		names[i] = cls.Name
	}
	fmt.Fprintf(&sb, "[%s]\n", strings.Join(names, ", "))

	for _, p := range r.Stats.ObjectProperties {
		fmt.Fprintf(&sb, "Object Property: %s, Domain: %s, Range: %s\n", p.Name, entityNames(p.Domain), entityNames(p.Range))
	}

	fmt.Fprintf(&sb, "Ontology IRI: %s\n", r.Stats.BaseIRI)
	fmt.Fprintf(&sb, "Classes: %d\n", len(r.Stats.Classes))
	fmt.Fprintf(&sb, "Object properties: %d\n", len(r.Stats.ObjectProperties))
	fmt.Fprintf(&sb, "Data properties: %d\n", len(r.Stats.DataProperties))
	fmt.Fprintf(&sb, "Individuals: %d\n", len(r.Stats.Individuals))
	return sb.String()
}

func entityNames(es []ontology.Entity) string {
	names := make([]string, len(es))
	for i, e := range es {
		names[i] = e.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}
