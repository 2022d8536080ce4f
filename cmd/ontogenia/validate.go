package main

import (
	"github.com/spf13/cobra"

	ontologyvalidator "github.com/c360studio/ontogenia/processor/ontology-validator"
)

func validateCmd(opts *globalOptions) *cobra.Command {
	var (
		shapes          []string
		failOnViolation bool
		watch           bool
		graphFile       string
		mermaidFile     string
	)

	cmd := &cobra.Command{
		Use:   "validate [ontology-pattern]...",
		Short: "Inspect and validate generated ontologies",
		Long: `Load each ontology, list its classes and object properties, write the
class graph as DOT and run SHACL validation with RDFS inference.

Patterns are files or doublestar globs ("owl_files/*.owl"); without one the
normalized ontology from synthesis is validated. Shapes declared in the
ontology itself are always applied; --shapes adds shapes graphs.

A non-conforming ontology is reported but is not an error unless
--fail-on-violation is set, in which case the exit status is 3.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.cfg.Validation.Shapes = append(a.cfg.Validation.Shapes, shapes...)
				if cmd.Flags().Changed("fail-on-violation") {
					a.cfg.Validation.FailOnViolation = failOnViolation
				}
				if graphFile != "" {
					a.cfg.Validation.GraphFile = graphFile
				}
				if mermaidFile != "" {
					a.cfg.Validation.MermaidFile = mermaidFile
				}

				v, err := a.validator()
				if err != nil {
					return err
				}

				patterns := args
				if len(patterns) == 0 {
					patterns = []string{a.artifacts.Path(a.cfg.Synthesis.NormalizedFile)}
				}

				if watch {
					return v.Watch(cmd.Context(), patterns, func(r *ontologyvalidator.Report, err error) {
						if r != nil {
							a.printReport(r)
							a.out.Println()
						}
						if err != nil && !ontologyvalidator.IsValidationFailure(err) {
							a.out.Failure("%v", err)
						}
					})
				}

				reports, err := v.ValidateAll(cmd.Context(), patterns)
				for i, r := range reports {
					if i > 0 {
						a.out.Println()
					}
					a.printReport(r)
				}
				return err
			})
		},
	}

	cmd.Flags().StringSliceVar(&shapes, "shapes", nil, "Additional SHACL shapes files (Turtle, N-Triples or RDF/XML)")
	cmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "Exit with status 3 when an ontology does not conform")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-validate whenever a matched file or shapes file changes")
	cmd.Flags().StringVar(&graphFile, "graph", "", "DOT output file for the class graph (default from config)")
	cmd.Flags().StringVar(&mermaidFile, "mermaid", "", "Also write the class graph as a Mermaid flowchart")
	return cmd
}

// printReport prints the statistics block followed by the shapes report.
func (a *app) printReport(r *ontologyvalidator.Report) {
	a.out.Heading(r.Path)
	a.out.Printf("%s", r.Summary())
	if r.GraphPath != "" {
		a.out.Field("graph", r.GraphPath)
	}
	if r.MermaidPath != "" {
		a.out.Field("mermaid", r.MermaidPath)
	}
	a.out.Printf("%s", r.ShapesText)

	if r.Conforms() {
		a.out.Success("conforms")
		return
	}
	a.out.Failure("%d validation results", len(r.Shapes.Results))
}
