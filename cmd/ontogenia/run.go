package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/ontogenia/workflow"
)

// withApp builds the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(*app) error) (err error) {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func runCmd(opts *globalOptions) *cobra.Command {
	var (
		procedure string
		validate  bool
	)

	cmd := &cobra.Command{
		Use:   "run <report>",
		Short: "Run extraction, question generation and ontology synthesis",
		Long: `Run the whole pipeline on one report (file or http(s) URL).

The report is parsed and cleaned, competency questions are drafted from its
text and an OWL ontology is designed from the procedure and the questions.
A run summary is written next to the artifacts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				p, err := a.pipeline()
				if err != nil {
					return err
				}

				summary, runErr := p.Run(cmd.Context(), workflow.Input{Source: args[0], Procedure: procedure})
				if summary != nil {
					a.printRunSummary(summary)
				}
				if runErr != nil {
					return runErr
				}
				if !validate {
					return nil
				}

				v, err := a.validator()
				if err != nil {
					return err
				}
				a.out.Println()
				report, err := v.Validate(cmd.Context(), summary.Artifacts.Ontology)
				if report != nil {
					a.printReport(report)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&procedure, "procedure", "", "Ontology design procedure file (default from config)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the generated ontology after synthesis")
	return cmd
}

func (a *app) printRunSummary(s *workflow.RunSummary) {
	a.out.Heading("Run " + s.RunID)
	a.out.Field("source", s.Source)
	if len(s.Models) > 0 {
		a.out.Field("models", strings.Join(s.Models, ", "))
	}
	for _, st := range s.Stages {
		if st.Error != "" {
			a.out.Failure("%s (%s): %s", st.Name, st.Duration.Round(time.Millisecond), st.Error)
			continue
		}
		a.out.Success("%s (%s)", st.Name, st.Duration.Round(time.Millisecond))
	}

	c := s.Counts
	a.out.Field("segments", fmt.Sprintf("%d kept of %d, %d noise matches", c.KeptSegments, c.Segments, c.NoiseMatches))
	a.out.Field("questions", fmt.Sprintf("%d in %d themes", c.Questions, c.Themes))
	if c.DroppedLines > 0 {
		a.out.Warning("%d question lines preceded the first title and were dropped", c.DroppedLines)
	}
	a.out.Field("ontology", fmt.Sprintf("%d classes, %d object properties, %d data properties, %d individuals",
		c.Classes, c.ObjectProperties, c.DataProperties, c.Individuals))
	a.out.Field("tokens", fmt.Sprintf("%d (prompt %d, completion %d)", s.Usage.TotalTokens, s.Usage.PromptTokens, s.Usage.CompletionTokens))

	for _, art := range []struct{ label, path string }{
		{"raw text", s.Artifacts.RawText},
		{"questions", s.Artifacts.Questions},
		{"question set", s.Artifacts.QuestionSet},
		{"trial", s.Artifacts.TrialOntology},
		{"ontology", s.Artifacts.Ontology},
	} {
		if art.path != "" {
			a.out.Field(art.label, art.path)
		}
	}

	switch s.Status {
	case workflow.StatusComplete:
		a.out.Success("run %s", s.Status)
	case workflow.StatusFailed:
		a.out.Failure("run %s: %s", s.Status, s.Error)
	default:
		a.out.Warning("run %s", s.Status)
	}
}
