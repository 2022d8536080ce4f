package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/ontogenia/storage"
)

func extractCmd(opts *globalOptions) *cobra.Command {
	var (
		rawText   string
		printText bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file-or-url>...",
		Short: "Parse reports and write their cleaned text",
		Long: `Parse one or more reports and write the cleaned text.

Arguments are files, doublestar glob patterns ("reports/**/*.pdf") or
http(s) URLs. With several inputs each text file is prefixed with its
report's base name and uploads run concurrently, bounded by
extract.num_workers.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				name := rawText
				if name == "" {
					name = a.cfg.Extract.RawTextFile
				}
				if name == "" {
					name = storage.RawTextFile
				}

				ext, err := a.extractor(name)
				if err != nil {
					return err
				}
				results, err := ext.ExtractAll(cmd.Context(), args)
				if err != nil {
					return err
				}

				for _, r := range results {
					a.out.Success("%s: kept %d of %d segments, %d noise matches, %d chars",
						r.Source, r.Kept, r.Segments, r.NoiseMatches, len(r.Text))
					if r.TextPath != "" {
						a.out.Field("text", r.TextPath)
					}
				}
				if printText {
					for _, r := range results {
						a.out.Println(r.Text)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rawText, "raw-text", "", "Output file for the cleaned text (default from config, else raw_text.txt)")
	cmd.Flags().BoolVar(&printText, "print", false, "Also print the cleaned text")
	return cmd
}

func questionsCmd(opts *globalOptions) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "questions <text-file>",
		Short: "Draft competency questions from extracted report text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read report text: %w", err)
			}

			return withApp(cmd, opts, func(a *app) error {
				qg, err := a.questionGenerator()
				if err != nil {
					return err
				}
				res, err := qg.Generate(cmd.Context(), string(text))
				if err != nil {
					return err
				}

				a.out.Success("%d competency questions in %d themes", res.Set.QuestionCount(), len(res.Set.Themes))
				if res.Dropped > 0 {
					a.out.Warning("%d question lines preceded the first title and were dropped", res.Dropped)
				}
				a.out.Field("model", res.Model)
				a.out.Field("tokens", res.Usage.TotalTokens)
				if res.TextPath != "" {
					a.out.Field("questions", res.TextPath)
				}
				if res.SetPath != "" {
					a.out.Field("question set", res.SetPath)
				}

				if render {
					a.out.Println()
					a.out.Markdown(res.Set.Markdown())
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "Render the questions as markdown")
	return cmd
}

func synthesizeCmd(opts *globalOptions) *cobra.Command {
	var questions, procedure string

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Design an OWL ontology from the procedure and competency questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				path := questions
				if path == "" {
					path = a.artifacts.Path(a.cfg.Questions.TextFile)
				}
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read competency questions: %w", err)
				}

				syn, err := a.synthesizer()
				if err != nil {
					return err
				}
				res, err := syn.Synthesize(cmd.Context(), procedure, string(text))
				if err != nil {
					return err
				}

				a.out.Success("ontology with %d classes, %d object properties, %d data properties, %d individuals",
					len(res.Stats.Classes), len(res.Stats.ObjectProperties), len(res.Stats.DataProperties), len(res.Stats.Individuals))
				if res.Attempts > 1 {
					a.out.Warning("needed %d attempts to get a parseable ontology", res.Attempts)
				}
				a.out.Field("model", res.Model)
				a.out.Field("tokens", res.Usage.TotalTokens)
				a.out.Field("trial", res.TrialPath)
				a.out.Field("ontology", res.NormalizedPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&questions, "questions", "", "Competency question file (default questions.text_file in the output directory)")
	cmd.Flags().StringVar(&procedure, "procedure", "", "Ontology design procedure file (default from config)")
	return cmd
}
