package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/ontogenia/config"
)

func modelsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model endpoints and the fallback chain of each capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.out.Heading("Endpoints")
				for _, name := range a.registry.ListEndpoints() {
					ep := a.registry.GetEndpoint(name)
					line := fmt.Sprintf("%s/%s", ep.Provider, ep.Model)
					if ep.URL != "" {
						line += " at " + ep.URL
					}
					a.out.Field(name, line)
				}

				a.out.Heading("Capabilities")
				for _, c := range a.registry.ListCapabilities() {
					a.out.Field(c.String(), strings.Join(a.registry.GetFallbackChain(c), " -> "))
				}
				return nil
			})
		},
	}
}

func callsCmd(opts *globalOptions) *cobra.Command {
	var showPrompts bool

	cmd := &cobra.Command{
		Use:   "calls <run-id>",
		Short: "Show the recorded LLM calls of a run",
		Long: `Show the LLM calls recorded for a run. Requires output.call_history to
name a SQLite database; the run ID is printed by "run" and stored in the
run summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				store, err := a.callStore()
				if err != nil {
					return err
				}
				if store == nil {
					return errors.New("call history is disabled; set output.call_history in the config")
				}

				records, err := store.ListByRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(records) == 0 {
					a.out.Warning("no calls recorded for run %s", args[0])
					return nil
				}

				for _, r := range records {
					a.out.Heading(fmt.Sprintf("%s %s", r.StartedAt.Format(time.RFC3339), r.Stage))
					a.out.Field("request", r.RequestID)
					a.out.Field("model", fmt.Sprintf("%s/%s", r.Provider, r.Model))
					a.out.Field("duration", time.Duration(r.DurationMs)*time.Millisecond)
					a.out.Field("tokens", fmt.Sprintf("%d (prompt %d, completion %d)", r.Usage.TotalTokens, r.Usage.PromptTokens, r.Usage.CompletionTokens))
					if r.Retries > 0 {
						a.out.Field("retries", r.Retries)
					}
					if len(r.FallbacksUsed) > 0 {
						a.out.Field("fallbacks", strings.Join(r.FallbacksUsed, ", "))
					}
					if r.Error != "" {
						a.out.Failure("%s", r.Error)
					} else {
						a.out.Success("%s", r.FinishReason)
					}
					if showPrompts {
						for _, m := range r.Messages {
							a.out.Printf("--- %s ---\n%s\n", m.Role, m.Content)
						}
						a.out.Printf("--- response ---\n%s\n", r.Response)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showPrompts, "prompts", false, "Print prompts and responses")
	return cmd
}

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				a.out.Printf("%s", data)
				return nil
			})
		},
	})

	var project bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd.OutOrStdout(), opts.noColor)
			if project {
				if _, err := os.Stat(config.ProjectConfigFile); err == nil {
					out.Warning("%s already exists", config.ProjectConfigFile)
					return nil
				}
				if err := config.DefaultConfig().SaveToFile(config.ProjectConfigFile); err != nil {
					return err
				}
				out.Success("wrote %s", config.ProjectConfigFile)
				return nil
			}

			path, err := config.NewLoader(newLogger(opts.logLevel)).EnsureUserConfig()
			if err != nil {
				return err
			}
			out.Success("user config at %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&project, "project", false, "Write "+config.ProjectConfigFile+" in the working directory instead")
	cmd.AddCommand(initCmd)

	return cmd
}
