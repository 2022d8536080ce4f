// Package main provides the ontogenia binary entry point.
// Ontogenia turns a threat intelligence report into competency questions
// and an OWL ontology through a generative model, then validates the result.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/c360studio/ontogenia/llm/providers"

	ontologyvalidator "github.com/c360studio/ontogenia/processor/ontology-validator"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ontogenia"
)

// exitValidationFailure is the exit status when --fail-on-violation trips.
const exitValidationFailure = 3

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if ontologyvalidator.IsValidationFailure(err) {
			os.Exit(exitValidationFailure)
		}
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	model      string
	outputDir  string
	noColor    bool
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Threat report to OWL ontology generator",
		Long: `Ontogenia builds an OWL ontology from a threat intelligence report.

It runs three stages:
- extract: parse the report and strip unwanted pages and running headers
- questions: draft competency questions with a generative model
- synthesize: design an OWL ontology (RDF/XML) answering those questions

The validate command inspects a generated ontology: it lists classes and
properties, draws the class graph and runs SHACL shapes with RDFS inference.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.model, "model", "", "Pin every capability to one model endpoint")
	cmd.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for generated artifacts")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		runCmd(opts),
		extractCmd(opts),
		questionsCmd(opts),
		synthesizeCmd(opts),
		validateCmd(opts),
		modelsCmd(opts),
		callsCmd(opts),
		configCmd(opts),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// newLogger writes text logs to stderr, normalizing the "error" key to "err".
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
