// Package storage persists pipeline artifacts: the raw document text, the
// competency questions, generated ontologies and run summaries. Every write
// is atomic and serialized through a sibling lock file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Default artifact file names, relative to the artifact directory.
const (
	RawTextFile    = "raw_text.txt"
	CQTextFile     = "cq_text_flash.txt"
	CQSetFile      = "cq_set.yaml"
	NormalizedFile = "owl_files/output.owl"
	GraphFile      = "owl_files/apt41_ontology.gv"
	SummaryFile    = "run_summary.yaml"
	MetricsFile    = "metrics.prom"
)

// dateLayout is the date stamp used in trial ontology names.
const dateLayout = "20060102"

// TrialName returns the file name of a generated ontology,
// output_{run}_{YYYYMMDD}_trial{trial}.owl.
func TrialName(run, trial int, at time.Time) string {
	return fmt.Sprintf("output_%d_%s_trial%d.owl", run, at.Format(dateLayout), trial)
}

// Artifacts writes and reads files under a single directory. Relative names
// resolve against Dir; absolute names are used as given.
type Artifacts struct {
	Dir    string
	logger *slog.Logger
}

// NewArtifacts returns an artifact store rooted at dir.
func NewArtifacts(dir string, logger *slog.Logger) *Artifacts {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "."
	}
	return &Artifacts{Dir: dir, logger: logger.With("component", "storage")}
}

// Path resolves name against the artifact directory.
func (a *Artifacts) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.Dir, name)
}

// Write atomically replaces the named artifact and returns its path.
func (a *Artifacts) Write(ctx context.Context, name string, data []byte) (string, error) {
	path := a.Path(name)
	if err := LockAndWrite(ctx, path, data); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	a.logger.Debug("Wrote artifact", "path", path, "bytes", len(data))
	return path, nil
}

// WriteString is Write for text artifacts.
func (a *Artifacts) WriteString(ctx context.Context, name, text string) (string, error) {
	return a.Write(ctx, name, []byte(text))
}

// Read returns the content of the named artifact, or ErrNotFound.
func (a *Artifacts) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(a.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}
	return data, nil
}

// NextTrial returns the smallest trial number >= 1 whose ontology file for
// run and date does not exist yet.
func (a *Artifacts) NextTrial(run int, at time.Time) int {
	for trial := 1; ; trial++ {
		if _, err := os.Stat(a.Path(TrialName(run, trial, at))); errors.Is(err, fs.ErrNotExist) {
			return trial
		}
	}
}
