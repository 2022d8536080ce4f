package ontologyvalidator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// ExpandPatterns resolves doublestar patterns to ontology files. Each
// pattern's matches are sorted; duplicates are dropped. A pattern matching
// no file is an error.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		found := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			found++
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
		if found == 0 {
			return nil, fmt.Errorf("no ontology files match %q", pattern)
		}
	}
	return out, nil
}

// Watch validates every file matched by patterns and then again whenever a
// matched file changes, until ctx is cancelled. A change to a shapes file
// re-validates every match. fn receives each report or error; a
// ValidationFailure arrives together with its report.
func (c *Component) Watch(ctx context.Context, patterns []string, fn func(*Report, error)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range c.watchDirs(patterns) {
		if err := fsw.Add(dir); err != nil {
			c.logger.Warn("Failed to watch directory", "path", dir, "error", err)
			continue
		}
		watched++
		c.logger.Debug("Watching directory", "path", dir)
	}
	if watched == 0 {
		return fmt.Errorf("no directory to watch for %v", patterns)
	}

	shapes := make(map[string]bool, len(c.config.Shapes))
	for _, s := range c.config.Shapes {
		shapes[filepath.Clean(s)] = true
	}

	c.revalidate(ctx, patterns, nil, fn)
	c.logger.Info("Watching ontologies", "patterns", patterns, "debounce", c.config.GetDebounce())

	pending := make(map[string]fsnotify.Op)
	ticker := time.NewTicker(c.config.GetDebounce())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if shapes[name] || matchesAny(patterns, name) {
				pending[name] = event.Op
				c.logger.Debug("Ontology change detected", "path", name, "op", event.Op.String())
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			changed := pending
			pending = make(map[string]fsnotify.Op)

			all := false
			var paths []string
			for p, op := range changed {
				if shapes[p] {
					all = true
					continue
				}
				if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
					continue
				}
				if _, err := os.Stat(p); err != nil {
					continue
				}
				paths = append(paths, p)
			}
			if all {
				paths = nil
			} else if len(paths) == 0 {
				continue
			}
			sort.Strings(paths)
			c.revalidate(ctx, patterns, paths, fn)
		}
	}
}

// revalidate validates paths, or every match of patterns when paths is nil.
func (c *Component) revalidate(ctx context.Context, patterns, paths []string, fn func(*Report, error)) {
	all, err := ExpandPatterns(patterns)
	if err != nil {
		fn(nil, err)
		return
	}
	if paths == nil {
		paths = all
	}
	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		fn(c.validateOne(ctx, p, len(all) > 1))
	}
}

// watchDirs returns the static directory prefix of every pattern and the
// directories holding the shapes files.
func (c *Component) watchDirs(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if d == "" {
			d = "."
		}
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, pattern := range patterns {
		base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
		if rest == "" || !hasMeta(rest) {
			add(filepath.Dir(filepath.FromSlash(pattern)))
			continue
		}
		add(filepath.FromSlash(base))
	}
	for _, s := range c.config.Shapes {
		add(filepath.Dir(s))
	}
	return dirs
}

func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.PathMatch(filepath.Clean(pattern), path); ok {
			return true
		}
	}
	return false
}

func hasMeta(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}
