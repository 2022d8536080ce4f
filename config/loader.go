package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "ontogenia.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/ontogenia"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Environment overrides.
const (
	EnvModel    = "ONTOGENIA_MODEL"
	EnvLogLevel = "ONTOGENIA_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	getenv  func(string) string
	workDir string
	homeDir string
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	l.workDir, _ = os.Getwd()
	l.homeDir, _ = os.UserHomeDir()
	return l
}

// Load loads configuration with layered precedence:
//  1. defaults
//  2. user config (~/.config/ontogenia/config.yaml)
//  3. project config (ontogenia.yaml in the working directory or a parent)
//  4. explicit file (--config), which must exist when given
//  5. environment (ONTOGENIA_MODEL, ONTOGENIA_LOG_LEVEL)
//
// Command-line flags are applied by the caller on the returned config,
// which must then be validated again.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		if err := cfg.overlay(path); err == nil {
			l.logger.Debug("Loaded user config", "path", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if path := l.findProjectConfig(); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", "path", path)
	} else {
		l.logger.Debug("No project config found")
	}

	if explicitPath != "" {
		if err := cfg.overlay(explicitPath); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", "path", explicitPath)
	}

	if v := l.getenv(EnvModel); v != "" {
		cfg.Model.Pin = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureUserConfig writes the defaults to the user config file if it is missing.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.userConfigPath()
	if path == "" {
		return "", errors.New("cannot determine home directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", "path", path)
	return path, nil
}

func (l *Loader) userConfigPath() string {
	if l.homeDir == "" {
		return ""
	}
	return filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for ontogenia.yaml in the working directory and its parents.
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}
	dir := l.workDir
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
