// Package config manages per-repository tool configuration.
// The config lives under .git/aigit/ so it travels with the repository
// without ever being committed.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grahamg/ai-git/internal/logging"
)

// DefaultStructuralPatterns are the manifest files always included in
// generation context, covering the common ecosystems.
var DefaultStructuralPatterns = []string{
	"package.json",
	"requirements.txt",
	"go.mod",
	"Cargo.toml",
	"setup.py",
}

// Config holds the repository-scoped tool settings.
type Config struct {
	// StructuralPatterns are glob patterns for files always added to
	// context, in match order.
	StructuralPatterns []string `yaml:"structural_patterns"`
}

// Store loads and persists the Config for one repository.
type Store struct {
	path string
	log  *logging.Logger

	cached *Config
}

// NewStore creates a config store rooted at a repository.
func NewStore(repoRoot string) *Store {
	return &Store{
		path: filepath.Join(repoRoot, ".git", "aigit", "config.yaml"),
		log:  logging.New("config").WithRepo(repoRoot),
	}
}

// Load returns the persisted config, or defaults when the file is absent.
// Read or parse failures fall back to defaults; they are logged, never
// surfaced to the caller.
func (s *Store) Load() *Config {
	if s.cached != nil {
		return s.cached
	}

	cfg := &Config{StructuralPatterns: append([]string(nil), DefaultStructuralPatterns...)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("config_read_failed", map[string]interface{}{"path": s.path}, err)
		}
		s.cached = cfg
		return cfg
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("config_parse_failed", map[string]interface{}{"path": s.path}, err)
		s.cached = cfg
		return cfg
	}

	if len(loaded.StructuralPatterns) > 0 {
		cfg.StructuralPatterns = loaded.StructuralPatterns
	}
	s.cached = cfg
	return cfg
}

// Save persists the config, overwriting any previous file. The write goes
// through a temp file and rename so readers never see a partial config.
func (s *Store) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace config: %w", err)
	}

	s.cached = cfg
	return nil
}

// UpdatePatterns replaces the structural pattern list and persists
// immediately.
func (s *Store) UpdatePatterns(patterns []string) error {
	cfg := s.Load()
	cfg.StructuralPatterns = append([]string(nil), patterns...)
	return s.Save(cfg)
}
