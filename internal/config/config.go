// Package config provides configuration loading and structs for docindex.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in index.backends.
const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
	BackendSolr   = "solr"
)

// Config holds all configuration for the application.
type Config struct {
	Debug  bool         `yaml:"debug"`
	Source SourceConfig `yaml:"source"`
	Walker WalkerConfig `yaml:"walker"`
	Index  IndexConfig  `yaml:"index"`
	Solr   SolrConfig   `yaml:"solr"`
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

// SourceConfig controls which files a run picks up and how they are parsed.
type SourceConfig struct {
	Extensions []string       `yaml:"extensions"`
	Recursive  *bool          `yaml:"recursive"`
	Markdown   MarkdownConfig `yaml:"markdown"`
}

// RecursiveOrDefault returns whether directories are expanded recursively; defaults to false when unset.
func (s *SourceConfig) RecursiveOrDefault() bool {
	if s.Recursive != nil {
		return *s.Recursive
	}
	return false
}

// MarkdownConfig holds Markdown parser settings.
type MarkdownConfig struct {
	// MangleAnchors rewrites heading ids the way the AsciiDoc toolchain does,
	// so the anchor normalizer sees the same shapes for both sources.
	MangleAnchors bool `yaml:"mangle_anchors"`
}

// WalkerConfig holds structure walker settings.
type WalkerConfig struct {
	MaxDepth      int    `yaml:"max_depth"`
	PreambleTitle string `yaml:"preamble_title"`
}

// IndexConfig selects the index backends and where local ones live.
type IndexConfig struct {
	Backends       []string `yaml:"backends"`
	BleveIndexPath string   `yaml:"bleve_index_path"`
	DatabasePath   string   `yaml:"database_path"`
	BatchSize      int      `yaml:"batch_size"`
}

// Uses reports whether backend is enabled.
func (i *IndexConfig) Uses(backend string) bool {
	for _, b := range i.Backends {
		if strings.EqualFold(b, backend) {
			return true
		}
	}
	return false
}

// SolrConfig holds the remote Solr collection settings.
type SolrConfig struct {
	URL        string        `yaml:"url"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string      `yaml:"directories"`
	Debounce    time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.DatabasePath = expandPath(cfg.Index.DatabasePath, configDir)
	cfg.Index.BleveIndexPath = expandPath(cfg.Index.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate reports settings that cannot produce a working run.
func (c *Config) Validate() error {
	if len(c.Index.Backends) == 0 {
		return fmt.Errorf("invalid config: index.backends is empty")
	}
	for _, b := range c.Index.Backends {
		switch strings.ToLower(b) {
		case BackendBleve, BackendSQLite:
		case BackendSolr:
			if c.Solr.URL == "" || c.Solr.Collection == "" {
				return fmt.Errorf("invalid config: solr backend needs solr.url and solr.collection")
			}
		default:
			return fmt.Errorf("invalid config: unknown backend %q", b)
		}
	}
	if c.Index.BatchSize < 0 {
		return fmt.Errorf("invalid config: index.batch_size must not be negative")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
