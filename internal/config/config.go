package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config represents the complete symnav configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	Analyzer  AnalyzerConfig  `json:"analyzer" mapstructure:"analyzer" toml:"analyzer"`
	Index     IndexConfig     `json:"index" mapstructure:"index" toml:"index"`
	Query     QueryConfig     `json:"query" mapstructure:"query" toml:"query"`
	Hierarchy HierarchyConfig `json:"hierarchy" mapstructure:"hierarchy" toml:"hierarchy"`
	Rename    RenameConfig    `json:"rename" mapstructure:"rename" toml:"rename"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
}

// AnalyzerConfig selects where the semantic model comes from
type AnalyzerConfig struct {
	// IndexPath is relative to the workspace root unless absolute.
	IndexPath string `json:"indexPath" mapstructure:"indexPath" toml:"indexPath"`
	// ReadSources loads document text from disk when the index carries none.
	ReadSources bool `json:"readSources" mapstructure:"readSources" toml:"readSources"`
}

// IndexConfig controls declaration index construction
type IndexConfig struct {
	Workers int      `json:"workers" mapstructure:"workers" toml:"workers"`
	Exclude []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
	// RespectGitignore drops files matched by the workspace .gitignore.
	RespectGitignore  bool `json:"respectGitignore" mapstructure:"respectGitignore" toml:"respectGitignore"`
	MaxContainerDepth int  `json:"maxContainerDepth" mapstructure:"maxContainerDepth" toml:"maxContainerDepth"`
}

// QueryConfig contains query execution policy
type QueryConfig struct {
	TimeoutMs         int  `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeoutMs"`
	MaxCallGraphDepth int  `json:"maxCallGraphDepth" mapstructure:"maxCallGraphDepth" toml:"maxCallGraphDepth"`
	MaxCallGraphNodes int  `json:"maxCallGraphNodes" mapstructure:"maxCallGraphNodes" toml:"maxCallGraphNodes"`
	StrictAmbiguity   bool `json:"strictAmbiguity" mapstructure:"strictAmbiguity" toml:"strictAmbiguity"`
}

// HierarchyConfig contains type hierarchy settings
type HierarchyConfig struct {
	RootTypes []string `json:"rootTypes" mapstructure:"rootTypes" toml:"rootTypes"`
	MaxDepth  int      `json:"maxDepth" mapstructure:"maxDepth" toml:"maxDepth"`
}

// RenameConfig contains rename transaction settings
type RenameConfig struct {
	StagedCommit    bool   `json:"stagedCommit" mapstructure:"stagedCommit" toml:"stagedCommit"`
	FileRenameMatch string `json:"fileRenameMatch" mapstructure:"fileRenameMatch" toml:"fileRenameMatch"`
	Journal         bool   `json:"journal" mapstructure:"journal" toml:"journal"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
	File   string `json:"file" mapstructure:"file" toml:"file"`
}

// File rename match rules
const (
	FileRenameExact  = "exact"
	FileRenamePrefix = "prefix"
)

// Dir is the per-workspace state directory.
const Dir = ".symnav"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Analyzer: AnalyzerConfig{
			IndexPath:   ".scip/index.scip",
			ReadSources: true,
		},
		Index: IndexConfig{
			Workers:           4,
			Exclude:           []string{},
			RespectGitignore:  true,
			MaxContainerDepth: 32,
		},
		Query: QueryConfig{
			TimeoutMs:         10000,
			MaxCallGraphDepth: 4,
			MaxCallGraphNodes: 100,
		},
		Hierarchy: HierarchyConfig{
			RootTypes: []string{"System.Object", "object", "java.lang.Object", "kotlin.Any", "Object", "Any"},
			MaxDepth:  64,
		},
		Rename: RenameConfig{
			StagedCommit:    true,
			FileRenameMatch: FileRenameExact,
			Journal:         true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadConfig loads configuration from .symnav/config.{toml,json,yaml}.
// SYMNAV_* environment variables override file values, e.g.
// SYMNAV_QUERY_TIMEOUTMS=30000.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, Dir))
	v.SetEnvPrefix("SYMNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("analyzer.indexPath", d.Analyzer.IndexPath)
	v.SetDefault("analyzer.readSources", d.Analyzer.ReadSources)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("index.exclude", d.Index.Exclude)
	v.SetDefault("index.respectGitignore", d.Index.RespectGitignore)
	v.SetDefault("index.maxContainerDepth", d.Index.MaxContainerDepth)
	v.SetDefault("query.timeoutMs", d.Query.TimeoutMs)
	v.SetDefault("query.maxCallGraphDepth", d.Query.MaxCallGraphDepth)
	v.SetDefault("query.maxCallGraphNodes", d.Query.MaxCallGraphNodes)
	v.SetDefault("query.strictAmbiguity", d.Query.StrictAmbiguity)
	v.SetDefault("hierarchy.rootTypes", d.Hierarchy.RootTypes)
	v.SetDefault("hierarchy.maxDepth", d.Hierarchy.MaxDepth)
	v.SetDefault("rename.stagedCommit", d.Rename.StagedCommit)
	v.SetDefault("rename.fileRenameMatch", d.Rename.FileRenameMatch)
	v.SetDefault("rename.journal", d.Rename.Journal)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration to .symnav/config.toml
func (c *Config) Save(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(dir, "config.toml")
	return configPath, os.WriteFile(configPath, data, 0644)
}

// IndexPathFor resolves the SCIP index path against the workspace root.
func (c *Config) IndexPathFor(repoRoot string) string {
	if filepath.IsAbs(c.Analyzer.IndexPath) {
		return c.Analyzer.IndexPath
	}
	return filepath.Join(repoRoot, c.Analyzer.IndexPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Rename.FileRenameMatch {
	case FileRenameExact, FileRenamePrefix:
	default:
		return &ConfigError{Field: "rename.fileRenameMatch", Message: fmt.Sprintf("unknown rule %q (want exact or prefix)", c.Rename.FileRenameMatch)}
	}
	if c.Index.Workers <= 0 {
		return &ConfigError{Field: "index.workers", Message: "must be positive"}
	}
	if c.Index.MaxContainerDepth <= 0 {
		return &ConfigError{Field: "index.maxContainerDepth", Message: "must be positive"}
	}
	if c.Hierarchy.MaxDepth <= 0 {
		return &ConfigError{Field: "hierarchy.maxDepth", Message: "must be positive"}
	}
	if c.Query.TimeoutMs <= 0 {
		return &ConfigError{Field: "query.timeoutMs", Message: "must be positive"}
	}
	if c.Query.MaxCallGraphDepth <= 0 {
		return &ConfigError{Field: "query.maxCallGraphDepth", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
