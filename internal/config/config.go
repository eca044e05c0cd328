package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete cxref configuration (v1 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Index   IndexConfig   `json:"index" mapstructure:"index"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// IndexConfig contains per-pass indexing configuration
type IndexConfig struct {
	// Comments selects comment extraction: 0 disables it, 1 keeps doc
	// comments, 2 additionally retains plain comments.
	Comments int `json:"comments" mapstructure:"comments"`
	// MaxInitializerLines caps how many source lines of an initializer go
	// into hover text.
	MaxInitializerLines int `json:"maxInitializerLines" mapstructure:"maxInitializerLines"`
	// MultiVersion records occurrences of whitelisted headers in every
	// translation unit that includes them.
	MultiVersion          bool     `json:"multiVersion" mapstructure:"multiVersion"`
	MultiVersionWhitelist []string `json:"multiVersionWhitelist" mapstructure:"multiVersionWhitelist"`
	MultiVersionBlacklist []string `json:"multiVersionBlacklist" mapstructure:"multiVersionBlacklist"`
	// InitialNoLinkage makes the initial pass also index symbols without
	// linkage (locals, parameters), at a cost.
	InitialNoLinkage bool       `json:"initialNoLinkage" mapstructure:"initialNoLinkage"`
	Name             NameConfig `json:"name" mapstructure:"name"`
}

// NameConfig contains display-name rendering configuration
type NameConfig struct {
	// SuppressUnwrittenScope drops implicit scope qualifiers from rendered
	// declaration syntax.
	SuppressUnwrittenScope bool `json:"suppressUnwrittenScope" mapstructure:"suppressUnwrittenScope"`
}

// CacheConfig contains persisted index cache configuration
type CacheConfig struct {
	// Directory is the cache root; relative paths resolve under the repo
	// root.
	Directory string `json:"directory" mapstructure:"directory"`
	// Format is "json" or "binary".
	Format string `json:"format" mapstructure:"format"`
	// StalenessDB is the sqlite staleness-cache path; empty keeps the
	// staleness cache in memory.
	StalenessDB string `json:"stalenessDb" mapstructure:"stalenessDb"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Index: IndexConfig{
			Comments:              2,
			MaxInitializerLines:   5,
			MultiVersion:          false,
			MultiVersionWhitelist: []string{},
			MultiVersionBlacklist: []string{},
			InitialNoLinkage:      false,
			Name: NameConfig{
				SuppressUnwrittenScope: true,
			},
		},
		Cache: CacheConfig{
			Directory:   ".cxref/cache",
			Format:      "json",
			StalenessDB: "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .cxref/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")
	v.SetDefault("index.comments", 2)
	v.SetDefault("index.maxInitializerLines", 5)
	v.SetDefault("cache.directory", ".cxref/cache")
	v.SetDefault("cache.format", "json")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".cxref"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .cxref/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".cxref")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// Write to file
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Index.Comments < 0 || c.Index.Comments > 2 {
		return &ConfigError{Field: "index.comments", Message: "must be 0, 1 or 2"}
	}
	if c.Index.MaxInitializerLines < 0 {
		return &ConfigError{Field: "index.maxInitializerLines", Message: "must be non-negative"}
	}
	if c.Cache.Format != "json" && c.Cache.Format != "binary" {
		return &ConfigError{Field: "cache.format", Message: "must be json or binary"}
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
