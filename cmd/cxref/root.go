package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cxref/internal/config"
	"cxref/internal/logging"
	"cxref/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
	// repoRootFlag overrides the working directory as the repository root
	repoRootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cxref",
	Short: "cxref - C/C++ cross-reference indexer",
	Long: `cxref builds per-translation-unit cross-reference indexes for C and C++
sources: every symbol's definition, declarations, uses, call edges and type
relations, cached per file for incremental reuse.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("cxref version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default: human)")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo-root", "",
		"Repository root (default: working directory)")
}

// newLogger builds the command logger from flags layered over config.
// Precedence: CLI flag > config.json logging section > defaults.
func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.InfoLevel
	format := logging.HumanFormat
	if cfg != nil {
		level = logging.ParseLevel(cfg.Logging.Level)
		if cfg.Logging.Format == string(logging.JSONFormat) {
			format = logging.JSONFormat
		}
	}
	if logLevelFlag != "" {
		level = logging.ParseLevel(logLevelFlag)
	}
	if logFormatFlag != "" {
		format = logging.Format(logFormatFlag)
	}
	return logging.NewLogger(logging.Config{Format: format, Level: level})
}

// mustGetRepoRoot resolves the repository root: the --repo-root flag when
// set, otherwise the working directory.
func mustGetRepoRoot() string {
	if repoRootFlag != "" {
		return repoRootFlag
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
	return cwd
}

// loadConfigOrDefault loads the repo config, falling back to defaults with a
// warning on malformed files.
func loadConfigOrDefault(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		return config.DefaultConfig()
	}
	return cfg
}
