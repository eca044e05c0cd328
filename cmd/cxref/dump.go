package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cxref/internal/paths"
	"cxref/internal/store"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a cached cross-reference entry",
	Long: `Loads the cache entry for a source file and prints it.

Examples:
  cxref dump src/main.cc
  cxref dump --output yaml include/widget.h`,
	Args: cobra.ExactArgs(1),
	Run:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "output", "json", "Output format: json or yaml")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot)

	cacheDir := cfg.Cache.Directory
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(repoRoot, cacheDir)
	}
	st, err := store.New(cacheDir, store.Format(cfg.Cache.Format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	sourcePath, err := paths.Normalize(args[0])
	if err != nil {
		sourcePath = paths.NormalizeFallback(args[0])
	}
	entry, err := st.Load(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch dumpFormat {
	case "yaml":
		// Round-trip through JSON so yaml output follows the JSON field
		// names and omits empty collections.
		raw, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		out, err := yaml.Marshal(tree)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	case "json":
		out, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(append(out, '\n'))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q\n", dumpFormat)
		os.Exit(1)
	}
}
