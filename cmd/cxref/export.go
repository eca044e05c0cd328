package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	scipexport "cxref/internal/export/scip"
	"cxref/internal/paths"
	"cxref/internal/store"
	"cxref/internal/version"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <file>...",
	Short: "Export cached entries as a SCIP index",
	Long: `Loads the cache entries for the given source files and writes one SCIP
index combining them.

Examples:
  cxref export src/main.cc src/util.cc
  cxref export --output build/index.scip src/*.cc`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "index.scip", "Output path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
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

	exp := scipexport.NewExporter(repoRoot, version.Info())
	var loaded int
	for _, arg := range args {
		sourcePath, err := paths.Normalize(arg)
		if err != nil {
			sourcePath = paths.NormalizeFallback(arg)
		}
		entry, err := st.Load(sourcePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", arg, err)
			continue
		}
		exp.Add(entry)
		loaded++
	}
	if loaded == 0 {
		fmt.Fprintln(os.Stderr, "Error: no cache entries found; run 'cxref index' first")
		os.Exit(1)
	}

	if err := exp.WriteFile(exportOutput); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d document(s))\n", exportOutput, loaded)
}
