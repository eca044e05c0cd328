package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cxref/internal/engine/treesitter"
	"cxref/internal/groupmatch"
	"cxref/internal/indexer"
	"cxref/internal/paths"
	"cxref/internal/store"
	"cxref/internal/vfs"
	"cxref/internal/wfiles"
)

var (
	indexNoLinkage    bool
	indexMultiVersion bool
	indexComments     int
	indexCacheFormat  string // json or binary, overrides config
	indexForce        bool   // bypass the staleness database
)

var indexCmd = &cobra.Command{
	Use:   "index <file>... [-- <compiler args>]",
	Short: "Index translation units into the cross-reference cache",
	Long: `Analyzes each given source file as one translation unit and writes a
cross-reference entry per reached file into the cache.

Arguments after "--" are passed to the analysis engine as compiler
arguments (include directories, macro definitions).

Examples:
  cxref index src/main.cc
  cxref index src/*.cc -- -Iinclude -DNDEBUG
  cxref index --no-linkage src/main.cc    # also index locals and parameters`,
	Args: cobra.MinimumNArgs(1),
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexNoLinkage, "no-linkage", false,
		"Also index symbols without linkage (locals, parameters)")
	indexCmd.Flags().BoolVar(&indexMultiVersion, "multi-version", false,
		"Record matched headers in every translation unit that includes them")
	indexCmd.Flags().IntVar(&indexComments, "comments", -1,
		"Comment extraction: 0 none, 1 doc comments, 2 all comments")
	indexCmd.Flags().StringVar(&indexCacheFormat, "format", "",
		"Cache entry format: json or binary (overrides config)")
	indexCmd.Flags().BoolVar(&indexForce, "force", false,
		"Re-index even if the staleness database says entries are current")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfigOrDefault(repoRoot)
	logger := newLogger(cfg)

	if indexComments >= 0 {
		cfg.Index.Comments = indexComments
	}
	if indexMultiVersion {
		cfg.Index.MultiVersion = true
	}
	if indexNoLinkage {
		cfg.Index.InitialNoLinkage = true
	}
	if indexCacheFormat != "" {
		cfg.Cache.Format = indexCacheFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	eng, err := treesitter.New(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var stamper vfs.Stamper
	if cfg.Cache.StalenessDB != "" && !indexForce {
		dbPath := cfg.Cache.StalenessDB
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(repoRoot, dbPath)
		}
		sqlite, err := vfs.OpenSQLite(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open staleness database: %v\n", err)
			os.Exit(1)
		}
		defer sqlite.Close()
		stamper = sqlite
	}

	var matcher *groupmatch.Matcher
	if cfg.Index.MultiVersion {
		matcher, err = groupmatch.New(cfg.Index.MultiVersionWhitelist, cfg.Index.MultiVersionBlacklist)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

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

	ix := indexer.NewIndexer(eng, wfiles.NewStore(), stamper, matcher, logger, indexer.Options{
		Comments:            cfg.Index.Comments,
		MaxInitializerLines: cfg.Index.MaxInitializerLines,
		MultiVersion:        cfg.Index.MultiVersion,
	})

	mains, compilerArgs := splitAtDash(cmd, args)
	var written, failed int
	for _, main := range mains {
		mainPath, err := paths.Normalize(main)
		if err != nil {
			mainPath = paths.NormalizeFallback(main)
		}
		results, ok := ix.Index(mainPath, compilerArgs, nil, cfg.Index.InitialNoLinkage)
		if !ok {
			failed++
			continue
		}
		for _, f := range results {
			if err := st.Save(f); err != nil {
				logger.Error("failed to persist index entry", map[string]any{
					"path":  f.Path,
					"error": err.Error(),
				})
				failed++
				continue
			}
			written++
		}
	}

	fmt.Printf("Indexed %d file(s) from %d translation unit(s)", written, len(mains))
	if failed > 0 {
		fmt.Printf(", %d failure(s)", failed)
	}
	fmt.Println()
	if failed > 0 {
		os.Exit(1)
	}
}

// splitAtDash separates source files from compiler arguments after "--".
func splitAtDash(cmd *cobra.Command, args []string) (mains, rest []string) {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return args[:at], args[at:]
	}
	return args, nil
}
