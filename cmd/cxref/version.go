package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cxref/internal/version"
	"cxref/internal/xref"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and cache format information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full(xref.MajorVersion, xref.MinorVersion))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
