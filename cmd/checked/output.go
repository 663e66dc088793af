package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/checked/core/formatter"
)

// addOutputFlags registers the flags read by getFormatter and getFormatOptions.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	cmd.Flags().Bool("no-header", false, "omit table headers")
	cmd.Flags().Bool("compact", false, "compact json output")
}

// getFormatter returns the formatter for the current command.
func getFormatter(cmd *cobra.Command) formatter.Formatter {
	outputFmt, _ := cmd.Flags().GetString("output")
	if outputFmt == "" {
		outputFmt = "table"
	}

	f, ok := formatter.Get(outputFmt)
	if !ok {
		return formatter.Default()
	}
	return f
}

// getFormatOptions builds format options from command flags.
func getFormatOptions(cmd *cobra.Command) formatter.FormatOptions {
	noHeader, _ := cmd.Flags().GetBool("no-header")
	compact, _ := cmd.Flags().GetBool("compact")

	return formatter.FormatOptions{
		NoHeader: noHeader,
		Compact:  compact,
		MaxWidth: 60,
	}
}
