package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/checked/core/expect"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the leaf types usable in declarations",
	Long: `List the leaf types that may appear in a signature's type declarations,
with the Go type each argument holds after checking.

Compose them into containers:
  [int]             sequence of int
  {str: float}      mapping from str to float
  (str, int)        fixed-length tuple`,
	RunE: runTypes,
}

func init() {
	rootCmd.AddCommand(typesCmd)
	addOutputFlags(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	reg := expect.NewRegistry()

	aliases := make(map[string][]string)
	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		if t.Name != name {
			aliases[t.Name] = append(aliases[t.Name], name)
		}
	}

	var records []map[string]any
	for _, t := range reg.Types() {
		records = append(records, map[string]any{
			"name":    t.Name,
			"go_type": t.Type.String(),
			"aliases": strings.Join(aliases[t.Name], ", "),
		})
	}

	opts := getFormatOptions(cmd)
	if len(opts.Columns) == 0 {
		opts.Columns = []string{"name", "go_type", "aliases"}
	}
	return getFormatter(cmd).FormatList(cmd.OutOrStdout(), "types", records, opts)
}
