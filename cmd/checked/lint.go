package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/schema"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

var lintCmd = &cobra.Command{
	Use:   "lint [PATH...]",
	Short: "Check signature declaration files",
	Long: `Parse and compile signature declaration files without calling anything.

Directories are searched recursively for .yaml and .yml files. With no
arguments the configured signatures.dir and signatures.files are checked.

Every file is checked on its own first; then all files together are checked
for functions declared more than once.`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	paths := signaturePaths(args)
	if len(paths) == 0 {
		return fmt.Errorf("no signature files given (pass paths or set signatures.dir)")
	}

	files, err := collectFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no signature files found in %v", paths)
	}

	reg := expect.NewRegistry()
	results := parseFiles(cmd.Context(), reg, files)

	failed := 0
	var decls []schema.Declaration
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n    %v\n", crossMark, res.path, res.err)
			continue
		}
		fmt.Fprintf(out, "%s %s (%d functions)\n", checkMark, res.path, len(res.decls))
		decls = append(decls, res.decls...)
	}

	if failed > 0 {
		fmt.Fprintln(out)
		return fmt.Errorf("%d of %d signature files failed", failed, len(files))
	}

	cat, err := schema.NewCatalog(reg, decls)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", crossMark, err)
		return errReported
	}

	logger.Debug().Int("files", len(files)).Int("functions", cat.Len()).Msg("signatures checked")
	fmt.Fprintf(out, "\n%d functions in %d files\n", cat.Len(), len(files))
	return nil
}
