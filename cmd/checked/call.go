package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/checked/core/exporter"
	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/formatter"
	"github.com/artpar/checked/core/validation"
)

var (
	callSigs     []string
	callFunc     string
	callArgs     string
	callKwargs   string
	callNoCoerce bool
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Check one call against a declared signature",
	Long: `Bind and check one set of arguments against a declared signature, then
print the arguments the function would receive.

Arguments are given as JSON. Integral numbers are passed as int, other
numbers as float.

Examples:
  checked call --sig scale.yaml --args '[["1", 2.5], "3"]'
  checked call --sig signatures/ --func scale --args '[[1]]' --kwargs '{"factor": 2}'
  checked call --sig scale.yaml --args '[["x"]]' --no-coerce -o json`,
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringSliceVar(&callSigs, "sig", nil, "signature file or directory (default: configured signatures)")
	callCmd.Flags().StringVar(&callFunc, "func", "", "function to call (required when several are declared)")
	callCmd.Flags().StringVar(&callArgs, "args", "", "positional arguments as a JSON array")
	callCmd.Flags().StringVar(&callKwargs, "kwargs", "", "keyword arguments as a JSON object")
	callCmd.Flags().BoolVar(&callNoCoerce, "no-coerce", false, "reject non-conforming arguments instead of converting them")
	addOutputFlags(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	positional, err := parseArgs(callArgs)
	if err != nil {
		return err
	}
	kwargs, err := parseKwargs(callKwargs)
	if err != nil {
		return err
	}

	reg := expect.NewRegistry()
	cat, err := loadCatalog(cmd.Context(), reg, signaturePaths(callSigs))
	if err != nil {
		return err
	}
	fn, err := pickFunction(cat, callFunc)
	if err != nil {
		return err
	}

	exporters := exporter.NewRegistry()
	exporters.Register(exporter.NewLogExporter(logger))
	v := validation.New(
		validation.WithLogger(logger),
		validation.WithObserver(exporters),
	)

	var opts []validation.CallOption
	if cmd.Flags().Changed("no-coerce") {
		opts = append(opts, validation.WithCoerce(!callNoCoerce))
	}

	f := getFormatter(cmd)
	out := cmd.OutOrStdout()

	bound, err := v.Validate(fn.Signature, positional, kwargs, opts...)
	if err != nil {
		if ferr := f.FormatError(out, err); ferr != nil {
			return ferr
		}
		return errReported
	}

	return f.FormatCall(out, formatter.FromBound(fn.Signature, bound), getFormatOptions(cmd))
}
