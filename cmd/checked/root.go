package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/checked/config"
	"github.com/artpar/checked/core/options"
)

var (
	// Global flags
	cfgFile string
	envFile string

	// Set by the root pre-run hook for every subcommand.
	cfg    *config.Config
	logger = zerolog.Nop()
)

// errReported means the command already printed the failure.
var errReported = errors.New("failure reported")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "checked",
	Short: "Check call arguments against declared type expectations",
	Long: `checked validates call arguments against declared type expectations,
converting values to the declared types where it can.

Signatures are declared in YAML:

  function: scale
  params:
    - {name: values, type: "[float]"}
    - {name: factor, type: float}

Commands:
  checked lint signatures/                      # Check declaration files
  checked call --sig scale.yaml --args '[[1,"2"],3]'
  checked serve --sig signatures/               # Check JSON-lines requests from stdin
  checked types                                 # List builtin leaf types`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "checked.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before the config")
}

// setup loads the env file and config, builds the logger and applies the
// checking options to the global store.
func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	if err := config.LoadEnvFile(envFile, !flags.Changed("env-file")); err != nil {
		return err
	}

	var err error
	if flags.Changed("config") {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadWithFallback(cfgFile)
	}
	if err != nil {
		return err
	}

	logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
	return cfg.Apply(options.Global())
}

// newLogger builds the process logger. Console format is human-readable;
// anything else is JSON.
func newLogger(lc config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(w).With().Timestamp().Logger()
}
