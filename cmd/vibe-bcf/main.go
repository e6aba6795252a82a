// Package main provides the vibe-bcf command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries per-invocation state shared by the subcommands.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	cfg     *viper.Viper
	cfgFile string
	logger  *zap.Logger
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		cfg:    viper.New(),
		logger: zap.NewNop(),
	}
	defer func() { _ = a.logger.Sync() }()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return ExitUsage
	}
	return ExitError
}

func (a *app) newRootCmd() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "vibe-bcf",
		Short: "Read BCF variant files",
		Long: `vibe-bcf reads BCF2 variant files (plain, BGZF or gzip compressed),
prints their header and records, and loads records into DuckDB.`,
		Example: `  vibe-bcf view input.bcf
  vibe-bcf view --samples NA12878 --split -o out.tsv input.bcf
  vibe-bcf header input.bcf
  vibe-bcf load --db variants.duckdb input.bcf
  cat input.bcf | vibe-bcf view -`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			logger, err := newLogger(a.cfg.GetString("log.level"), a.stderr)
			if err != nil {
				return &usageError{err}
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(a.stdout, "vibe-bcf version %s (%s) built %s\n", version, commit, date)
				return nil
			}
			_ = cmd.Help()
			return &usageError{errors.New("a command is required")}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.vibe-bcf.yaml)")
	pf.Int("threads", 0, "Background decompression threads (0 inflates in the reading goroutine)")
	pf.Bool("lazy", false, "Defer FORMAT decoding until it is accessed")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	_ = a.cfg.BindPFlag("threads", pf.Lookup("threads"))
	_ = a.cfg.BindPFlag("lazy", pf.Lookup("lazy"))
	_ = a.cfg.BindPFlag("log.level", pf.Lookup("log-level"))

	root.AddCommand(a.newViewCmd())
	root.AddCommand(a.newHeaderCmd())
	root.AddCommand(a.newSamplesCmd())
	root.AddCommand(a.newLoadCmd())
	root.AddCommand(a.newLookupCmd())
	root.AddCommand(a.newConfigCmd())

	return root
}

// usageError marks errors caused by bad invocation rather than bad input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
