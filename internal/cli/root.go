// Package cli implements the checkqc command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"checkqc/internal/config"
)

// Version is stamped at build time with -ldflags "-X checkqc/internal/cli.Version=...".
var Version = "dev"

// Process exit codes. A completed check exits with the evaluation's status.
const (
	ExitOK       = 0
	ExitQCFailed = 1
	ExitError    = 2
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	envFile    string
	configPath string
	logLevel   string
	logFormat  string
	trace      bool
}

// app carries state between the root command and its subcommands.
type app struct {
	flags    globalFlags
	cfg      config.Config
	stderr   io.Writer
	exitCode int
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "checkqc",
		Short:   "checkqc - quality control for Illumina run folders",
		Version: Version,
		Long: `checkqc recognises the instrument and read length of an Illumina run
folder, runs the QC handlers configured for it and reports their findings.
The process exits 1 when any finding is fatal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.envFile, "env-file", "", "load settings from this .env file (default ./.env when present)")
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "handler configuration YAML (overrides CHECKQC_CONFIG)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug|info|warn|error (overrides CHECKQC_LOG_LEVEL)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "text|json (overrides CHECKQC_LOG_FORMAT)")
	pf.BoolVar(&a.flags.trace, "trace", false, "write operation spans as JSON lines to stderr")

	root.AddCommand(a.runCmd())
	root.AddCommand(a.historyCmd())
	root.AddCommand(a.showCmd())
	root.AddCommand(a.handlersCmd())
	root.AddCommand(a.validateConfigCmd())
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	var files []string
	if a.flags.envFile != "" {
		files = append(files, a.flags.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.flags.configPath != "" {
		cfg.ConfigPath = a.flags.configPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "checkqc:", err)
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(stderr, "Run 'checkqc --help' for usage.")
		}
		return ExitError
	}
	return a.exitCode
}

// usageError marks argument mistakes so Execute can point at --help.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}
