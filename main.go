// refcheck checks that backend calls made by application code are declared
// by the backend, and bundles the small migration, URL and CSV helpers used
// alongside it.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/config"
	"github.com/phobologic/refcheck/internal/logging"
)

var version = "dev"

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode(err, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) error {
	return runEnv(args, stdout, stderr, os.Getenv)
}

// runEnv is run with an injectable environment lookup.
func runEnv(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr, getenv: getenv})
	root.SetArgs(args)
	return root.Execute()
}

// app carries the process surface every command writes to.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) string
	configPath string
	verbose    bool
}

func (a *app) logger() *zap.Logger {
	return logging.New(a.stderr, a.verbose)
}

// loadConfig reads --config, or the default file when the flag is unset.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	path := a.configPath
	if !explicit {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}
	a.logger().Debug("config loaded", zap.String("path", path), zap.Bool("explicit", explicit))
	return cfg, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "refcheck",
		Short:         "Check backend call coverage and run migration helpers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Positional args reaching the root name no subcommand.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return newUsageError(cmd, fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
			}
			return cmd.Help()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("refcheck {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return newUsageError(cmd, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "YAML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log skipped files and scan details")

	root.AddCommand(
		newRPCCoverageCmd(a),
		newFunctionsCoverageCmd(a),
		newPatchExceptionsCmd(a),
		newGenMigrationCmd(a),
		newEncodeDBURLCmd(a),
		newCSVColsCmd(a),
		newCSVPadCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintf(a.stdout, "refcheck %s\n", version)
				return err
			},
		},
	)
	return root
}

// exitError ends the run with code after the command has written its own
// output.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// usageError is a malformed invocation; it exits with status 2.
type usageError struct {
	err   error
	usage string
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newUsageError(cmd *cobra.Command, err error) error {
	return &usageError{err: err, usage: cmd.UsageString()}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return newUsageError(cmd, fmt.Errorf("accepts %d arg(s), received %d", n, len(args)))
		}
		return nil
	}
}

// exitCode reports err on stderr and maps it to a process exit status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ue *usageError
	if errors.As(err, &ue) {
		_, _ = fmt.Fprintf(stderr, "error: %v\n%s", ue.err, ue.usage)
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}
