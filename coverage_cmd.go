package main

import (
	"github.com/spf13/cobra"

	"github.com/phobologic/refcheck/internal/config"
	"github.com/phobologic/refcheck/internal/coverage"
	"github.com/phobologic/refcheck/internal/extract"
	"github.com/phobologic/refcheck/internal/model"
)

// scanFlags are the flags shared by both coverage checkers.
type scanFlags struct {
	roots         []string
	allow         []string
	mode          string
	format        string
	gitignore     bool
	showLocations bool
}

func (f *scanFlags) register(cmd *cobra.Command, rootsHelp string) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.roots, "root", nil, rootsHelp+" (repeatable)")
	fs.StringArrayVar(&f.allow, "allow", nil, "name that may be missing without failing (repeatable)")
	fs.StringVar(&f.mode, "mode", "", "call-site matching: lexical or syntax")
	fs.StringVar(&f.format, "format", "", "output format: text or toon")
	fs.BoolVar(&f.gitignore, "gitignore", false, "skip files matched by .gitignore in each search root")
	fs.BoolVar(&f.showLocations, "show-locations", false, "print file:line of the first call for each missing name")
}

// apply overlays flags set on the command line onto cfg values.
func (f *scanFlags) apply(cmd *cobra.Command, scan config.ScanConfig, roots, allow []string) (coverage.Config, coverage.WriteOptions, error) {
	fs := cmd.Flags()
	if fs.Changed("root") {
		roots = f.roots
	}
	allow = append(append([]string(nil), allow...), f.allow...)
	if fs.Changed("mode") {
		scan.Mode = f.mode
	}
	if fs.Changed("format") {
		scan.Format = f.format
	}
	if fs.Changed("gitignore") {
		scan.Gitignore = f.gitignore
	}

	mode, err := extract.ParseMode(scan.Mode)
	if err != nil {
		return coverage.Config{}, coverage.WriteOptions{}, newUsageError(cmd, err)
	}
	format, err := coverage.ParseFormat(scan.Format)
	if err != nil {
		return coverage.Config{}, coverage.WriteOptions{}, newUsageError(cmd, err)
	}

	cfg := coverage.Config{
		Roots:      roots,
		Allow:      allow,
		Mode:       mode,
		Extensions: scan.Extensions,
		Gitignore:  scan.Gitignore,
	}
	return cfg, coverage.WriteOptions{Format: format, ShowLocations: f.showLocations}, nil
}

func newRPCCoverageCmd(a *app) *cobra.Command {
	var (
		flags      scanFlags
		migrations string
		wrappers   []string
	)

	cmd := &cobra.Command{
		Use:   "rpc-coverage",
		Short: "Fail if application code calls an RPC no migration creates",
		Long: `Scans the search roots for supabase.rpc('name') and wrapper calls such as
callRpc('name'), then checks every name against the functions and procedures
created by the .sql files under the migrations directory.

Exits 0 when every name is declared and 1 when any is missing.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg, wopts, err := flags.apply(cmd, fileCfg.Scan, fileCfg.RPC.Roots, fileCfg.RPC.Allow)
			if err != nil {
				return err
			}
			cfg.Kind = model.RPC
			cfg.Declarations = fileCfg.RPC.Migrations
			if cmd.Flags().Changed("migrations") {
				cfg.Declarations = migrations
			}
			cfg.Wrappers = fileCfg.RPC.Wrappers
			if cmd.Flags().Changed("wrapper") {
				cfg.Wrappers = wrappers
			}
			return a.runCoverage(cfg, wopts)
		},
	}

	flags.register(cmd, "directory to search for RPC calls (default src, supabase/functions)")
	cmd.Flags().StringVar(&migrations, "migrations", "", "directory of SQL migrations (default supabase/migrations)")
	cmd.Flags().StringArrayVar(&wrappers, "wrapper", nil, "helper whose first string argument is an RPC name (repeatable, default callRpc)")
	return cmd
}

func newFunctionsCoverageCmd(a *app) *cobra.Command {
	var (
		flags scanFlags
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "functions-coverage",
		Short: "Fail if application code invokes an edge function that has no directory",
		Long: `Scans the search roots for supabase.functions.invoke('name') calls and checks
every name against the subdirectories of the functions directory. Directories
starting with "_" hold shared code and are not functions.

Exits 0 when every name is declared and 1 when any is missing.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg, wopts, err := flags.apply(cmd, fileCfg.Scan, fileCfg.Functions.Roots, fileCfg.Functions.Allow)
			if err != nil {
				return err
			}
			cfg.Kind = model.Function
			cfg.Declarations = fileCfg.Functions.Dir
			if cmd.Flags().Changed("functions-dir") {
				cfg.Declarations = dir
			}
			return a.runCoverage(cfg, wopts)
		},
	}

	flags.register(cmd, "directory to search for function invocations (default src)")
	cmd.Flags().StringVar(&dir, "functions-dir", "", "directory holding one subdirectory per function (default supabase/functions)")
	return cmd
}

func (a *app) runCoverage(cfg coverage.Config, wopts coverage.WriteOptions) error {
	cfg.Logger = a.logger()
	report, err := coverage.Run(cfg)
	if err != nil {
		return err
	}
	if err := coverage.Write(report, a.stdout, a.stderr, wopts); err != nil {
		return err
	}
	if !report.OK() {
		return &exitError{code: 1}
	}
	return nil
}
