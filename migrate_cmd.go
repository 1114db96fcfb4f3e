package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/migration"
	"github.com/phobologic/refcheck/internal/sqlpatch"
)

func newPatchExceptionsCmd(a *app) *cobra.Command {
	var (
		opts   sqlpatch.Options
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "patch-exceptions [flags] <file.sql>",
		Short: "Add an extra exception clause to generated SQL handlers",
		Long: `Finds every "exception when <existing> then null;" block in the file and adds
"when <added> then null;" after it, keeping the indentation. The file is
rewritten in place unless --dry-run is given. Running it twice changes
nothing the second time.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return newUsageError(cmd, err)
			}

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			patched, n, err := sqlpatch.Widen(string(data), opts)
			if err != nil {
				return err
			}

			if dryRun {
				_, err := fmt.Fprint(a.stdout, patched)
				return err
			}
			if n == 0 {
				_, _ = fmt.Fprintf(a.stderr, "no matching exception blocks in %s\n", path)
				return nil
			}
			if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			a.logger().Debug("patched exception handlers", zap.String("path", path), zap.Int("blocks", n))
			_, _ = fmt.Fprintf(a.stderr, "patched %d exception block(s) in %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Existing, "when", "undefined_function", "condition whose handler is widened")
	cmd.Flags().StringVar(&opts.Added, "add", "insufficient_privilege", "condition to add after it")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the patched SQL instead of writing the file")
	return cmd
}

func newGenMigrationCmd(a *app) *cobra.Command {
	var (
		input, output string
		opts          migration.Options
		stdout        bool
	)

	cmd := &cobra.Command{
		Use:   "gen-migration",
		Short: "Generate a migration that re-applies a security attribute to functions",
		Long: `Reads function signatures, one per line, reduces them to unique bare names and
writes a migration that finds every matching routine when it runs and
re-applies the attribute (SECURITY DEFINER by default) to each overload.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(input)
			if err != nil {
				return err
			}
			defer f.Close()

			names, err := migration.ParseNames(f)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			opts.Names = names

			var buf bytes.Buffer
			if err := migration.Render(&buf, opts); err != nil {
				return err
			}

			if stdout {
				_, err := a.stdout.Write(buf.Bytes())
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote %d function name(s) to %s\n", len(names), output)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&input, "input", "functions.txt", "file listing one function signature per line")
	fs.StringVar(&output, "output", migration.DefaultOutput, "migration file to write")
	fs.BoolVar(&stdout, "stdout", false, "print the migration instead of writing it")
	fs.StringVar(&opts.Schema, "schema", "public", "schema the functions live in")
	fs.StringVar(&opts.Attribute, "attribute", "SECURITY DEFINER", "attribute to re-apply")
	fs.StringVar(&opts.SearchPath, "search-path", "", "also pin search_path to this value")
	return cmd
}
