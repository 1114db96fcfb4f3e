package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phobologic/refcheck/internal/csvfix"
	"github.com/phobologic/refcheck/internal/dburl"
)

func newEncodeDBURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode-db-url",
		Short: "Print the database URL with its credentials percent-encoded",
		Long: `Reads SUPABASE_DB_URL, or DATABASE_URL when that is unset, and prints it with
the user and password percent-encoded. Already-encoded URLs are printed
unchanged.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, raw, err := dburl.Lookup(a.getenv)
			if err != nil {
				return err
			}
			encoded, err := dburl.Encode(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			a.logger().Debug("encoded database url", zap.String("source", name))
			_, err = fmt.Fprintln(a.stdout, encoded)
			return err
		},
	}
}

func newCSVColsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "csv-cols <file.csv>",
		Short: "Print the number of columns in the first row of a CSV file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := csvfix.Columns(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = fmt.Fprintln(a.stdout, n)
			return err
		},
	}
}

func newCSVPadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "csv-pad <input.csv> <output.csv> <columns>",
		Short: "Rewrite a CSV file so every row has exactly N columns",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				return newUsageError(cmd, fmt.Errorf("columns must be a non-negative integer, got %q", args[2]))
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			rows, err := writeAtomic(args[1], func(w io.Writer) (int, error) {
				return csvfix.Pad(in, w, n)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote %d row(s) with %d column(s) to %s\n", rows, n, args[1])
			return nil
		},
	}
}

// writeAtomic writes path through a temp file in the same directory and
// renames it into place, so path may also be the input being read.
// An existing file keeps its mode.
func writeAtomic(path string, write func(io.Writer) (int, error)) (int, error) {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".refcheck-*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := write(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return n, nil
}
