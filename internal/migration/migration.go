// Package migration generates the SQL migration that re-applies a security
// attribute to a list of database functions.
package migration

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/phobologic/refcheck/internal/model"
)

// DefaultOutput is the fixed path the generated migration is written to.
const DefaultOutput = "supabase/migrations/99999999999999_reapply_function_security.sql"

// ParseNames reads one function signature per line and returns the unique
// bare names in sorted order. Blank lines and lines starting with # or -- are
// ignored. Schema prefixes, argument lists and identifier quotes are removed.
func ParseNames(r io.Reader) ([]string, error) {
	set := make(model.Set)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "--") {
			continue
		}
		name := bareName(line)
		if !model.ValidName(name) {
			return nil, fmt.Errorf("line %d: invalid function name %q", lineNo, name)
		}
		set.Add(name)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

func bareName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		sig = sig[:i]
	}
	sig = strings.TrimSpace(sig)
	if i := strings.LastIndexByte(sig, '.'); i >= 0 {
		sig = sig[i+1:]
	}
	return strings.Trim(strings.TrimSpace(sig), `"`)
}

// Options controls Render.
type Options struct {
	Names     []string
	Schema    string // default public
	Attribute string // default SECURITY DEFINER
	// SearchPath, when set, is also pinned on every function.
	SearchPath string
}

var (
	schemaRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	attributeRe = regexp.MustCompile(`^[A-Za-z_ ]+$`)
	searchRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*$`)
)

var tmpl = template.Must(template.New("migration").Parse(`-- Generated by refcheck gen-migration. Do not edit by hand.
-- Re-applies {{.Attribute}}{{if .SearchPath}} and search_path{{end}} to {{len .Names}} function name(s) in schema {{.Schema}}.
-- Overloads are resolved when the migration runs.
do $$
declare
  r record;
begin
  for r in
    select p.oid::regprocedure as sig
    from pg_proc p
    join pg_namespace n on n.oid = p.pronamespace
    where n.nspname = '{{.Schema}}'
      and p.prokind = 'f'
      and p.proname = any (array[
{{- range $i, $n := .Names}}{{if $i}},{{end}}
        '{{$n}}'
{{- end}}
      ]::text[])
  loop
    begin
      execute format('alter function %s {{.Attribute}}', r.sig);
{{- if .SearchPath}}
      execute format('alter function %s set search_path = {{.SearchPath}}', r.sig);
{{- end}}
    exception
      when undefined_function then
        null;
    end;
  end loop;
end $$;
`))

// Render writes the migration for opts to w.
func Render(w io.Writer, opts Options) error {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.Attribute == "" {
		opts.Attribute = "SECURITY DEFINER"
	}
	if len(opts.Names) == 0 {
		return fmt.Errorf("no function names to render")
	}
	for _, n := range opts.Names {
		if !model.ValidName(n) {
			return fmt.Errorf("invalid function name %q", n)
		}
	}
	if !schemaRe.MatchString(opts.Schema) {
		return fmt.Errorf("invalid schema %q", opts.Schema)
	}
	if !attributeRe.MatchString(opts.Attribute) {
		return fmt.Errorf("invalid attribute %q", opts.Attribute)
	}
	if opts.SearchPath != "" && !searchRe.MatchString(opts.SearchPath) {
		return fmt.Errorf("invalid search_path %q", opts.SearchPath)
	}

	names := append([]string(nil), opts.Names...)
	sort.Strings(names)
	opts.Names = names

	return tmpl.Execute(w, opts)
}
