// Package sqlpatch widens exception handlers in generated SQL migrations.
package sqlpatch

import (
	"fmt"
	"regexp"
	"strings"
)

// Options names the handler to look for and the condition to add after it.
type Options struct {
	Existing string // default undefined_function
	Added    string // default insufficient_privilege
}

var conditionRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (o Options) withDefaults() Options {
	if o.Existing == "" {
		o.Existing = "undefined_function"
	}
	if o.Added == "" {
		o.Added = "insufficient_privilege"
	}
	return o
}

// Validate checks that both conditions are plain PL/pgSQL condition names.
func (o Options) Validate() error {
	o = o.withDefaults()
	for _, c := range []string{o.Existing, o.Added} {
		if !conditionRe.MatchString(c) {
			return fmt.Errorf("invalid exception condition %q", c)
		}
	}
	if strings.EqualFold(o.Existing, o.Added) {
		return fmt.Errorf("added condition %q is the one already handled", o.Added)
	}
	return nil
}

// Widen appends a `when <added> then null;` clause after every
// `exception when <existing> then null;` block in sql. Blocks already followed
// by the added clause are left alone. It returns the new text and the number
// of blocks changed; zero means sql is returned unchanged.
func Widen(sql string, opts Options) (string, int, error) {
	if err := opts.Validate(); err != nil {
		return "", 0, err
	}
	opts = opts.withDefaults()

	blockRe := regexp.MustCompile(`(?i)\bexception(\s+)(when)\s+` +
		regexp.QuoteMeta(opts.Existing) + `\s+then(\s+)null\s*;`)
	alreadyRe := regexp.MustCompile(`(?i)^\s*when\s+` + regexp.QuoteMeta(opts.Added) + `\s+then\b`)

	var b strings.Builder
	last, changed := 0, 0
	for _, m := range blockRe.FindAllStringSubmatchIndex(sql, -1) {
		end := m[1]
		if alreadyRe.MatchString(sql[end:]) {
			continue
		}

		lead := sql[m[2]:m[3]]
		gap := sql[m[6]:m[7]]
		when, then, null := "when", "then", "null"
		if sql[m[4]:m[5]] == "WHEN" {
			when, then, null = "WHEN", "THEN", "NULL"
		}

		sep := " "
		if i := strings.LastIndex(lead, "\n"); i >= 0 {
			sep = "\n" + lead[i+1:]
		}

		b.WriteString(sql[last:end])
		fmt.Fprintf(&b, "%s%s %s %s%s%s;", sep, when, opts.Added, then, gap, null)
		last = end
		changed++
	}
	if changed == 0 {
		return sql, 0, nil
	}
	b.WriteString(sql[last:])
	return b.String(), changed, nil
}
