// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// coverage reports.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/refcheck/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("kind: %s", encodeValue(string(r.Kind))))
	parts = append(parts, fmt.Sprintf("ok: %t", r.OK()))
	parts = append(parts, fmt.Sprintf("declared: %d", r.Declared.Len()))

	refColumns := []string{"name", "file", "line"}
	parts = append(parts, formatTabular("invoked", refColumns, referenceRows(r.Invoked)))
	parts = append(parts, formatTabular("missing", refColumns, referenceRows(r.Missing)))

	if r.Allowed.Len() > 0 {
		var allowRows [][]string
		for _, name := range r.Allowed.Sorted() {
			status := "undeclared"
			if r.Declared.Has(name) {
				status = "declared"
			}
			allowRows = append(allowRows, []string{name, status})
		}
		parts = append(parts, formatTabular("allowed", []string{"name", "status"}, allowRows))
	}

	return strings.Join(parts, "\n")
}

func referenceRows(refs []model.Reference) [][]string {
	rows := make([][]string, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, []string{ref.Name, ref.File, strconv.Itoa(ref.Line)})
	}
	return rows
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) || strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	// Names may start with "-", which would read as a list marker.
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

// TOON strings only know these five escapes; other characters pass through.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(value string) string {
	return `"` + escaper.Replace(value) + `"`
}
