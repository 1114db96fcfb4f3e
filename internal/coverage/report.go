package coverage

import (
	"fmt"
	"io"
	"strings"

	"github.com/phobologic/refcheck/internal/model"
	"github.com/phobologic/refcheck/internal/toon"
)

// Format selects how a report is rendered.
type Format string

const (
	Text Format = "text"
	TOON Format = "toon"
)

// ParseFormat validates a format name. The empty string selects Text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", Text:
		return Text, nil
	case TOON:
		return TOON, nil
	}
	return "", fmt.Errorf("unknown format %q (want %s or %s)", s, Text, TOON)
}

// WriteOptions controls Write.
type WriteOptions struct {
	Format        Format
	ShowLocations bool
}

// Write renders r. In text format missing names go to stderr under a header
// and the success summary goes to stdout. TOON always goes to stdout.
func Write(r *model.Report, stdout, stderr io.Writer, opts WriteOptions) error {
	if opts.Format == TOON {
		_, err := fmt.Fprintln(stdout, toon.Encode(r))
		return err
	}

	if !r.OK() {
		if _, err := fmt.Fprintf(stderr, "Missing %s declarations (%d):\n", r.Kind.Label(), len(r.Missing)); err != nil {
			return err
		}
		for _, ref := range r.Missing {
			line := "  " + ref.Name
			if opts.ShowLocations {
				line += fmt.Sprintf(" (%s:%d)", ref.File, ref.Line)
			}
			if _, err := fmt.Fprintln(stderr, line); err != nil {
				return err
			}
		}
		return nil
	}

	summary := fmt.Sprintf("OK: %d %s reference(s) covered", len(r.Invoked), r.Kind.Label())
	if n := allowedUndeclared(r); n > 0 {
		summary += fmt.Sprintf(" (%d allowed without declaration)", n)
	}
	_, err := fmt.Fprintln(stdout, summary)
	return err
}

func allowedUndeclared(r *model.Report) int {
	n := 0
	for _, ref := range r.Invoked {
		if !r.Declared.Has(ref.Name) && r.Allowed.Has(ref.Name) {
			n++
		}
	}
	return n
}
