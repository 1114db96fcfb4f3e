// Package extract finds backend call sites in application source files.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/refcheck/internal/model"
)

// Mode selects how call sites are recognised.
type Mode string

const (
	// Lexical matches call syntax with regular expressions over raw text.
	// Names inside comments and strings that look like calls are counted.
	Lexical Mode = "lexical"
	// Syntax parses the source and only counts real call expressions.
	Syntax Mode = "syntax"
)

// ParseMode validates a mode name. The empty string selects Lexical.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Lexical:
		return Lexical, nil
	case Syntax:
		return Syntax, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, Lexical, Syntax)
}

// Target describes which call shapes name a capability of the given kind.
type Target struct {
	Kind model.Kind
	// Wrappers are helper identifiers whose first string argument is a name,
	// e.g. callRpc.
	Wrappers []string
}

// Extractor returns the references found in one source file.
type Extractor interface {
	Extract(path, language string, src []byte) []model.Reference
}

// New returns the extractor for mode.
func New(mode Mode, target Target) (Extractor, error) {
	lex, err := NewLexical(target)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "", Lexical:
		return lex, nil
	case Syntax:
		return NewSyntax(target, lex), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// Decode turns file bytes into text, replacing invalid UTF-8 sequences.
func Decode(src []byte) string {
	return strings.ToValidUTF8(string(src), "\uFFFD")
}

func sortRefs(refs []model.Reference) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Line < refs[j].Line
	})
}
