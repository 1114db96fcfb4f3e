package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/refcheck/internal/model"
)

const (
	quote     = "['\"`]"
	nameGroup = `([A-Za-z0-9_-]+)`
	// typeArgs tolerates an explicit generic instantiation before the
	// argument list, e.g. callRpc<Row[]>(...).
	typeArgs = `\s*(?:<[^()]*>)?\s*\(\s*`
)

var directCalls = map[model.Kind]string{
	model.RPC:      `\.rpc`,
	model.Function: `\.functions\s*\.\s*invoke`,
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// LexicalExtractor matches call sites with regular expressions.
type LexicalExtractor struct {
	patterns []*regexp.Regexp
}

// NewLexical compiles the patterns for target.
func NewLexical(target Target) (*LexicalExtractor, error) {
	direct, ok := directCalls[target.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", target.Kind)
	}

	patterns := []*regexp.Regexp{
		regexp.MustCompile(direct + typeArgs + quote + nameGroup + quote),
	}

	if len(target.Wrappers) > 0 {
		alts := make([]string, 0, len(target.Wrappers))
		for _, w := range target.Wrappers {
			if !identRe.MatchString(w) {
				return nil, fmt.Errorf("invalid wrapper identifier %q", w)
			}
			alts = append(alts, regexp.QuoteMeta(w))
		}
		// No \b here: $ is a valid identifier character.
		wrapper := `(?:^|[^A-Za-z0-9_$])(?:` + strings.Join(alts, "|") + `)`
		patterns = append(patterns, regexp.MustCompile(wrapper+typeArgs+quote+nameGroup+quote))
	}

	return &LexicalExtractor{patterns: patterns}, nil
}

// Extract returns every match in src, in file order.
func (e *LexicalExtractor) Extract(path, _ string, src []byte) []model.Reference {
	return e.extractText(path, Decode(src))
}

func (e *LexicalExtractor) extractText(path, text string) []model.Reference {
	type hit struct {
		offset int
		name   string
	}
	var hits []hit
	for _, re := range e.patterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{offset: m[2], name: text[m[2]:m[3]]})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].offset < hits[j].offset })

	refs := make([]model.Reference, 0, len(hits))
	line, pos := 1, 0
	for _, h := range hits {
		line += strings.Count(text[pos:h.offset], "\n")
		pos = h.offset
		refs = append(refs, model.Reference{Name: h.name, File: path, Line: line})
	}
	return refs
}
