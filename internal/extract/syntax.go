package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refcheck/internal/lang"
	"github.com/phobologic/refcheck/internal/model"
)

// SyntaxExtractor parses files with tree-sitter and only counts call
// expressions with a literal first argument. Files in languages without a
// grammar are handed to the lexical extractor.
type SyntaxExtractor struct {
	target   Target
	wrappers map[string]struct{}
	fallback *LexicalExtractor
	parsers  map[string]*sitter.Parser
}

// NewSyntax returns a syntax extractor for target.
func NewSyntax(target Target, fallback *LexicalExtractor) *SyntaxExtractor {
	wrappers := make(map[string]struct{}, len(target.Wrappers))
	for _, w := range target.Wrappers {
		wrappers[w] = struct{}{}
	}
	return &SyntaxExtractor{
		target:   target,
		wrappers: wrappers,
		fallback: fallback,
		parsers:  make(map[string]*sitter.Parser),
	}
}

// Extract returns the call sites in src, in document order.
func (e *SyntaxExtractor) Extract(path, language string, src []byte) []model.Reference {
	l, ok := lang.Languages[language]
	if !ok || !l.HasGrammar() {
		return e.fallback.Extract(path, language, src)
	}
	if len(src) == 0 {
		return nil
	}

	parser, ok := e.parsers[language]
	if !ok {
		parser = l.NewParser()
		e.parsers[language] = parser
	}

	source := []byte(Decode(src))
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return e.fallback.Extract(path, language, src)
	}
	defer tree.Close()

	var refs []model.Reference
	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type() == "call_expression" {
			if name, arg, ok := e.callName(n, source); ok {
				refs = append(refs, model.Reference{
					Name: name,
					File: path,
					Line: int(arg.StartPoint().Row) + 1,
				})
			}
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}

	sortRefs(refs)
	return refs
}

// callName returns the referenced name and its argument node if call has a
// recognised callee and a literal first argument.
func (e *SyntaxExtractor) callName(call *sitter.Node, source []byte) (string, *sitter.Node, bool) {
	fn := call.ChildByFieldName("function")
	args := call.ChildByFieldName("arguments")
	if fn == nil || args == nil || !e.matchesCallee(fn, source) {
		return "", nil, false
	}

	first := firstArgument(args)
	if first == nil {
		return "", nil, false
	}
	name, ok := literalText(first, source)
	if !ok || !model.ValidName(name) {
		return "", nil, false
	}
	return name, first, true
}

func (e *SyntaxExtractor) matchesCallee(fn *sitter.Node, source []byte) bool {
	switch fn.Type() {
	case "identifier":
		_, ok := e.wrappers[lang.NodeText(fn, source)]
		return ok
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return false
		}
		switch e.target.Kind {
		case model.RPC:
			return lang.NodeText(prop, source) == "rpc"
		case model.Function:
			if lang.NodeText(prop, source) != "invoke" {
				return false
			}
			obj := fn.ChildByFieldName("object")
			if obj == nil || obj.Type() != "member_expression" {
				return false
			}
			inner := obj.ChildByFieldName("property")
			return inner != nil && lang.NodeText(inner, source) == "functions"
		}
	}
	return false
}

func firstArgument(args *sitter.Node) *sitter.Node {
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		return child
	}
	return nil
}

// literalText unquotes a string literal or a template literal without
// substitutions.
func literalText(n *sitter.Node, source []byte) (string, bool) {
	switch n.Type() {
	case "string":
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
	default:
		return "", false
	}
	text := lang.NodeText(n, source)
	if len(text) < 2 {
		return "", false
	}
	return text[1 : len(text)-1], true
}
