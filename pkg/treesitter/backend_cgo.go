//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// cgoGrammars are the grammars linked into the binary.
var cgoGrammars = map[Language]func() *sitter.Language{
	C:   c.GetLanguage,
	Cpp: cpp.GetLanguage,
}

// cgoBackend parses with smacker/go-tree-sitter. Grammars are compiled in,
// so the backend itself holds no resources.
type cgoBackend struct {
	closed atomic.Bool
}

// NewCGOBackend creates the CGO backend.
func NewCGOBackend() (Backend, error) {
	return &cgoBackend{}, nil
}

func (b *cgoBackend) Name() string { return "cgo" }

func (b *cgoBackend) SupportsLanguage(lang Language) bool {
	_, ok := cgoGrammars[lang]
	return ok
}

func (b *cgoBackend) NewParser(lang Language) (Parser, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed{Backend: b.Name()}
	}
	grammar, ok := cgoGrammars[lang]
	if !ok {
		return nil, ErrLanguageNotSupported{Language: lang, Backend: b.Name()}
	}

	p := sitter.NewParser()
	p.SetLanguage(grammar())
	return &cgoParser{parser: p, lang: lang}, nil
}

func (b *cgoBackend) Close() error {
	b.closed.Store(true)
	return nil
}

// cgoParser owns a C parser; parser is nil once closed.
type cgoParser struct {
	parser *sitter.Parser
	lang   Language
}

func (p *cgoParser) Language() Language { return p.lang }

func (p *cgoParser) Parse(ctx context.Context, source []byte) (Tree, error) {
	if p.parser == nil {
		return nil, ErrParserClosed{}
	}
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", p.lang, err)
	}
	return &cgoTree{tree: tree, source: source}, nil
}

func (p *cgoParser) Close() error {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}

type cgoTree struct {
	tree   *sitter.Tree
	source []byte
}

func (t *cgoTree) Root() Node {
	if t.tree == nil {
		return nil
	}
	return wrapCGONode(t.tree.RootNode(), t.source)
}

func (t *cgoTree) Source() []byte { return t.source }

func (t *cgoTree) HasError() bool {
	if t.tree == nil {
		return false
	}
	root := t.tree.RootNode()
	return root != nil && root.HasError()
}

func (t *cgoTree) Close() error {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
	return nil
}

// cgoNode is a node together with the source its byte offsets refer to.
type cgoNode struct {
	n      *sitter.Node
	source []byte
}

func wrapCGONode(n *sitter.Node, source []byte) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return cgoNode{n: n, source: source}
}

func (n cgoNode) Kind() string { return n.n.Type() }

func (n cgoNode) Text() string { return n.n.Content(n.source) }

func (n cgoNode) Children() []Node {
	count := int(n.n.ChildCount())
	children := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if child := wrapCGONode(n.n.Child(i), n.source); child != nil {
			children = append(children, child)
		}
	}
	return children
}

func (n cgoNode) NamedChildren() []Node {
	count := int(n.n.NamedChildCount())
	children := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if child := wrapCGONode(n.n.NamedChild(i), n.source); child != nil {
			children = append(children, child)
		}
	}
	return children
}

func (n cgoNode) Broken() bool { return n.n.IsError() || n.n.IsMissing() }

func (n cgoNode) SExpr() string { return n.n.String() }
