package treesitter

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/malivvan/tree-sitter"
)

// wazeroBackend parses with malivvan/tree-sitter, which runs the grammars
// as WASM modules under wazero. It needs no CGO.
type wazeroBackend struct {
	ctx context.Context
	ts  sitter.TreeSitter

	mu       sync.RWMutex
	closed   bool
	grammars map[Language]sitter.Language
}

// NewWazeroBackend starts the WASM runtime and loads the C and C++
// grammars. A grammar that fails to load is reported by SupportsLanguage.
func NewWazeroBackend() (Backend, error) {
	ctx := context.Background()
	ts, err := sitter.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start wazero runtime: %w", err)
	}

	loaders := map[Language]func(context.Context) (sitter.Language, error){
		C:   ts.LanguageC,
		Cpp: ts.LanguageCpp,
	}
	grammars := make(map[Language]sitter.Language, len(loaders))
	for lang, load := range loaders {
		if grammar, err := load(ctx); err == nil {
			grammars[lang] = grammar
		}
	}
	return &wazeroBackend{ctx: ctx, ts: ts, grammars: grammars}, nil
}

func (b *wazeroBackend) Name() string { return "wazero" }

func (b *wazeroBackend) SupportsLanguage(lang Language) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.grammars[lang]
	return ok
}

func (b *wazeroBackend) NewParser(lang Language) (Parser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBackendClosed{Backend: b.Name()}
	}
	grammar, ok := b.grammars[lang]
	if !ok {
		return nil, ErrLanguageNotSupported{Language: lang, Backend: b.Name()}
	}

	p, err := b.ts.NewParser(b.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s parser: %w", lang, err)
	}
	if err := p.SetLanguage(b.ctx, grammar); err != nil {
		_ = p.Close(b.ctx)
		return nil, fmt.Errorf("failed to load %s grammar: %w", lang, err)
	}
	return &wazeroParser{ctx: b.ctx, parser: p, lang: lang}, nil
}

func (b *wazeroBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type wazeroParser struct {
	ctx    context.Context
	parser sitter.Parser
	lang   Language
	closed bool
}

func (p *wazeroParser) Language() Language { return p.lang }

func (p *wazeroParser) Parse(ctx context.Context, source []byte) (Tree, error) {
	if p.closed {
		return nil, ErrParserClosed{}
	}
	tree, err := p.parser.ParseString(ctx, string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", p.lang, err)
	}
	return &wazeroTree{ctx: ctx, tree: tree, source: source}, nil
}

func (p *wazeroParser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.parser.Close(p.ctx)
}

// wazeroTree is released with the runtime; Close has nothing to free.
type wazeroTree struct {
	ctx    context.Context
	tree   sitter.Tree
	source []byte
}

func (t *wazeroTree) Root() Node {
	root, err := t.tree.RootNode(t.ctx)
	if err != nil {
		return nil
	}
	return wazeroNode{ctx: t.ctx, n: root, source: t.source}
}

func (t *wazeroTree) Source() []byte { return t.source }

// HasError walks the tree; the WASM binding has no tree-level flag.
func (t *wazeroTree) HasError() bool { return HasErrors(t.Root()) }

func (t *wazeroTree) Close() error { return nil }

// wazeroNode is a node together with the source its byte offsets refer
// to. Binding errors read as empty values.
type wazeroNode struct {
	ctx    context.Context
	n      sitter.Node
	source []byte
}

func (n wazeroNode) Kind() string {
	kind, _ := n.n.Kind(n.ctx)
	return kind
}

func (n wazeroNode) Text() string {
	start, err := n.n.StartByte(n.ctx)
	if err != nil {
		return ""
	}
	end, err := n.n.EndByte(n.ctx)
	if err != nil || int(start) > int(end) || int(end) > len(n.source) {
		return ""
	}
	return string(n.source[start:end])
}

func (n wazeroNode) Children() []Node {
	count, err := n.n.ChildCount(n.ctx)
	if err != nil {
		return nil
	}
	children := make([]Node, 0, int(count))
	for i := uint64(0); i < uint64(count); i++ {
		if child, err := n.n.Child(n.ctx, i); err == nil {
			children = append(children, wazeroNode{ctx: n.ctx, n: child, source: n.source})
		}
	}
	return children
}

func (n wazeroNode) NamedChildren() []Node {
	count, err := n.n.NamedChildCount(n.ctx)
	if err != nil {
		return nil
	}
	children := make([]Node, 0, int(count))
	for i := uint64(0); i < uint64(count); i++ {
		if child, err := n.n.NamedChild(n.ctx, i); err == nil {
			children = append(children, wazeroNode{ctx: n.ctx, n: child, source: n.source})
		}
	}
	return children
}

// Broken only sees ERROR nodes: the binding does not expose missing tokens.
func (n wazeroNode) Broken() bool {
	broken, _ := n.n.IsError(n.ctx)
	return broken
}

func (n wazeroNode) SExpr() string {
	s, err := n.n.String(n.ctx)
	if err != nil {
		return "(error)"
	}
	return s
}
