// Package treesitter parses C and C++ sources with tree-sitter. It backs the
// syntax-aware include scanner, which ignores directives inside comments and
// string literals that a line scanner would pick up.
//
// Two backends exist: a CGO one (smacker/go-tree-sitter) and a CGO-free one
// running the grammars in WASM under wazero (malivvan/tree-sitter).
//
//	backend, err := treesitter.NewBackendFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	scanner := treesitter.NewIncludeScanner(backend)
//	directives, err := scanner.Scan("src/main.c")
//
// # Backend Selection
//
//	export POLYBUILD_TREESITTER_BACKEND=cgo    # CGO backend
//	export POLYBUILD_TREESITTER_BACKEND=wazero # WASM/wazero backend
//	export POLYBUILD_TREESITTER_BACKEND=auto   # CGO first, then wazero (default)
//
// # Thread Safety
//
// Backends are safe for concurrent use. Parsers are not; create one parser
// per goroutine from the same backend.
package treesitter

import "context"

// Language is a grammar a backend can parse.
type Language string

const (
	// C is the C grammar.
	C Language = "c"

	// Cpp is the C++ grammar. It also parses headers, since a header may be
	// included from either language.
	Cpp Language = "cpp"
)

// Languages returns every language a backend may support.
func Languages() []Language {
	return []Language{C, Cpp}
}

// Backend abstracts the tree-sitter implementation.
type Backend interface {
	// Name returns the backend identifier ("cgo" or "wazero").
	Name() string

	// SupportsLanguage reports whether the backend can parse lang.
	SupportsLanguage(lang Language) bool

	// NewParser creates a parser for lang.
	NewParser(lang Language) (Parser, error)

	// Close releases the backend. It must not be used afterwards.
	Close() error
}

// Parser turns source text into a syntax tree. A parser is bound to one
// language.
type Parser interface {
	Language() Language
	Parse(ctx context.Context, source []byte) (Tree, error)
	Close() error
}

// Tree is a parsed translation unit. Nodes keep a reference to the source
// the tree was parsed from.
type Tree interface {
	Root() Node
	Source() []byte
	HasError() bool
	Close() error
}

// Node is a syntax tree node.
type Node interface {
	// Kind returns the grammar symbol, e.g. "preproc_include".
	Kind() string

	// Text returns the source text the node spans.
	Text() string

	// Children returns every child, anonymous tokens included.
	Children() []Node

	// NamedChildren returns the children that are grammar symbols.
	NamedChildren() []Node

	// Broken reports an ERROR node or a token the parser had to insert.
	Broken() bool

	// SExpr returns the S-expression of the subtree.
	SExpr() string
}

// ErrLanguageNotSupported is returned when a backend cannot parse a
// language.
type ErrLanguageNotSupported struct {
	Language Language
	Backend  string
}

func (e ErrLanguageNotSupported) Error() string {
	return "language " + string(e.Language) + " is not supported by backend " + e.Backend
}

// ErrBackendClosed is returned when a backend is used after Close.
type ErrBackendClosed struct {
	Backend string
}

func (e ErrBackendClosed) Error() string {
	return "backend " + e.Backend + " has been closed"
}

// ErrParserClosed is returned when a parser is used after Close.
type ErrParserClosed struct{}

func (e ErrParserClosed) Error() string {
	return "parser has been closed"
}

// Walk visits n and its descendants in source order. Returning false from
// visit skips the node's subtree.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, visit)
	}
}

// Descendants returns every node of the given kind under n, in source
// order. Matching nodes are not searched further.
func Descendants(n Node, kind string) []Node {
	var found []Node
	Walk(n, func(node Node) bool {
		if node.Kind() == kind {
			found = append(found, node)
			return false
		}
		return true
	})
	return found
}

// HasErrors reports whether n or any node under it is broken.
func HasErrors(n Node) bool {
	broken := false
	Walk(n, func(node Node) bool {
		if broken {
			return false
		}
		broken = node.Broken()
		return !broken
	})
	return broken
}
