package treesitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polybuild/polybuild/pkg/include"
)

// IncludeScanner extracts include directives from the syntax tree instead
// of matching lines, so text inside comments and string literals is never
// taken for a directive.
//
// IncludeScanner implements include.Scanner. It is safe for concurrent use:
// every Scan creates its own parser.
type IncludeScanner struct {
	Backend Backend
}

// NewIncludeScanner returns a scanner parsing with backend.
func NewIncludeScanner(backend Backend) *IncludeScanner {
	return &IncludeScanner{Backend: backend}
}

// Scan implements include.Scanner.
func (s *IncludeScanner) Scan(path string) ([]include.Directive, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return s.ScanSource(context.Background(), LanguageOf(path), source)
}

// ScanSource parses source as lang and returns its include directives in
// source order. Directives whose path is not a string or system header
// (computed includes) are skipped.
func (s *IncludeScanner) ScanSource(ctx context.Context, lang Language, source []byte) ([]include.Directive, error) {
	parser, err := s.Backend.NewParser(lang)
	if err != nil {
		return nil, err
	}
	defer func() { _ = parser.Close() }()

	tree, err := parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tree.Close() }()

	var directives []include.Directive
	for _, node := range Descendants(tree.Root(), "preproc_include") {
		if d, ok := directive(node); ok {
			directives = append(directives, d)
		}
	}
	return directives, nil
}

// directive reads the path operand of a preproc_include node.
func directive(node Node) (include.Directive, bool) {
	for _, child := range node.NamedChildren() {
		text := child.Text()
		switch child.Kind() {
		case "system_lib_string":
			if p := trimDelimiters(text, "<", ">"); p != "" {
				return include.Directive{Kind: include.Angled, Path: p}, true
			}
		case "string_literal":
			if p := trimDelimiters(text, `"`, `"`); p != "" {
				return include.Directive{Kind: include.Quoted, Path: p}, true
			}
		}
	}
	return include.Directive{}, false
}

func trimDelimiters(s, open, close string) string {
	if len(s) < len(open)+len(close) || !strings.HasPrefix(s, open) || !strings.HasSuffix(s, close) {
		return ""
	}
	return s[len(open) : len(s)-len(close)]
}

// LanguageOf picks the grammar for path. C sources use the C grammar;
// everything else, headers included, uses C++.
func LanguageOf(path string) Language {
	if filepath.Ext(path) == ".c" {
		return C
	}
	return Cpp
}
