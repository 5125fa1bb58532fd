// Package include discovers the headers a C or C++ translation unit
// depends on.
//
// Directive parsing is line oriented and pure: ParseDirective classifies a
// single line and never touches the filesystem. Resolution (see Resolver)
// maps the parsed references onto concrete files and walks them
// transitively.
package include

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

// Kind classifies a parsed line.
type Kind int

const (
	// NoMatch means the line is not an include directive.
	NoMatch Kind = iota
	// Angled is an `#include <path>` directive.
	Angled
	// Quoted is an `#include "path"` directive.
	Quoted
)

func (k Kind) String() string {
	switch k {
	case Angled:
		return "angled"
	case Quoted:
		return "quoted"
	default:
		return "none"
	}
}

// Directive is the result of parsing one line: the raw header reference and
// the syntax it was written in. Path is empty when Kind is NoMatch.
type Directive struct {
	Kind Kind
	Path string
}

func (d Directive) String() string {
	switch d.Kind {
	case Angled:
		return "<" + d.Path + ">"
	case Quoted:
		return `"` + d.Path + `"`
	default:
		return ""
	}
}

var (
	angledPattern = regexp.MustCompile(`^\s*#\s*include\s*<(.+?)>.*$`)
	quotedPattern = regexp.MustCompile(`^\s*#\s*include\s*"(.+?)".*$`)
)

// ParseDirective classifies a single source line. The angled form is tried
// first, so a line matches at most one form.
func ParseDirective(line string) Directive {
	if m := angledPattern.FindStringSubmatch(line); m != nil {
		return Directive{Kind: Angled, Path: m[1]}
	}
	if m := quotedPattern.FindStringSubmatch(line); m != nil {
		return Directive{Kind: Quoted, Path: m[1]}
	}
	return Directive{Kind: NoMatch}
}

// Scanner extracts the include directives of one file, in source order.
type Scanner interface {
	Scan(path string) ([]Directive, error)
}

// LineScanner reads a file line by line and applies ParseDirective to each
// line. It is the default Scanner.
type LineScanner struct{}

// Scan implements Scanner. The file is closed before Scan returns.
func (LineScanner) Scan(path string) ([]Directive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var directives []Directive
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if d := ParseDirective(sc.Text()); d.Kind != NoMatch {
			directives = append(directives, d)
		}
	}
	if err := sc.Err(); err != nil {
		return directives, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return directives, nil
}
