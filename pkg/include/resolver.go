package include

import (
	"os"
	"path/filepath"

	"github.com/polybuild/polybuild/internal/log"
)

// Closure is the ordered, path-unique set of headers reachable from one
// source file. It is built once by Resolve and not modified afterwards.
type Closure []string

// Contains reports whether path is part of the closure.
func (c Closure) Contains(path string) bool {
	for _, p := range c {
		if p == path {
			return true
		}
	}
	return false
}

// Resolver computes include closures.
//
// A reference is first looked up next to the file that contains it. Only
// when no such file exists are the search paths consulted, and then every
// search path that holds the header contributes its own entry and its own
// scan. The same header name reachable through two search paths therefore
// appears twice, once per directory.
type Resolver struct {
	// Root anchors relative paths for filesystem checks. Emitted paths
	// stay relative. Empty means the working directory.
	Root string

	// SearchPaths are consulted in order for references that do not
	// resolve locally.
	SearchPaths []string

	// Scanner extracts directives; nil means LineScanner.
	Scanner Scanner
}

// frame is one file on the explicit depth-first stack: the concrete header
// paths it references, in order, and how many have been visited.
type frame struct {
	candidates []string
	next       int
}

// Resolve returns the include closure of source. It never fails: unreadable
// files contribute nothing and unresolved references are dropped.
//
// The walk uses an explicit stack and a visited set keyed by resolved path,
// so every distinct header is recorded and scanned at most once and include
// cycles terminate. The order matches a recursive depth-first scan where a
// header's own includes are listed right after it.
func (r *Resolver) Resolve(source string) Closure {
	logger := log.Component("include")

	visited := map[string]struct{}{filepath.Clean(source): {}}
	closure := Closure{}
	stack := []*frame{{candidates: r.candidates(source)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.candidates) {
			stack = stack[:len(stack)-1]
			continue
		}
		header := top.candidates[top.next]
		top.next++

		if _, seen := visited[header]; seen {
			continue
		}
		visited[header] = struct{}{}
		closure = append(closure, header)
		logger.Debug("header found", "source", source, "header", header, "depth", len(stack))

		stack = append(stack, &frame{candidates: r.candidates(header)})
	}

	log.Trace("include closure", "source", source, "headers", len(closure))
	return closure
}

// candidates scans path and maps each directive to the header files it
// names: the local file if it exists, otherwise every search path hit.
func (r *Resolver) candidates(path string) []string {
	scanner := r.Scanner
	if scanner == nil {
		scanner = LineScanner{}
	}

	directives, err := scanner.Scan(r.fsPath(path))
	if err != nil {
		log.Component("include").Debug("scan failed", "file", path, "error", err)
	}

	var out []string
	dir := filepath.Dir(path)
	for _, d := range directives {
		if d.Kind == NoMatch || d.Path == "" {
			continue
		}

		local := filepath.Join(dir, d.Path)
		if r.isRegularFile(local) {
			out = append(out, local)
			continue
		}

		for _, searchPath := range r.SearchPaths {
			candidate := filepath.Join(searchPath, d.Path)
			if r.isRegularFile(candidate) {
				out = append(out, candidate)
			}
		}
	}
	return out
}

func (r *Resolver) fsPath(path string) string {
	if r.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.Root, path)
}

func (r *Resolver) isRegularFile(path string) bool {
	info, err := os.Stat(r.fsPath(path))
	return err == nil && info.Mode().IsRegular()
}
