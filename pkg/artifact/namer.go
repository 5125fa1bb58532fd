// Package artifact allocates object artifact names.
package artifact

import "strconv"

// Namer hands out object names of the form {stem}_{n}. It remembers every
// name it has allocated, so two sources with the same stem in different
// directories never share an artifact. Suffixes depend on call order.
//
// A Namer belongs to a single generation run and is not safe for
// concurrent use.
type Namer struct {
	allocated map[string]struct{}
}

// NewNamer returns a Namer with no names allocated.
func NewNamer() *Namer {
	return &Namer{allocated: make(map[string]struct{})}
}

// Allocate claims the first free name for stem, trying suffix 0, 1, 2 and
// so on.
func (n *Namer) Allocate(stem string) string {
	for suffix := 0; ; suffix++ {
		name := stem + "_" + strconv.Itoa(suffix)
		if _, taken := n.allocated[name]; taken {
			continue
		}
		n.allocated[name] = struct{}{}
		return name
	}
}

// Len returns the number of names allocated so far.
func (n *Namer) Len() int {
	return len(n.allocated)
}
