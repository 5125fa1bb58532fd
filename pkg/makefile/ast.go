// Package makefile models the subset of GNU make syntax polybuild emits and
// renders it to text.
//
// A File is an ordered list of nodes. Nodes are values; once appended they
// are not modified, so a rendered File is a pure function of its nodes.
package makefile

import "strings"

// Node is the interface for all emitted statements.
type Node interface {
	node()
}

// Comment is a `# text` line.
type Comment struct {
	Text string
}

// Blank is an empty separator line.
type Blank struct{}

// Assign is an immediate assignment: `Name := Value`. An empty Value
// renders as `Name :=`.
type Assign struct {
	Name  string
	Value string
}

// Conditional is an `ifeq (Left,Right)` block. Body nodes are rendered
// indented by one tab.
type Conditional struct {
	Left  string
	Right string
	Body  []Node
}

// Ifndef is an `ifndef Name` block, rendered like Conditional.
type Ifndef struct {
	Name string
	Body []Node
}

// Export marks variables for export to recipe environments.
type Export struct {
	Names []string
}

// Rule is a build rule: `Target: Prereqs...` followed by recipe lines.
type Rule struct {
	Target  string
	Prereqs []string
	Recipe  []string
}

// Phony declares targets that are not files: `.PHONY: Targets...`.
type Phony struct {
	Targets []string
}

func (Comment) node()     {}
func (Blank) node()       {}
func (Assign) node()      {}
func (Conditional) node() {}
func (Ifndef) node()      {}
func (Export) node()      {}
func (Rule) node()        {}
func (Phony) node()       {}

// File is a complete rule script.
type File struct {
	Nodes []Node
}

// Add appends nodes to the file.
func (f *File) Add(nodes ...Node) {
	f.Nodes = append(f.Nodes, nodes...)
}

// Rules returns the top-level rules in emission order.
func (f *File) Rules() []Rule {
	var rules []Rule
	for _, n := range f.Nodes {
		if r, ok := n.(Rule); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

// Rule returns the rule for target, if one exists.
func (f *File) Rule(target string) (Rule, bool) {
	for _, r := range f.Rules() {
		if r.Target == target {
			return r, true
		}
	}
	return Rule{}, false
}

// Conditionals returns the top-level conditional blocks in emission order.
func (f *File) Conditionals() []Conditional {
	var conds []Conditional
	for _, n := range f.Nodes {
		if c, ok := n.(Conditional); ok {
			conds = append(conds, c)
		}
	}
	return conds
}

// String renders the file.
func (f *File) String() string {
	var sb strings.Builder
	_, _ = f.WriteTo(&sb)
	return sb.String()
}
