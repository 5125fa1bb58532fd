package makefile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteTo renders the file to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	for _, n := range f.Nodes {
		writeNode(cw, n, "")
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

func writeNode(w *countingWriter, n Node, indent string) {
	switch n := n.(type) {
	case Comment:
		w.printf("%s# %s\n", indent, n.Text)
	case Blank:
		w.printf("\n")
	case Assign:
		if n.Value == "" {
			w.printf("%s%s :=\n", indent, n.Name)
		} else {
			w.printf("%s%s := %s\n", indent, n.Name, n.Value)
		}
	case Conditional:
		w.printf("%sifeq (%s,%s)\n", indent, n.Left, n.Right)
		for _, child := range n.Body {
			writeNode(w, child, indent+"\t")
		}
		w.printf("%sendif\n", indent)
	case Ifndef:
		w.printf("%sifndef %s\n", indent, n.Name)
		for _, child := range n.Body {
			writeNode(w, child, indent+"\t")
		}
		w.printf("%sendif\n", indent)
	case Export:
		w.printf("%sexport %s\n", indent, strings.Join(n.Names, " "))
	case Rule:
		w.printf("%s:", n.Target)
		if len(n.Prereqs) > 0 {
			w.printf(" %s", strings.Join(n.Prereqs, " "))
		}
		w.printf("\n")
		for _, line := range n.Recipe {
			w.printf("\t%s\n", line)
		}
	case Phony:
		w.printf(".PHONY: %s\n", strings.Join(n.Targets, " "))
	}
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	n, err := fmt.Fprintf(c.w, format, args...)
	c.n += int64(n)
	c.err = err
}
