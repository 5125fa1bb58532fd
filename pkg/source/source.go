// Package source finds the C and C++ translation units of a project.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the language family of a source file.
type Kind int

const (
	// None marks files that are not compiled.
	None Kind = iota
	// C is compiled with the C compiler.
	C
	// Cpp is compiled with the C++ compiler.
	Cpp
)

func (k Kind) String() string {
	switch k {
	case C:
		return "c"
	case Cpp:
		return "cpp"
	default:
		return "none"
	}
}

// Extensions maps file extensions to kinds. Headers are absent: they are
// never compiled on their own.
var Extensions = map[string]Kind{
	".c":   C,
	".cpp": Cpp,
	".cc":  Cpp,
	".cxx": Cpp,
}

// KindOf returns the kind for path based on its extension.
func KindOf(path string) Kind {
	return Extensions[filepath.Ext(path)]
}

// File is a discovered translation unit.
type File struct {
	Path string
	Kind Kind
}

// Stem returns the base name without its extension.
func (f File) Stem() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists the sources of each directory in dirs, in declared order.
// Directories are not descended into; entries within a directory are
// sorted by name. Paths are returned joined to the declared directory, not
// to root. A directory that cannot be read is an error.
func Discover(root string, dirs []string) ([]File, error) {
	var files []File
	for _, dir := range dirs {
		fsDir := dir
		if root != "" && !filepath.IsAbs(dir) {
			fsDir = filepath.Join(root, dir)
		}

		entries, err := os.ReadDir(fsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read source directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			kind := KindOf(entry.Name())
			if kind == None {
				continue
			}
			files = append(files, File{
				Path: filepath.Join(dir, entry.Name()),
				Kind: kind,
			})
		}
	}
	return files, nil
}
