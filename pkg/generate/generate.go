// Package generate turns a project description into a make rule script.
//
// Generation is split in two. Plan touches the filesystem: it discovers
// sources, resolves their include closures and allocates artifact names.
// Script and Wrapper are pure: they turn a project and its planned units
// into makefile nodes. Neither half ever inspects the host platform; the
// script carries both the POSIX and the Windows variable bindings and make
// picks one when it runs.
package generate

import (
	"fmt"

	"github.com/polybuild/polybuild/internal/log"
	"github.com/polybuild/polybuild/pkg/artifact"
	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/include"
	"github.com/polybuild/polybuild/pkg/makefile"
	"github.com/polybuild/polybuild/pkg/source"
)

// DefaultScriptName is the rule script the wrapper delegates to.
const DefaultScriptName = ".polybuild.mk"

// DefaultWrapperName is the wrapper makefile.
const DefaultWrapperName = "Makefile"

// Unit is one translation unit with everything its compile rule needs.
type Unit struct {
	Source  source.File
	Object  string
	Headers include.Closure
}

// Result is the output of one generation run.
type Result struct {
	Script  *makefile.File
	Wrapper *makefile.File
	Units   []Unit
}

// Generator runs generation passes. The zero value generates relative to
// the working directory with the line scanner.
type Generator struct {
	// Root is the project directory paths are relative to.
	Root string

	// Scanner extracts include directives; nil means include.LineScanner.
	Scanner include.Scanner

	// ScriptName is the rule script file name used by the wrapper.
	ScriptName string
}

// Generate plans the project and renders both files.
func (g *Generator) Generate(p *config.Project) (*Result, error) {
	units, err := g.Plan(p)
	if err != nil {
		return nil, err
	}

	scriptName := g.ScriptName
	if scriptName == "" {
		scriptName = DefaultScriptName
	}

	result := &Result{
		Script:  Script(p, units),
		Wrapper: Wrapper(p, scriptName),
		Units:   units,
	}
	log.Trace("generated", "rules", len(result.Script.Rules()), "overlays", len(p.Overlays))
	return result, nil
}

// Plan discovers sources and computes each unit's object name and include
// closure. Every call uses a fresh artifact namer.
func (g *Generator) Plan(p *config.Project) ([]Unit, error) {
	logger := log.Component("generate")

	files, err := source.Discover(g.Root, p.Paths.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources: %w", err)
	}
	logger.Debug("sources discovered", "count", len(files))

	namer := artifact.NewNamer()
	resolver := &include.Resolver{
		Root:        g.Root,
		SearchPaths: p.Paths.Include,
		Scanner:     g.Scanner,
	}

	units := make([]Unit, 0, len(files))
	for _, f := range files {
		unit := Unit{
			Source:  f,
			Object:  namer.Allocate(f.Stem()),
			Headers: resolver.Resolve(f.Path),
		}
		logger.Debug("unit planned", "source", f.Path, "object", unit.Object, "headers", len(unit.Headers))
		units = append(units, unit)
	}
	return units, nil
}
