package generate

import (
	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/makefile"
)

// Overlays returns one conditional block per overlay of p, in declaration
// order.
//
// Blocks are evaluated by make at build time, top to bottom. Two overlays
// guarding the same VARIABLE=VALUE pair are both emitted; the later block's
// bindings win because its assignments run last.
func Overlays(p *config.Project) []makefile.Node {
	nodes := make([]makefile.Node, 0, len(p.Overlays))
	for _, ov := range p.Overlays {
		nodes = append(nodes, Overlay(ov))
	}
	return nodes
}

// Overlay renders a single overlay as `ifeq ($(VARIABLE),VALUE)`. The
// block rebinds the full toolchain view, so it does not depend on any other
// overlay having run.
func Overlay(ov config.Overlay) makefile.Conditional {
	body := toolchainVariables(ov.Paths, ov.Options)
	if ov.StaticLibrariesSet {
		body = append(body, staticLibraries(ov.Options.StaticLibraries))
	}
	if ov.Paths.Install != "" {
		body = append(body, makefile.Assign{Name: varInstallPath, Value: ov.Paths.Install})
	}
	return makefile.Conditional{
		Left:  "$(" + ov.Variable + ")",
		Right: ov.Value,
		Body:  body,
	}
}
