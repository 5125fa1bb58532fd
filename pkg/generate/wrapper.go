package generate

import (
	"strconv"

	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/makefile"
)

// Wrapper builds the entry makefile. It normalizes OS, points make at the
// MSVC toolchain on Windows, runs the preludes and delegates every target
// to the rule script.
func Wrapper(p *config.Project, scriptName string) *makefile.File {
	f := &makefile.File{}
	f.Add(makefile.Comment{Text: Header}, makefile.Blank{})

	f.Add(
		makefile.Ifndef{
			Name: "OS",
			Body: []makefile.Node{
				makefile.Assign{Name: "OS", Value: "$(shell uname)"},
			},
		},
		makefile.Export{Names: []string{"OS"}},
		makefile.Blank{},
		makefile.Conditional{
			Left:  "$(OS)",
			Right: "Windows_NT",
			Body: []makefile.Node{
				makefile.Assign{Name: "CC", Value: "cl"},
				makefile.Assign{Name: "CXX", Value: "cl"},
				makefile.Assign{Name: "CL", Value: "/nologo"},
				makefile.Assign{Name: "LINK", Value: "/nologo"},
				makefile.Assign{Name: "MSYS_NO_PATHCONV", Value: "1"},
				makefile.Export{Names: []string{"CC", "CXX", "CL", "LINK", "MSYS_NO_PATHCONV"}},
			},
		},
	)

	preludes := make([]string, len(p.Options.Preludes))
	for i := range p.Options.Preludes {
		preludes[i] = "prelude" + strconv.Itoa(i)
	}

	delegate := makefile.Silent(`"$(MAKE)" -f ` + scriptName + ` --no-print-directory`)
	f.Add(
		makefile.Blank{},
		makefile.Rule{Target: "all", Prereqs: preludes, Recipe: []string{delegate}},
	)

	for i, cmd := range p.Options.Preludes {
		f.Add(makefile.Blank{}, makefile.Rule{
			Target: preludes[i],
			Recipe: []string{
				makefile.Echo("Executing prelude: " + cmd),
				makefile.Silent(cmd),
			},
		})
	}

	phony := []string{"all", "clean"}
	targets := []string{"clean"}
	if p.HasInstall() {
		targets = append(targets, "install")
		phony = append(phony, "install")
	}
	for _, target := range targets {
		f.Add(makefile.Blank{}, makefile.Rule{
			Target: target,
			Recipe: []string{delegate + " $@"},
		})
	}

	f.Add(makefile.Blank{}, makefile.Phony{Targets: append(phony, preludes...)})
	return f
}
