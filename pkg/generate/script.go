package generate

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/makefile"
	"github.com/polybuild/polybuild/pkg/source"
)

// Header is the first line of every generated file.
const Header = "This file was auto-generated by polybuild"

// Make variable names shared by the base block, the platform block and
// overlays.
const (
	varCCompiler    = "c_compiler"
	varCppCompiler  = "cpp_compiler"
	varCFlags       = "c_compilation_flags"
	varCppFlags     = "cpp_compilation_flags"
	varLinkFlags    = "link_time_flags"
	varLibraries    = "libraries"
	varStaticLibs   = "static_libraries"
	varInstallPath  = "prefix"
	varOutExtension = "out_ext"
	varObjExtension = "obj_ext"
)

// Script builds the rule script for p from its planned units.
//
// The script contains, in order: the platform flag block, the base
// toolchain variables, one conditional block per overlay, the all target,
// one compile rule per unit, the link rule, clean, and install when an
// install path is configured.
func Script(p *config.Project, units []Unit) *makefile.File {
	f := &makefile.File{}
	f.Add(makefile.Comment{Text: Header}, makefile.Blank{})

	f.Add(platformVariables(p.Options.Shared)...)
	f.Add(makefile.Blank{})
	f.Add(baseVariables(p)...)

	for _, block := range Overlays(p) {
		f.Add(makefile.Blank{}, block)
	}

	output := outputTarget(p)
	f.Add(
		makefile.Blank{},
		makefile.Rule{Target: "all", Prereqs: []string{output}},
		makefile.Phony{Targets: []string{"all"}},
	)

	artifactDir := filepath.ToSlash(p.Paths.Artifact)
	objects := make([]string, 0, len(units))
	hasCpp := false
	for _, u := range units {
		object := objectTarget(artifactDir, u.Object)
		objects = append(objects, object)
		if u.Source.Kind == source.Cpp {
			hasCpp = true
		}
		f.Add(makefile.Blank{}, compileRule(u, object, artifactDir))
	}

	f.Add(makefile.Blank{}, linkRule(p, output, objects, hasCpp))
	f.Add(makefile.Blank{}, cleanRule(p, output, artifactDir), makefile.Phony{Targets: []string{"clean"}})

	if p.HasInstall() {
		f.Add(makefile.Blank{}, installRule(output), makefile.Phony{Targets: []string{"install"}})
	}
	return f
}

// platformVariables binds flag spellings for POSIX compilers and rebinds
// them for MSVC when make runs on Windows.
func platformVariables(shared bool) []makefile.Node {
	nodes := []makefile.Node{
		makefile.Assign{Name: "include_path_flag", Value: "-I"},
		makefile.Assign{Name: "library_path_flag", Value: "-L"},
		makefile.Assign{Name: "obj_path_flag", Value: "-o"},
		makefile.Assign{Name: "out_path_flag", Value: "-o"},
		makefile.Assign{Name: "library_flag", Value: "-l"},
		makefile.Assign{Name: "static_flag", Value: "-static"},
		makefile.Assign{Name: "shared_flag", Value: "-shared -fPIC"},
		makefile.Assign{Name: "compile_only_flag", Value: "-c"},
		makefile.Assign{Name: varObjExtension, Value: ".o"},
	}
	if shared {
		nodes = append(nodes, makefile.Assign{Name: varOutExtension, Value: ".so"})
	}

	windowsOut := ".exe"
	if shared {
		windowsOut = ".dll"
	}
	nodes = append(nodes, makefile.Conditional{
		Left:  "$(OS)",
		Right: "Windows_NT",
		Body: []makefile.Node{
			makefile.Assign{Name: "include_path_flag", Value: "/I"},
			makefile.Assign{Name: "library_path_flag", Value: "/LIBPATH:"},
			makefile.Assign{Name: "obj_path_flag", Value: "/Fo:"},
			makefile.Assign{Name: "out_path_flag", Value: "/Fe:"},
			makefile.Assign{Name: "library_flag"},
			makefile.Assign{Name: "dynamic_flag", Value: "/MD"},
			makefile.Assign{Name: "static_flag", Value: "/MT"},
			makefile.Assign{Name: "shared_flag", Value: "/LD"},
			makefile.Assign{Name: "compile_only_flag", Value: "/c"},
			makefile.Assign{Name: "link_flag", Value: "/link"},
			makefile.Assign{Name: "pkg_config_syntax", Value: "--msvc-syntax"},
			makefile.Assign{Name: varObjExtension, Value: ".obj"},
			makefile.Assign{Name: varOutExtension, Value: windowsOut},
		},
	})
	return nodes
}

// baseVariables binds the toolchain variables from the base options.
func baseVariables(p *config.Project) []makefile.Node {
	nodes := toolchainVariables(p.Paths, p.Options)
	if len(p.Options.StaticLibraries) > 0 {
		nodes = append(nodes, staticLibraries(p.Options.StaticLibraries))
	}
	if p.Paths.Install != "" {
		nodes = append(nodes, makefile.Assign{Name: varInstallPath, Value: p.Paths.Install})
	}
	return nodes
}

// toolchainVariables binds compilers, flags and libraries. Base and overlay
// blocks share it so the same variables are always rebound together.
func toolchainVariables(paths config.Paths, opts config.Options) []makefile.Node {
	return []makefile.Node{
		makefile.Assign{Name: varCCompiler, Value: opts.CCompiler},
		makefile.Assign{Name: varCppCompiler, Value: opts.CppCompiler},
		makefile.Assign{Name: varCFlags, Value: compilationFlags(opts.CFlags, paths.Include, opts)},
		makefile.Assign{Name: varCppFlags, Value: compilationFlags(opts.CppFlags, paths.Include, opts)},
		makefile.Assign{Name: varLinkFlags, Value: linkFlags(opts.LinkFlags, paths.Library)},
		makefile.Assign{Name: varLibraries, Value: libraries(opts)},
	}
}

// compilationFlags appends include paths and the linkage flags to flags.
// Shared and static are applied independently: a shared static build gets
// both the shared and the static flag.
func compilationFlags(flags string, includes []string, opts config.Options) string {
	parts := []string{flags}
	for _, dir := range includes {
		parts = append(parts, "$(include_path_flag)"+filepath.ToSlash(dir))
	}
	if opts.Shared {
		parts = append(parts, "$(shared_flag)")
	}
	if opts.Static {
		parts = append(parts, "$(static_flag)")
	} else {
		parts = append(parts, "$(dynamic_flag)")
	}
	if len(opts.PkgConfigLibraries) > 0 {
		parts = append(parts, pkgConfig("--cflags", opts.PkgConfigLibraries))
	}
	return joinNonEmpty(parts)
}

func linkFlags(flags string, libraryPaths []string) string {
	parts := []string{flags}
	for _, dir := range libraryPaths {
		parts = append(parts, "$(library_path_flag)"+filepath.ToSlash(dir))
	}
	return joinNonEmpty(parts)
}

func libraries(opts config.Options) string {
	parts := make([]string, 0, len(opts.Libraries)+1)
	for _, lib := range opts.Libraries {
		parts = append(parts, "$(library_flag)"+lib)
	}
	if len(opts.PkgConfigLibraries) > 0 {
		parts = append(parts, pkgConfig("--libs", opts.PkgConfigLibraries))
	}
	return joinNonEmpty(parts)
}

func staticLibraries(libs []string) makefile.Assign {
	slashed := make([]string, len(libs))
	for i, lib := range libs {
		slashed[i] = filepath.ToSlash(lib)
	}
	return makefile.Assign{Name: varStaticLibs, Value: joinNonEmpty(slashed)}
}

// pkgConfig defers package lookup to build time with a shell substitution.
func pkgConfig(mode string, packages []string) string {
	return "`pkg-config $(pkg_config_syntax) " + mode + " " + strings.Join(packages, " ") + "`"
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func outputTarget(p *config.Project) string {
	return filepath.ToSlash(p.Paths.Output) + "$(" + varOutExtension + ")"
}

func objectTarget(artifactDir, name string) string {
	return path.Join(artifactDir, name) + "$(" + varObjExtension + ")"
}

// compileRule builds one object from its source. The source is the first
// prerequisite ($<) and every header of its closure follows.
func compileRule(u Unit, object, artifactDir string) makefile.Rule {
	prereqs := make([]string, 0, len(u.Headers)+1)
	prereqs = append(prereqs, filepath.ToSlash(u.Source.Path))
	for _, h := range u.Headers {
		prereqs = append(prereqs, filepath.ToSlash(h))
	}

	compiler, flags := varCCompiler, varCFlags
	if u.Source.Kind == source.Cpp {
		compiler, flags = varCppCompiler, varCppFlags
	}

	return makefile.Rule{
		Target:  object,
		Prereqs: prereqs,
		Recipe: []string{
			makefile.Echo("Compiling $@ from $<..."),
			makefile.Silent("mkdir -p " + artifactDir),
			makefile.Silent(`"$(` + compiler + `)" $(compile_only_flag) $< $(` + flags + `) $(obj_path_flag)$@`),
			makefile.Echo("Finished compiling $@ from $<!"),
		},
	}
}

// linkRule links every object plus the static libraries. The C++ compiler
// drives the link when any C++ source took part.
func linkRule(p *config.Project, output string, objects []string, hasCpp bool) makefile.Rule {
	prereqs := append(append([]string{}, objects...), "$("+varStaticLibs+")")

	recipe := []string{makefile.Echo("Building $@...")}
	if dir := path.Dir(filepath.ToSlash(p.Paths.Output)); dir != "." && dir != "/" {
		recipe = append(recipe, makefile.Silent("mkdir -p "+dir))
	}

	compiler, flags := varCCompiler, varCFlags
	if hasCpp {
		compiler, flags = varCppCompiler, varCppFlags
	}
	recipe = append(recipe,
		makefile.Silent(`"$(`+compiler+`)" $^ $(`+flags+`) $(out_path_flag)$@ $(link_flag) $(link_time_flags) $(libraries)`),
		makefile.Echo("Finished building $@!"),
	)

	return makefile.Rule{Target: output, Prereqs: prereqs, Recipe: recipe}
}

// cleanRule runs the clean preludes, then removes the output and the
// artifact directory.
func cleanRule(p *config.Project, output, artifactDir string) makefile.Rule {
	var recipe []string
	for _, prelude := range p.Options.CleanPreludes {
		recipe = append(recipe,
			makefile.Echo("Executing clean prelude: "+prelude),
			makefile.Silent(prelude),
		)
	}
	recipe = append(recipe,
		makefile.Echo("Deleting "+output+" and "+artifactDir+"..."),
		makefile.Silent("rm -rf "+output+" "+artifactDir),
		makefile.Echo("Finished deleting "+output+" and "+artifactDir+"!"),
	)
	return makefile.Rule{Target: "clean", Recipe: recipe}
}

func installRule(output string) makefile.Rule {
	return makefile.Rule{
		Target: "install",
		Recipe: []string{
			makefile.Echo("Copying " + output + " to $(prefix)..."),
			makefile.Silent("cp " + output + " $(prefix)"),
			makefile.Echo("Finished copying " + output + " to $(prefix)!"),
		},
	}
}
