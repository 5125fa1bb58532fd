package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/makefile"
	"github.com/polybuild/polybuild/pkg/source"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newProject(sources ...string) *config.Project {
	return &config.Project{
		Paths: config.Paths{
			Output:   "bin/app",
			Source:   sources,
			Artifact: "build",
		},
		Options: config.NewOptions(),
	}
}

func generate(t *testing.T, root string, p *config.Project) *Result {
	t.Helper()
	g := &Generator{Root: root}
	result, err := g.Generate(p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return result
}

func render(f *makefile.File) string {
	return string(Render(f))
}

func findAssign(nodes []makefile.Node, name string) (makefile.Assign, bool) {
	for _, n := range nodes {
		if a, ok := n.(makefile.Assign); ok && a.Name == name {
			return a, true
		}
	}
	return makefile.Assign{}, false
}

func TestGenerate_RuleCount(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.c":        "",
		"src/b.cpp":      "",
		"src/c.cc":       "",
		"src/d.h":        "",
		"src/notes":      "",
		"lib/e.cxx":      "",
		"lib/nested/f.c": "",
	})

	tests := []struct {
		name    string
		install string
		want    int
	}{
		// all + 4 compile rules + link + clean
		{"without install", "", 7},
		{"with install", "/usr/local/bin", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject("src", "lib")
			p.Paths.Install = tt.install

			result := generate(t, root, p)
			if got := len(result.Script.Rules()); got != tt.want {
				t.Errorf("len(Rules()) = %d, want %d", got, tt.want)
			}
			if got := len(result.Units); got != 4 {
				t.Errorf("len(Units) = %d, want 4", got)
			}
		})
	}
}

func TestGenerate_SameStemInTwoDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.c":     `#include "x.h"` + "\n",
		"x.h":     "",
		"sub/a.c": `#include "../x.h"` + "\n",
	})

	result := generate(t, root, newProject(".", "sub"))

	first, ok := result.Script.Rule("build/a_0$(obj_ext)")
	if !ok {
		t.Fatal("missing rule for build/a_0$(obj_ext)")
	}
	if diff := cmp.Diff([]string{"a.c", "x.h"}, first.Prereqs); diff != "" {
		t.Errorf("a_0 prereqs mismatch (-want +got):\n%s", diff)
	}

	second, ok := result.Script.Rule("build/a_1$(obj_ext)")
	if !ok {
		t.Fatal("missing rule for build/a_1$(obj_ext)")
	}
	if diff := cmp.Diff([]string{"sub/a.c", "x.h"}, second.Prereqs); diff != "" {
		t.Errorf("a_1 prereqs mismatch (-want +got):\n%s", diff)
	}

	link, ok := result.Script.Rule("bin/app$(out_ext)")
	if !ok {
		t.Fatal("missing link rule")
	}
	want := []string{"build/a_0$(obj_ext)", "build/a_1$(obj_ext)", "$(static_libraries)"}
	if diff := cmp.Diff(want, link.Prereqs); diff != "" {
		t.Errorf("link prereqs mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/main.cpp":     "#include \"util.h\"\n#include <vector>\n",
		"src/util.cpp":     "#include \"util.h\"\n",
		"src/util.h":       "#include <common.h>\n",
		"include/common.h": "",
	})

	p := newProject("src")
	p.Paths.Include = []string{"include"}
	p.Options.Preludes = []string{"./configure"}
	p.Overlays = []config.Overlay{{Variable: "MODE", Value: "debug", Paths: p.Paths, Options: p.Options}}

	first := generate(t, root, p)
	second := generate(t, root, p)

	if diff := cmp.Diff(render(first.Script), render(second.Script)); diff != "" {
		t.Errorf("script differs between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(render(first.Wrapper), render(second.Wrapper)); diff != "" {
		t.Errorf("wrapper differs between runs (-first +second):\n%s", diff)
	}
}

func TestGenerate_EmptySourceDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	result := generate(t, root, newProject("src"))
	if len(result.Units) != 0 {
		t.Errorf("len(Units) = %d, want 0", len(result.Units))
	}
	link, ok := result.Script.Rule("bin/app$(out_ext)")
	if !ok {
		t.Fatal("missing link rule")
	}
	if diff := cmp.Diff([]string{"$(static_libraries)"}, link.Prereqs); diff != "" {
		t.Errorf("link prereqs mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_MissingSourceDirectory(t *testing.T) {
	g := &Generator{Root: t.TempDir()}
	if _, err := g.Generate(newProject("nope")); err == nil {
		t.Error("Generate() error = nil, want error for a missing source directory")
	}
}

func TestScript_CompileRecipe(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/main.c":  "",
		"src/util.cc": "",
	})

	result := generate(t, root, newProject("src"))

	c, _ := result.Script.Rule("build/main_0$(obj_ext)")
	if !strings.Contains(strings.Join(c.Recipe, "\n"), `@"$(c_compiler)" $(compile_only_flag) $< $(c_compilation_flags) $(obj_path_flag)$@`) {
		t.Errorf("C recipe does not use the C compiler:\n%s", strings.Join(c.Recipe, "\n"))
	}

	cpp, _ := result.Script.Rule("build/util_0$(obj_ext)")
	if !strings.Contains(strings.Join(cpp.Recipe, "\n"), `@"$(cpp_compiler)" $(compile_only_flag) $< $(cpp_compilation_flags)`) {
		t.Errorf("C++ recipe does not use the C++ compiler:\n%s", strings.Join(cpp.Recipe, "\n"))
	}

	for _, line := range append(c.Recipe, cpp.Recipe...) {
		if !strings.HasPrefix(line, "@") {
			t.Errorf("recipe line %q is not silent", line)
		}
	}

	link, _ := result.Script.Rule("bin/app$(out_ext)")
	if !strings.Contains(strings.Join(link.Recipe, "\n"), `@"$(cpp_compiler)" $^`) {
		t.Errorf("link with a C++ unit does not use the C++ compiler:\n%s", strings.Join(link.Recipe, "\n"))
	}
	if !strings.Contains(strings.Join(link.Recipe, "\n"), "@mkdir -p bin") {
		t.Errorf("link recipe does not create the output directory:\n%s", strings.Join(link.Recipe, "\n"))
	}
}

func TestScript_COnlyLinksWithCCompiler(t *testing.T) {
	p := newProject("src")
	units := []Unit{{Source: source.File{Path: "src/main.c", Kind: source.C}, Object: "main_0"}}

	link, ok := Script(p, units).Rule("bin/app$(out_ext)")
	if !ok {
		t.Fatal("missing link rule")
	}
	if !strings.Contains(strings.Join(link.Recipe, "\n"), `@"$(c_compiler)" $^ $(c_compilation_flags)`) {
		t.Errorf("link recipe = %q, want the C compiler", link.Recipe)
	}
}

func TestScript_SharedAndStaticBothApplied(t *testing.T) {
	p := newProject("src")
	p.Options.Shared = true
	p.Options.Static = true
	p.Paths.Include = []string{"include", "third_party/include"}

	f := Script(p, nil)

	flags, ok := findAssign(f.Nodes, "c_compilation_flags")
	if !ok {
		t.Fatal("c_compilation_flags not bound")
	}
	want := "$(CFLAGS) $(include_path_flag)include $(include_path_flag)third_party/include $(shared_flag) $(static_flag)"
	if flags.Value != want {
		t.Errorf("c_compilation_flags = %q, want %q", flags.Value, want)
	}

	ext, ok := findAssign(f.Nodes, "out_ext")
	if !ok || ext.Value != ".so" {
		t.Errorf("out_ext = %q, want .so", ext.Value)
	}
}

func TestScript_DynamicByDefault(t *testing.T) {
	f := Script(newProject("src"), nil)

	flags, _ := findAssign(f.Nodes, "cpp_compilation_flags")
	if flags.Value != "$(CXXFLAGS) $(dynamic_flag)" {
		t.Errorf("cpp_compilation_flags = %q", flags.Value)
	}
	if _, ok := findAssign(f.Nodes, "out_ext"); ok {
		t.Error("out_ext bound outside the Windows block for a non-shared build")
	}
	if _, ok := findAssign(f.Nodes, "static_libraries"); ok {
		t.Error("static_libraries bound without any static library")
	}
	if _, ok := findAssign(f.Nodes, "prefix"); ok {
		t.Error("prefix bound without an install path")
	}
}

func TestScript_WindowsBlock(t *testing.T) {
	tests := []struct {
		shared bool
		want   string
	}{
		{false, ".exe"},
		{true, ".dll"},
	}

	for _, tt := range tests {
		p := newProject("src")
		p.Options.Shared = tt.shared

		var windows makefile.Conditional
		for _, c := range Script(p, nil).Conditionals() {
			if c.Left == "$(OS)" && c.Right == "Windows_NT" {
				windows = c
			}
		}
		ext, ok := findAssign(windows.Body, "out_ext")
		if !ok || ext.Value != tt.want {
			t.Errorf("shared=%v: Windows out_ext = %q, want %q", tt.shared, ext.Value, tt.want)
		}
	}
}

func TestScript_Libraries(t *testing.T) {
	p := newProject("src")
	p.Paths.Library = []string{"lib", "vendor/lib"}
	p.Options.Libraries = []string{"m", "pthread"}
	p.Options.StaticLibraries = []string{"vendor/libz.a"}
	p.Options.PkgConfigLibraries = []string{"sdl2", "zlib"}

	f := Script(p, nil)

	tests := []struct {
		name string
		want string
	}{
		{"link_time_flags", "$(LDFLAGS) $(library_path_flag)lib $(library_path_flag)vendor/lib"},
		{"libraries", "$(library_flag)m $(library_flag)pthread `pkg-config $(pkg_config_syntax) --libs sdl2 zlib`"},
		{"static_libraries", "vendor/libz.a"},
		{"c_compilation_flags", "$(CFLAGS) $(dynamic_flag) `pkg-config $(pkg_config_syntax) --cflags sdl2 zlib`"},
	}
	for _, tt := range tests {
		got, ok := findAssign(f.Nodes, tt.name)
		if !ok {
			t.Errorf("%s not bound", tt.name)
			continue
		}
		if got.Value != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, got.Value, tt.want)
		}
	}
}

func TestScript_CleanAndInstall(t *testing.T) {
	p := newProject("src")
	p.Paths.Install = "/usr/local/bin"
	p.Options.CleanPreludes = []string{"rm -f generated.h"}

	f := Script(p, nil)

	clean, ok := f.Rule("clean")
	if !ok {
		t.Fatal("missing clean rule")
	}
	if clean.Recipe[1] != "@rm -f generated.h" {
		t.Errorf("clean prelude not run first: %q", clean.Recipe)
	}
	if !strings.Contains(strings.Join(clean.Recipe, "\n"), "@rm -rf bin/app$(out_ext) build") {
		t.Errorf("clean does not remove output and artifacts: %q", clean.Recipe)
	}

	install, ok := f.Rule("install")
	if !ok {
		t.Fatal("missing install rule")
	}
	if !strings.Contains(strings.Join(install.Recipe, "\n"), "@cp bin/app$(out_ext) $(prefix)") {
		t.Errorf("install recipe = %q", install.Recipe)
	}
	if prefix, _ := findAssign(f.Nodes, "prefix"); prefix.Value != "/usr/local/bin" {
		t.Errorf("prefix = %q, want /usr/local/bin", prefix.Value)
	}
}

func TestScript_OverlaysAfterBaseBeforeRules(t *testing.T) {
	p := newProject("src")
	p.Overlays = []config.Overlay{{Variable: "MODE", Value: "release", Paths: p.Paths, Options: p.Options}}

	text := render(Script(p, nil))
	base := strings.Index(text, "libraries :=")
	overlay := strings.Index(text, "ifeq ($(MODE),release)")
	all := strings.Index(text, "all: bin/app$(out_ext)")

	if base < 0 || overlay < 0 || all < 0 {
		t.Fatalf("missing section in script:\n%s", text)
	}
	if !(base < overlay && overlay < all) {
		t.Errorf("sections out of order: base=%d overlay=%d all=%d", base, overlay, all)
	}
}

func TestScript_OverlayIndependence(t *testing.T) {
	p := newProject("src")
	p.Options.Libraries = []string{"m"}

	debug := p.Options
	debug.CFlags = "-g -O0"
	withOverlay := *p
	withOverlay.Overlays = []config.Overlay{{Variable: "MODE", Value: "debug", Paths: p.Paths, Options: debug}}

	block := render(&makefile.File{Nodes: []makefile.Node{Overlay(withOverlay.Overlays[0])}})
	got := strings.Replace(render(Script(&withOverlay, nil)), "\n"+block, "", 1)

	if diff := cmp.Diff(render(Script(p, nil)), got); diff != "" {
		t.Errorf("base portion changed by overlay (-without +with):\n%s", diff)
	}
}

func TestOverlays_DeclarationOrderAndDuplicates(t *testing.T) {
	p := newProject("src")
	first := p.Options
	first.CCompiler = "gcc-12"
	second := p.Options
	second.CCompiler = "gcc-13"
	p.Overlays = []config.Overlay{
		{Variable: "TOOLCHAIN", Value: "gnu", Paths: p.Paths, Options: first},
		{Variable: "ARCH", Value: "arm64", Paths: p.Paths, Options: p.Options},
		{Variable: "TOOLCHAIN", Value: "gnu", Paths: p.Paths, Options: second},
	}

	nodes := Overlays(p)
	if len(nodes) != 3 {
		t.Fatalf("len(Overlays()) = %d, want 3", len(nodes))
	}

	var guards, compilers []string
	for _, n := range nodes {
		c := n.(makefile.Conditional)
		guards = append(guards, c.Left+"="+c.Right)
		cc, _ := findAssign(c.Body, "c_compiler")
		compilers = append(compilers, cc.Value)
	}
	if diff := cmp.Diff([]string{"$(TOOLCHAIN)=gnu", "$(ARCH)=arm64", "$(TOOLCHAIN)=gnu"}, guards); diff != "" {
		t.Errorf("guards mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gcc-12", "$(CC)", "gcc-13"}, compilers); diff != "" {
		t.Errorf("compilers mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlay_StaticLibrariesOnlyWhenSet(t *testing.T) {
	p := newProject("src")
	p.Options.StaticLibraries = []string{"libbase.a"}

	inherited := Overlay(config.Overlay{Variable: "V", Value: "x", Paths: p.Paths, Options: p.Options})
	if _, ok := findAssign(inherited.Body, "static_libraries"); ok {
		t.Error("static_libraries rebound by an overlay that did not set it")
	}

	opts := p.Options
	opts.StaticLibraries = []string{"libother.a"}
	set := Overlay(config.Overlay{Variable: "V", Value: "y", Paths: p.Paths, Options: opts, StaticLibrariesSet: true})
	got, ok := findAssign(set.Body, "static_libraries")
	if !ok || got.Value != "libother.a" {
		t.Errorf("static_libraries = %q, want libother.a", got.Value)
	}
}

func TestOverlay_FromConfig(t *testing.T) {
	p, err := config.Parse([]byte(`
[paths]
output = "app"
source = ["src"]
artifact = "obj"

[env.CC.clang.options]
c-compiler = "clang"
static = true
`))
	if err != nil {
		t.Fatal(err)
	}

	nodes := Overlays(p)
	if len(nodes) != 1 {
		t.Fatalf("len(Overlays()) = %d, want 1", len(nodes))
	}
	text := render(&makefile.File{Nodes: nodes})
	for _, want := range []string{
		"ifeq ($(CC),clang)\n",
		"\tc_compiler := clang\n",
		"\tc_compilation_flags := $(CFLAGS) $(static_flag)\n",
		"endif\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("overlay block missing %q:\n%s", want, text)
		}
	}
}

func TestWrapper(t *testing.T) {
	p := newProject("src")
	p.Options.Preludes = []string{"./bootstrap.sh", "make -C deps"}
	p.Paths.Install = "/opt/app"

	f := Wrapper(p, DefaultScriptName)

	all, ok := f.Rule("all")
	if !ok {
		t.Fatal("missing all rule")
	}
	if diff := cmp.Diff([]string{"prelude0", "prelude1"}, all.Prereqs); diff != "" {
		t.Errorf("all prereqs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{`@"$(MAKE)" -f .polybuild.mk --no-print-directory`}, all.Recipe); diff != "" {
		t.Errorf("all recipe mismatch (-want +got):\n%s", diff)
	}

	prelude, ok := f.Rule("prelude1")
	if !ok || prelude.Recipe[len(prelude.Recipe)-1] != "@make -C deps" {
		t.Errorf("prelude1 = %+v", prelude)
	}

	for _, target := range []string{"clean", "install"} {
		r, ok := f.Rule(target)
		if !ok {
			t.Errorf("missing %s rule", target)
			continue
		}
		if !strings.HasSuffix(r.Recipe[0], "--no-print-directory $@") {
			t.Errorf("%s does not delegate: %q", target, r.Recipe)
		}
	}

	text := render(f)
	for _, want := range []string{
		"ifndef OS\n\tOS := $(shell uname)\nendif\nexport OS\n",
		"\tMSYS_NO_PATHCONV := 1\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("wrapper missing %q:\n%s", want, text)
		}
	}
}

func TestWrapper_NoInstall(t *testing.T) {
	f := Wrapper(newProject("src"), "rules.mk")
	if _, ok := f.Rule("install"); ok {
		t.Error("install rule generated without an install path")
	}
	all, _ := f.Rule("all")
	if len(all.Prereqs) != 0 {
		t.Errorf("all prereqs = %q, want none", all.Prereqs)
	}
}

func TestResult_Write(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/main.c": ""})

	result := generate(t, root, newProject("src"))
	if err := result.Write(root, DefaultScriptName, DefaultWrapperName); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	script, err := os.ReadFile(filepath.Join(root, DefaultScriptName))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(render(result.Script), string(script)); diff != "" {
		t.Errorf("written script mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(string(script), "# "+Header+"\n") {
		t.Errorf("script does not start with the header")
	}

	if _, err := os.Stat(filepath.Join(root, DefaultWrapperName)); err != nil {
		t.Errorf("wrapper not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, DefaultScriptName+".tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
