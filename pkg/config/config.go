// Package config provides the typed project description for polybuild.
//
// A project file (Polybuild.toml) has three sections:
//  1. [paths]   where sources, headers, libraries and outputs live
//  2. [options] toolchain selection and flags
//  3. [env.<VARIABLE>.<VALUE>] overlays that rebind a subset of the above
//     when VARIABLE equals VALUE at build time
//
// Every optional key has a default. Compiler and flag defaults are make
// variable references ($(CC), $(CXXFLAGS), ...) rather than literal values,
// so the generated script defers to the toolchain environment.
package config

import "fmt"

// Default values for unset options.
const (
	DefaultCCompiler   = "$(CC)"
	DefaultCppCompiler = "$(CXX)"
	DefaultCFlags      = "$(CFLAGS)"
	DefaultCppFlags    = "$(CXXFLAGS)"
	DefaultLinkFlags   = "$(LDFLAGS)"
)

// Project is the resolved configuration of one project.
type Project struct {
	Paths    Paths
	Options  Options
	Overlays []Overlay
}

// Paths holds the [paths] section.
type Paths struct {
	// Output is the final artifact, without platform extension.
	Output string

	// Source lists directories scanned (non-recursively) for sources.
	Source []string

	// Include lists header search directories, in precedence order.
	Include []string

	// Library lists library search directories passed to the linker.
	Library []string

	// Artifact is the directory object files are written to.
	Artifact string

	// Install is the install destination. Empty means no install rule.
	Install string
}

// Options holds the [options] section with defaults applied.
type Options struct {
	CCompiler   string
	CppCompiler string
	CFlags      string
	CppFlags    string
	LinkFlags   string

	// Libraries are link library names (-l<name>).
	Libraries []string

	// StaticLibraries are literal archive paths added to the link inputs.
	StaticLibraries []string

	// PkgConfigLibraries are package names resolved by pkg-config when the
	// generated script runs.
	PkgConfigLibraries []string

	// Preludes run before a build; CleanPreludes run before clean.
	Preludes      []string
	CleanPreludes []string

	// Shared and Static are independent; both may be set.
	Shared bool
	Static bool
}

// Overlay rebinds toolchain variables when an external variable has a
// given value. Options and Paths are complete views: anything the overlay
// does not set is inherited from the base project.
type Overlay struct {
	Variable string
	Value    string

	Paths   Paths
	Options Options

	// StaticLibrariesSet reports whether the overlay set static-libraries
	// itself. Only then is the static library list rebound.
	StaticLibrariesSet bool
}

// Guard returns the overlay's condition in VARIABLE=VALUE form.
func (o Overlay) Guard() string {
	return o.Variable + "=" + o.Value
}

// NewOptions returns Options with built-in defaults.
func NewOptions() Options {
	return Options{
		CCompiler:   DefaultCCompiler,
		CppCompiler: DefaultCppCompiler,
		CFlags:      DefaultCFlags,
		CppFlags:    DefaultCppFlags,
		LinkFlags:   DefaultLinkFlags,
	}
}

// HasInstall reports whether an install rule should be generated.
func (p *Project) HasInstall() bool {
	return p.Paths.Install != ""
}

// MissingKeyError reports an absent required key.
type MissingKeyError struct {
	Key string
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("missing required key %q", e.Key)
}

// pathsTable and optionsTable mirror the TOML layout. Pointer fields keep
// "unset" distinct from "empty".
type pathsTable struct {
	Output   *string   `toml:"output"`
	Source   *[]string `toml:"source"`
	Include  *[]string `toml:"include"`
	Library  *[]string `toml:"library"`
	Artifact *string   `toml:"artifact"`
	Install  *string   `toml:"install"`
}

type optionsTable struct {
	Compiler            *string   `toml:"compiler"`
	CCompiler           *string   `toml:"c-compiler"`
	CppCompiler         *string   `toml:"cpp-compiler"`
	CompilationFlags    *string   `toml:"compilation-flags"`
	CCompilationFlags   *string   `toml:"c-compilation-flags"`
	CppCompilationFlags *string   `toml:"cpp-compilation-flags"`
	LinkTimeFlags       *string   `toml:"link-time-flags"`
	Libraries           *[]string `toml:"libraries"`
	StaticLibraries     *[]string `toml:"static-libraries"`
	PkgConfigLibraries  *[]string `toml:"pkg-config-libraries"`
	Preludes            *[]string `toml:"preludes"`
	CleanPreludes       *[]string `toml:"clean-preludes"`
	Shared              *bool     `toml:"shared"`
	Static              *bool     `toml:"static"`
}

type overlayTable struct {
	Paths   *pathsTable   `toml:"paths"`
	Options *optionsTable `toml:"options"`
}

type fileTable struct {
	Paths   *pathsTable                        `toml:"paths"`
	Options *optionsTable                      `toml:"options"`
	Env     map[string]map[string]overlayTable `toml:"env"`
}

// resolvePaths checks required keys and applies defaults.
func resolvePaths(t *pathsTable) (Paths, error) {
	if t == nil {
		return Paths{}, MissingKeyError{Key: "paths"}
	}
	if t.Output == nil {
		return Paths{}, MissingKeyError{Key: "paths.output"}
	}
	if t.Source == nil {
		return Paths{}, MissingKeyError{Key: "paths.source"}
	}
	if t.Artifact == nil {
		return Paths{}, MissingKeyError{Key: "paths.artifact"}
	}

	p := Paths{
		Output:   *t.Output,
		Source:   *t.Source,
		Artifact: *t.Artifact,
	}
	if t.Include != nil {
		p.Include = *t.Include
	}
	if t.Library != nil {
		p.Library = *t.Library
	}
	if t.Install != nil {
		p.Install = *t.Install
	}
	return p, nil
}

// merge applies the keys set in t over o. A specific key wins over its
// generic spelling (cpp-compiler over compiler).
func (o *Options) merge(t *optionsTable) {
	if t == nil {
		return
	}
	if t.CCompiler != nil {
		o.CCompiler = *t.CCompiler
	}
	if t.CppCompiler != nil {
		o.CppCompiler = *t.CppCompiler
	} else if t.Compiler != nil {
		o.CppCompiler = *t.Compiler
	}
	if t.CCompilationFlags != nil {
		o.CFlags = *t.CCompilationFlags
	}
	if t.CppCompilationFlags != nil {
		o.CppFlags = *t.CppCompilationFlags
	} else if t.CompilationFlags != nil {
		o.CppFlags = *t.CompilationFlags
	}
	if t.LinkTimeFlags != nil {
		o.LinkFlags = *t.LinkTimeFlags
	}
	if t.Libraries != nil {
		o.Libraries = *t.Libraries
	}
	if t.StaticLibraries != nil {
		o.StaticLibraries = *t.StaticLibraries
	}
	if t.PkgConfigLibraries != nil {
		o.PkgConfigLibraries = *t.PkgConfigLibraries
	}
	if t.Preludes != nil {
		o.Preludes = *t.Preludes
	}
	if t.CleanPreludes != nil {
		o.CleanPreludes = *t.CleanPreludes
	}
	if t.Shared != nil {
		o.Shared = *t.Shared
	}
	if t.Static != nil {
		o.Static = *t.Static
	}
}

// resolveOverlay builds the complete view of one overlay. Include paths,
// shared mode, preludes and the output layout are fixed by the base
// project; keys the overlay sets for them are returned as ignored.
func resolveOverlay(base *Project, variable, value string, t overlayTable) (Overlay, []string) {
	ov := Overlay{
		Variable: variable,
		Value:    value,
		Paths:    base.Paths,
		Options:  base.Options,
	}

	var ignored []string
	if t.Paths != nil {
		if t.Paths.Library != nil {
			ov.Paths.Library = *t.Paths.Library
		}
		if t.Paths.Install != nil {
			ov.Paths.Install = *t.Paths.Install
		}
		if t.Paths.Output != nil {
			ignored = append(ignored, "paths.output")
		}
		if t.Paths.Source != nil {
			ignored = append(ignored, "paths.source")
		}
		if t.Paths.Include != nil {
			ignored = append(ignored, "paths.include")
		}
		if t.Paths.Artifact != nil {
			ignored = append(ignored, "paths.artifact")
		}
	}

	if t.Options != nil {
		opts := *t.Options
		if opts.Shared != nil {
			ignored = append(ignored, "options.shared")
			opts.Shared = nil
		}
		if opts.Preludes != nil {
			ignored = append(ignored, "options.preludes")
			opts.Preludes = nil
		}
		if opts.CleanPreludes != nil {
			ignored = append(ignored, "options.clean-preludes")
			opts.CleanPreludes = nil
		}
		ov.Options.merge(&opts)
		ov.StaticLibrariesSet = opts.StaticLibraries != nil
	}

	return ov, ignored
}
