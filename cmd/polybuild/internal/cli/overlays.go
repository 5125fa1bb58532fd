package cli

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/pkg/config"
)

var overlaysFlags struct {
	envFile string
}

var overlaysCmd = &cobra.Command{
	Use:   "overlays",
	Short: "List environment overlays and which ones apply",
	Long: `Lists the [env.VARIABLE.VALUE] overlays of the project file in the
order they are emitted. An overlay marked with * matches the current
environment; when several overlays match, the last one wins for every
variable it binds.

OS defaults to the output of uname, as it does in the wrapper makefile.
Variables from --env-file are used when the process environment does not
set them.`,
	Args: cobra.NoArgs,
	RunE: runOverlays,
}

func init() {
	overlaysCmd.Flags().StringVar(&overlaysFlags.envFile, "env-file", "",
		"Read additional variables from a .env file")
	rootCmd.AddCommand(overlaysCmd)
}

func runOverlays(cmd *cobra.Command, _ []string) error {
	project, err := config.Load(configPathFor(globalFlags.dir))
	if err != nil {
		return err
	}

	env, err := overlayEnv(overlaysFlags.envFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(project.Overlays) == 0 {
		fmt.Fprintln(out, "no overlays")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, ov := range project.Overlays {
		mark := " "
		if env[ov.Variable] == ov.Value {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, ov.Guard(), overlaySummary(ov, project))
	}
	return tw.Flush()
}

// overlayEnv returns the variables overlays are matched against.
func overlayEnv(envFile string) (map[string]string, error) {
	env := make(map[string]string)
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	if _, ok := env["OS"]; !ok {
		env["OS"] = uname()
	}
	return env, nil
}

// uname mirrors $(shell uname) for the platforms Go runs on.
func uname() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "freebsd":
		return "FreeBSD"
	case "netbsd":
		return "NetBSD"
	case "openbsd":
		return "OpenBSD"
	case "windows":
		return "Windows_NT"
	default:
		return runtime.GOOS
	}
}

// overlaySummary lists what ov binds differently from the base project.
func overlaySummary(ov config.Overlay, base *config.Project) string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	b, o := base.Options, ov.Options
	add("c-compiler", o.CCompiler != b.CCompiler)
	add("cpp-compiler", o.CppCompiler != b.CppCompiler)
	add("c-compilation-flags", o.CFlags != b.CFlags)
	add("cpp-compilation-flags", o.CppFlags != b.CppFlags)
	add("link-time-flags", o.LinkFlags != b.LinkFlags)
	add("libraries", !slices.Equal(o.Libraries, b.Libraries))
	add("pkg-config-libraries", !slices.Equal(o.PkgConfigLibraries, b.PkgConfigLibraries))
	add("static-libraries", ov.StaticLibrariesSet)
	add("static", o.Static != b.Static)
	add("library", !slices.Equal(ov.Paths.Library, base.Paths.Library))
	add("install", ov.Paths.Install != base.Paths.Install)

	if len(changed) == 0 {
		return "(no changes)"
	}
	return strings.Join(changed, ", ")
}
