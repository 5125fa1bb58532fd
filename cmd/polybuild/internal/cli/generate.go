package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/internal/log"
	"github.com/polybuild/polybuild/pkg/generate"
)

var generateFlags struct {
	output    string
	wrapper   string
	noWrapper bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the rule script and wrapper makefile",
	Long: `Reads the project file, discovers sources, resolves their include
closures and writes the rule script (.polybuild.mk) and a Makefile wrapper
that delegates to it.

Nothing is written when the project file cannot be loaded.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

// addGenerateFlags binds the generate flags on cmd. The root command
// generates too, so both carry them.
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&generateFlags.output, "output", "o", generate.DefaultScriptName,
		"Rule script path, relative to the project directory")
	cmd.Flags().StringVar(&generateFlags.wrapper, "wrapper", generate.DefaultWrapperName,
		"Wrapper makefile path, relative to the project directory")
	cmd.Flags().BoolVar(&generateFlags.noWrapper, "no-wrapper", false,
		"Only write the rule script")
}

// wrapperName returns the wrapper file to write, or "" when disabled.
func wrapperName() string {
	if generateFlags.noWrapper {
		return ""
	}
	return generateFlags.wrapper
}

// scriptRef is the rule script path as the wrapper refers to it.
func scriptRef() string {
	return filepath.ToSlash(generateFlags.output)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	s.generator.ScriptName = scriptRef()
	result, err := s.generator.Generate(s.project)
	if err != nil {
		return err
	}

	if err := result.Write(s.root, generateFlags.output, wrapperName()); err != nil {
		return err
	}

	log.Info("finished",
		"script", s.path(generateFlags.output),
		"units", len(result.Units),
		"overlays", len(s.project.Overlays))
	return nil
}
