package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/internal/digest"
	"github.com/polybuild/polybuild/pkg/generate"
	"github.com/polybuild/polybuild/pkg/makefile"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the generated files are up to date",
	Long: `Generates in memory and compares the result with the files on disk
without writing anything. Exits with status 1 when a file is missing or
differs, which makes it suitable for CI.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	addGenerateFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
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

	files := []struct {
		name string
		file *makefile.File
	}{
		{generateFlags.output, result.Script},
	}
	if name := wrapperName(); name != "" {
		files = append(files, struct {
			name string
			file *makefile.File
		}{name, result.Wrapper})
	}

	out := cmd.OutOrStdout()
	stale := 0
	for _, f := range files {
		path := s.path(f.name)
		ok, err := digest.Matches(path, generate.Render(f.file))
		if err != nil {
			return err
		}
		if !ok {
			stale++
			fmt.Fprintf(out, "stale: %s\n", path)
		}
	}

	if stale > 0 {
		return fmt.Errorf("%d generated file(s) out of date; run polybuild generate", stale)
	}
	fmt.Fprintln(out, "up to date")
	return nil
}
