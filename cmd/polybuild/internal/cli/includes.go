package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/pkg/include"
)

var includesCmd = &cobra.Command{
	Use:   "includes <file>...",
	Short: "Print the include closure of files",
	Long: `Prints every header each file depends on, directly or transitively,
using the include search paths of the project file. Headers that cannot
be found are skipped, as they are during generation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIncludes,
}

func init() {
	rootCmd.AddCommand(includesCmd)
}

func runIncludes(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	resolver := &include.Resolver{
		Root:        s.root,
		SearchPaths: s.project.Paths.Include,
		Scanner:     s.generator.Scanner,
	}

	out := cmd.OutOrStdout()
	for _, file := range args {
		fmt.Fprintf(out, "%s:\n", file)
		for _, header := range resolver.Resolve(file) {
			fmt.Fprintf(out, "  %s\n", header)
		}
	}
	return nil
}
