// Package cli implements the polybuild command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/internal/log"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// EnvScanner selects the default directive scanner.
const EnvScanner = "POLYBUILD_SCANNER"

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	config    string
	dir       string
	scanner   string
}

// rootCmd generates when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "polybuild",
	Short: "GNU make rule script generator for C and C++",
	Long: `Polybuild reads Polybuild.toml and writes a make rule script that
compiles every source, links the output and provides clean and install
targets. The script carries both POSIX and MSVC toolchain bindings and
selects one when make runs.

Running polybuild without a subcommand is the same as 'polybuild generate'.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
	RunE:              runGenerate,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "polybuild %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	addGenerateFlags(rootCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", log.FormatConsole,
		"Log format (console, text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.config, "config", "",
		"Project file (default: $POLYBUILD_CONFIG or <dir>/Polybuild.toml)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.dir, "dir", ".",
		"Project directory; paths in the project file are relative to it")
	rootCmd.PersistentFlags().StringVar(&globalFlags.scanner, "scanner", envOr(EnvScanner, scannerLine),
		"Include directive scanner (line, treesitter)")
}

// initLogging applies the logging flags before any command runs.
func initLogging(*cobra.Command, []string) error {
	return log.Init(globalFlags.verbosity, globalFlags.logFormat)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "polybuild: %v\n", err)
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
