package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polybuild/polybuild/cmd/polybuild/internal/watch"
	"github.com/polybuild/polybuild/internal/digest"
	"github.com/polybuild/polybuild/pkg/generate"
	"github.com/polybuild/polybuild/pkg/makefile"
)

var watchFlags struct {
	debounce int
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the rule script when sources or the project file change",
	Long: `Generates once, then watches the project file, the source and include
directories and every header the sources depend on. Changes are debounced
and trigger a new generation; files whose content would not change are
left untouched.

Example output:

  $ polybuild watch

  polybuild: watching 14 inputs in 3 directories under /path/to/project
  polybuild: ready

  [14:32:15] src/main.c changed, regenerating...
  [14:32:15] ✓ .polybuild.mk updated

Press Ctrl+C to stop watching.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addGenerateFlags(watchCmd)
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 500,
		"Debounce window in milliseconds")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	configName := filepath.Base(configPathFor(globalFlags.dir))

	w, err := watch.New(watch.Config{
		Root:       globalFlags.dir,
		ConfigName: configName,
		Debounce:   time.Duration(watchFlags.debounce) * time.Millisecond,
		Verbose:    watchFlags.verbose,
		NoColor:    watchFlags.noColor,
		JSON:       watchFlags.json,
		Writer:     cmd.OutOrStdout(),
		Regenerate: regenerate,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}

// regenerate runs one generation for the watcher. The project file is
// reloaded every time so edits to it take effect.
func regenerate() (watch.Outcome, error) {
	s, err := openSession()
	if err != nil {
		return watch.Outcome{}, err
	}
	defer func() { _ = s.Close() }()

	s.generator.ScriptName = scriptRef()
	result, err := s.generator.Generate(s.project)
	if err != nil {
		return watch.Outcome{}, err
	}

	outcome := watchOutcome(s, result)

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

	for _, f := range files {
		path := s.path(f.name)
		same, err := digest.Matches(path, generate.Render(f.file))
		if err != nil {
			return outcome, err
		}
		if same {
			continue
		}
		if err := generate.WriteFile(path, f.file); err != nil {
			return outcome, err
		}
		outcome.Written = append(outcome.Written, absPath(path))
	}
	return outcome, nil
}

// watchOutcome lists the files a generation read and the directories in
// which new inputs may appear.
func watchOutcome(s *session, result *generate.Result) watch.Outcome {
	var outcome watch.Outcome
	seenInput := make(map[string]bool)
	seenDir := make(map[string]bool)

	addInput := func(p string) {
		p = absPath(p)
		if !seenInput[p] {
			seenInput[p] = true
			outcome.Inputs = append(outcome.Inputs, p)
		}
	}
	addDir := func(d string) {
		d = absPath(d)
		if seenDir[d] {
			return
		}
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			return
		}
		seenDir[d] = true
		outcome.Dirs = append(outcome.Dirs, d)
	}

	addInput(s.configPath)
	addDir(s.root)
	addDir(filepath.Dir(s.configPath))
	for _, dir := range s.project.Paths.Source {
		addDir(s.path(dir))
	}
	for _, dir := range s.project.Paths.Include {
		addDir(s.path(dir))
	}
	for _, unit := range result.Units {
		addInput(s.path(unit.Source.Path))
		for _, header := range unit.Headers {
			p := s.path(header)
			addInput(p)
			addDir(filepath.Dir(p))
		}
	}
	return outcome
}

// absPath resolves p against the working directory, where --dir and
// --config are interpreted.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
