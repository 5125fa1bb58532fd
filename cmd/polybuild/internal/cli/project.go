package cli

import (
	"fmt"
	"path/filepath"

	"github.com/polybuild/polybuild/internal/log"
	"github.com/polybuild/polybuild/pkg/config"
	"github.com/polybuild/polybuild/pkg/generate"
	"github.com/polybuild/polybuild/pkg/include"
	"github.com/polybuild/polybuild/pkg/treesitter"
)

// Scanner names accepted by --scanner.
const (
	scannerLine       = "line"
	scannerTreesitter = "treesitter"
)

// session is a loaded project and the generator configured for it.
type session struct {
	root       string
	configPath string
	project    *config.Project
	generator  *generate.Generator
	closeFn    func() error
}

// openSession loads the project named by the global flags. The caller must
// Close the session.
func openSession() (*session, error) {
	root := globalFlags.dir
	if root == "" {
		root = "."
	}

	configPath := configPathFor(root)

	log.Info("converting", "config", configPath)
	project, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	scanner, closeFn, err := newScanner(globalFlags.scanner)
	if err != nil {
		return nil, err
	}

	return &session{
		root:       root,
		configPath: configPath,
		project:    project,
		generator:  &generate.Generator{Root: root, Scanner: scanner},
		closeFn:    closeFn,
	}, nil
}

// configPathFor returns the project file named by --config, or the default
// one for root.
func configPathFor(root string) string {
	if globalFlags.config != "" {
		return globalFlags.config
	}
	return config.ConfigPath(root)
}

// path returns rel joined to the project directory.
func (s *session) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.root, rel)
}

func (s *session) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

// newScanner returns the directive scanner named by name and a function
// releasing its resources.
func newScanner(name string) (include.Scanner, func() error, error) {
	switch name {
	case "", scannerLine:
		return include.LineScanner{}, nil, nil
	case scannerTreesitter:
		backend, err := treesitter.NewBackendFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create tree-sitter backend: %w", err)
		}
		log.Debug("using tree-sitter scanner", "backend", backend.Name())
		return treesitter.NewIncludeScanner(backend), backend.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown scanner %q: must be one of %s, %s", name, scannerLine, scannerTreesitter)
	}
}
