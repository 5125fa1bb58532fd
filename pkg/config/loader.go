package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/polybuild/polybuild/internal/log"
)

// ConfigFileName is the name of the project file.
const ConfigFileName = "Polybuild.toml"

// EnvConfigPath overrides the project file location.
const EnvConfigPath = "POLYBUILD_CONFIG"

// ConfigPath returns the project file to load for dir: $POLYBUILD_CONFIG if
// set, otherwise dir/Polybuild.toml.
func ConfigPath(dir string) string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(dir, ConfigFileName)
}

// Load reads and resolves the project file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	project, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return project, nil
}

// Parse resolves a project description from TOML text.
//
// Overlays keep the order in which their tables first appear in the text.
func Parse(data []byte) (*Project, error) {
	var file fileTable
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	logger := log.Component("config")
	for _, key := range md.Undecoded() {
		logger.Warn("unknown config key", "key", key.String())
	}

	paths, err := resolvePaths(file.Paths)
	if err != nil {
		return nil, err
	}

	options := NewOptions()
	options.merge(file.Options)

	project := &Project{
		Paths:   paths,
		Options: options,
	}

	for _, guard := range overlayOrder(md, file.Env) {
		overlay, ignored := resolveOverlay(project, guard[0], guard[1], file.Env[guard[0]][guard[1]])
		for _, key := range ignored {
			logger.Warn("key cannot be overridden by an overlay", "overlay", overlay.Guard(), "key", key)
		}
		project.Overlays = append(project.Overlays, overlay)
	}

	logger.Debug("config resolved",
		"output", project.Paths.Output,
		"sources", len(project.Paths.Source),
		"overlays", len(project.Overlays))
	return project, nil
}

// overlayOrder returns the (variable, value) pairs of env in declaration
// order. Pairs the metadata does not report fall back to sorted order.
func overlayOrder(md toml.MetaData, env map[string]map[string]overlayTable) [][2]string {
	seen := make(map[[2]string]bool)
	var order [][2]string

	for _, key := range md.Keys() {
		if len(key) < 3 || key[0] != "env" {
			continue
		}
		pair := [2]string{key[1], key[2]}
		if seen[pair] {
			continue
		}
		if _, ok := env[pair[0]][pair[1]]; !ok {
			continue
		}
		seen[pair] = true
		order = append(order, pair)
	}

	for _, variable := range slices.Sorted(maps.Keys(env)) {
		for _, value := range slices.Sorted(maps.Keys(env[variable])) {
			pair := [2]string{variable, value}
			if !seen[pair] {
				seen[pair] = true
				order = append(order, pair)
			}
		}
	}
	return order
}
