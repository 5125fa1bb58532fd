package treesitter

import (
	"fmt"
	"os"
	"strings"
)

// BackendType identifies a backend implementation.
type BackendType string

const (
	// BackendAuto tries CGO first, then wazero.
	BackendAuto BackendType = "auto"

	// BackendCGO uses smacker/go-tree-sitter.
	BackendCGO BackendType = "cgo"

	// BackendWazero uses malivvan/tree-sitter under wazero.
	BackendWazero BackendType = "wazero"
)

// EnvVarBackend selects the backend for NewBackendFromEnv.
const EnvVarBackend = "POLYBUILD_TREESITTER_BACKEND"

// NewBackend creates a backend of the given type.
func NewBackend(typ BackendType) (Backend, error) {
	switch typ {
	case BackendCGO:
		return NewCGOBackend()
	case BackendWazero:
		return NewWazeroBackend()
	case BackendAuto:
		if b, err := NewCGOBackend(); err == nil {
			return b, nil
		}
		return NewWazeroBackend()
	default:
		return nil, fmt.Errorf("unknown backend type: %s", typ)
	}
}

// ParseBackendType validates a backend name. Empty means BackendAuto.
func ParseBackendType(s string) (BackendType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BackendAuto, nil
	}
	switch typ := BackendType(s); typ {
	case BackendAuto, BackendCGO, BackendWazero:
		return typ, nil
	default:
		return "", fmt.Errorf("invalid backend %q: must be one of auto, cgo, wazero", s)
	}
}

// NewBackendFromEnv creates the backend named by POLYBUILD_TREESITTER_BACKEND,
// defaulting to BackendAuto.
func NewBackendFromEnv() (Backend, error) {
	typ, err := ParseBackendType(os.Getenv(EnvVarBackend))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvVarBackend, err)
	}
	return NewBackend(typ)
}

// AvailableBackends returns the backend types that can be created in the
// current build.
func AvailableBackends() []BackendType {
	var available []BackendType
	if b, err := NewCGOBackend(); err == nil {
		_ = b.Close()
		available = append(available, BackendCGO)
	}
	if b, err := NewWazeroBackend(); err == nil {
		_ = b.Close()
		available = append(available, BackendWazero)
	}
	return available
}
