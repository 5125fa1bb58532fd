//go:build !cgo

package treesitter

import "fmt"

// ErrCGODisabled is returned when the CGO backend is requested in a build
// without CGO.
var ErrCGODisabled = fmt.Errorf("CGO backend is not available: build with CGO_ENABLED=1 or set %s=wazero", EnvVarBackend)

// NewCGOBackend always fails without CGO.
func NewCGOBackend() (Backend, error) {
	return nil, ErrCGODisabled
}
