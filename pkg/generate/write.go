package generate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/polybuild/polybuild/pkg/makefile"
)

// Render returns the text of f.
func Render(f *makefile.File) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes do not fail.
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}

// WriteFile renders f to path. The text goes to a temp file first and is
// renamed into place, so readers never see a half-written script.
func WriteFile(path string, f *makefile.File) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, Render(f), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}
	return nil
}

// Write renders both files of r into dir. The script is written first; a
// failure leaves any previously written file in place.
func (r *Result) Write(dir, scriptName, wrapperName string) error {
	if err := WriteFile(filepath.Join(dir, scriptName), r.Script); err != nil {
		return err
	}
	if r.Wrapper == nil || wrapperName == "" {
		return nil
	}
	return WriteFile(filepath.Join(dir, wrapperName), r.Wrapper)
}
