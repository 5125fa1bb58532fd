// Package digest fingerprints generated files and their inputs with
// xxHash64.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
)

// HashFile computes xxHash64 of file contents, returns hex string.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes xxHash64 of bytes, returns hex string.
func HashBytes(data []byte) string {
	h := xxhash.Sum64(data)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}

// Fingerprint hashes the names and contents of paths, in order, into one
// value. A missing file contributes its name and an absence marker, so
// deleting an input changes the fingerprint without failing.
func Fingerprint(paths []string) (string, error) {
	h := xxhash.New()
	var size [8]byte
	for _, path := range paths {
		_, _ = h.WriteString(path)
		_, _ = h.Write([]byte{0})

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			_, _ = h.Write([]byte{1})
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}

		binary.BigEndian.PutUint64(size[:], uint64(len(data)))
		_, _ = h.Write(size[:])
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Matches reports whether the file at path holds exactly data. A missing
// file does not match.
func Matches(path string, data []byte) (bool, error) {
	got, err := HashFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return got == HashBytes(data), nil
}
