// Package filex holds small filesystem helpers used by the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) with owner-only permissions and returns
// its absolute path. A relative dir is resolved against the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// DataFile returns the path of name inside the data directory dir, creating
// the directory first.
func DataFile(dir, name string) (string, error) {
	d, err := EnsureDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}
