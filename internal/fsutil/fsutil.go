// Package fsutil provides guarded file writes: content is written to a
// temporary sibling and atomically renamed into place, so a crash mid-write
// never leaves a partial file visible at the canonical path.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic creates the parent directory if needed, writes the file
// through fn into a *.tmp sibling, and renames it into place on success.
// On failure the temporary file is removed and the canonical path is left
// untouched.
func WriteFileAtomic(path string, fn func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}
