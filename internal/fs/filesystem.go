package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// PrivateDirMode and PrivateFileMode restrict access to the owning user.
const (
	PrivateDirMode  os.FileMode = 0700
	PrivateFileMode os.FileMode = 0600
)

// EnsurePrivateDir creates dir with owner-only permissions if it does not
// exist, and refuses to use an existing directory that other users can
// access.
func EnsurePrivateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory not set")
	}
	if err := os.MkdirAll(dir, PrivateDirMode); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	if info.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("directory %s is accessible by other users (mode %04o)", dir, info.Mode().Perm())
	}
	if !ownedByCurrentUser(info) {
		return fmt.Errorf("directory %s is not owned by the current user", dir)
	}
	return nil
}

// WriteFileAtomic writes data to path using a temp file in the same
// directory followed by a rename, so readers never observe a partial file.
// The file is created with owner-only permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(PrivateFileMode); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
