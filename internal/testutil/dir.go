package testutil

import (
	"os"
	"testing"
)

// PrivateDir returns a temporary directory with owner-only permissions,
// usable as a transient directory regardless of the umask.
func PrivateDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Chmod(dir, 0700); err != nil {
		t.Fatalf("chmod %s: %v", dir, err)
	}
	return dir
}
