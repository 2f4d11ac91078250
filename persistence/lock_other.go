//go:build !unix

package persistence

import "os"

// Platforms without flock get no cross-process exclusion. The in-process
// locking in the filesystem layer still applies.
func lockExclusive(f *os.File) error {
	return nil
}

func unlock(f *os.File) error {
	return nil
}
