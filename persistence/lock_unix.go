//go:build unix

package persistence

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes a blocking exclusive flock on f. The lock is advisory:
// it serializes cooperating processes, nothing more.
func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
