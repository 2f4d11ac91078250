package imagefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a name or path does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on a name collision in a directory.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermissionDenied is returned when the relevant r/w/x bit is missing.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrExhausted is returned when no free inode slot, block or directory
	// entry is available.
	ErrExhausted = errors.New("capacity exhausted")
	// ErrInvalidDescriptor is returned for operations on a closed or
	// out-of-range descriptor.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrInvalidArgument is returned for malformed names, negative offsets
	// and unsupported seek modes.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotADirectory is returned when a directory operation targets a
	// non-directory.
	ErrNotADirectory = errors.New("not a directory")
	// ErrIsDirectory is returned when a file operation targets a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotAFile is returned when byte I/O targets something other than a
	// regular file.
	ErrNotAFile = errors.New("not a regular file")
	// ErrOutOfRange is returned when a cursor or block walk runs past the
	// object's allocated chain.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrNoImage is returned by Save on an instance without a backing image.
	ErrNoImage = errors.New("no backing image")
	// ErrClosed is returned for operations on a closed instance.
	ErrClosed = errors.New("filesystem closed")
)

// ErrNameInvalid indicates a directory entry name that cannot be stored:
// empty, too long, containing a separator, or one of the reserved dot names.
type ErrNameInvalid struct {
	Name   string
	Reason string
}

func (e *ErrNameInvalid) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

func (e *ErrNameInvalid) Unwrap() error { return ErrInvalidArgument }
