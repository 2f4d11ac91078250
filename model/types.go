package model

import (
	"fmt"
	"time"
)

// None is the sentinel for "no inode" / "no block" / free table slot.
const None int32 = -1

// Type classifies a filesystem object.
type Type int8

const (
	// TypeNone marks a free inode slot.
	TypeNone Type = -1
	// TypeDirectory is a directory inode.
	TypeDirectory Type = 0
	// TypeRegular is a regular file inode.
	TypeRegular Type = 1
	// TypeSymlink is a symbolic link inode. Its single data block holds
	// the target path string; resolution is the caller's concern.
	TypeSymlink Type = 2
)

// String returns a string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeRegular:
		return "file"
	case TypeSymlink:
		return "symlink"
	case TypeNone:
		return "none"
	default:
		return fmt.Sprintf("type(%d)", int8(t))
	}
}

// Perm is the owner-only read/write/execute flag set.
// The three bits are independent; there is no group/other model.
type Perm struct {
	Read  bool
	Write bool
	Exec  bool
}

// PermAll has all three bits set. Directories are created with it.
var PermAll = Perm{Read: true, Write: true, Exec: true}

// PermRW is the conventional permission set for new regular files.
var PermRW = Perm{Read: true, Write: true}

// ParsePerm parses a 3-character permission string of the form "rwx",
// where any position may be '-' to clear the bit.
func ParsePerm(s string) (Perm, error) {
	if len(s) != 3 {
		return Perm{}, fmt.Errorf("invalid permission string %q: want 3 characters", s)
	}
	var p Perm
	switch s[0] {
	case 'r':
		p.Read = true
	case '-':
	default:
		return Perm{}, fmt.Errorf("invalid permission string %q: position 0 must be 'r' or '-'", s)
	}
	switch s[1] {
	case 'w':
		p.Write = true
	case '-':
	default:
		return Perm{}, fmt.Errorf("invalid permission string %q: position 1 must be 'w' or '-'", s)
	}
	switch s[2] {
	case 'x':
		p.Exec = true
	case '-':
	default:
		return Perm{}, fmt.Errorf("invalid permission string %q: position 2 must be 'x' or '-'", s)
	}
	return p, nil
}

// String returns the permission set in "rwx" form.
func (p Perm) String() string {
	b := [3]byte{'-', '-', '-'}
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Exec {
		b[2] = 'x'
	}
	return string(b[:])
}

// DirEntry is one (name, inode) pair of a directory listing.
type DirEntry struct {
	Name  string
	Inode int32
}

// FileInfo is the stat-equivalent metadata snapshot of one inode.
type FileInfo struct {
	Inode      int32
	Name       string
	Type       Type
	Size       int64
	Perm       Perm
	LinkCount  int32
	Parent     int32
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// IsDir reports whether the entry describes a directory.
func (fi FileInfo) IsDir() bool { return fi.Type == TypeDirectory }

// Descriptor describes one live open-file slot.
type Descriptor struct {
	FD     int
	Inode  int32
	Offset int64
}
