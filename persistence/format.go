package persistence

import "errors"

const (
	// MagicNumber identifies filesystem image files (ASCII: "IFS0")
	MagicNumber = 0x49465330
	// Version is the current image format version (v1.0.0)
	Version = 0x00010000

	// HeaderSize is the fixed byte length of the image header.
	HeaderSize = 64

	// MaxOpenFiles is the number of descriptor slots recorded in the image.
	MaxOpenFiles = 64

	// nameFieldLen is the fixed on-disk width of a directory entry name.
	nameFieldLen = 256
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidLayout  = errors.New("image capacities do not match this build")
)

// FileHeader is the 64-byte header at the start of every image file.
type FileHeader struct {
	Magic      uint32 // 0x49465330 ("IFS0")
	Version    uint32 // Image format version
	InodeCount uint32 // Inode table capacity
	BlockCount uint32 // Data block count
	BlockSize  uint32 // Bytes per data block
	DirEntries uint32 // Entries per directory
	OpenFiles  uint32 // Descriptor table capacity
	CurrentDir int32  // Working directory inode at save time
	Checksum   uint32 // CRC32 of everything after the header
	Reserved   [28]byte
}
