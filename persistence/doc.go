// Package persistence serializes the whole filesystem image to disk and
// loads it back. The on-disk format is a fixed 64-byte header followed by
// the inode table, the directory region, the block usage bitmap, the open
// descriptor table and finally the raw data region. All integers are
// little-endian and the payload after the header is covered by a CRC32
// checksum stored in the header.
package persistence
