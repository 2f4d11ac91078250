// Package model defines core types shared across imagefs.
//
// # Identity
//
//   - Inode and block references are int32 slot indices; None (-1) is the
//     universal "unused" sentinel, matching the on-image encoding.
//
// # Data Types
//
//   - Type: directory / regular file / symbolic link discriminator
//   - Perm: independent owner-only r/w/x bits ("rwx" string form)
//   - DirEntry: one (name, inode) directory listing entry
//   - FileInfo: stat-equivalent metadata snapshot
//   - Descriptor: one live open-file slot
package model
