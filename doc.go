// Package imagefs provides a single-process simulated file system persisted
// to a flat backing image.
//
// The whole filesystem lives in memory: a fixed-capacity inode table, a
// block store of 1024 slots of 512 bytes, per-inode directory entry tables,
// an open-file descriptor table and a working directory index. Sessions
// bound to a backing image serialize the entire aggregate after every
// mutating operation and hold an exclusive advisory lock on the image file
// for their lifetime.
//
// # Quick Start
//
// In-memory instance:
//
//	fs := imagefs.New()
//	dir, _ := fs.CreateDir("docs", imagefs.RootInode)
//	ino, _ := fs.CreateFile("readme.txt", dir)
//	fd, _ := fs.OpenFile("readme.txt", dir)
//	fs.Write(fd, []byte("hello"))
//	fs.CloseFile(fd)
//
// Image-backed session:
//
//	fs, _ := imagefs.Open("./disk.img")
//	defer fs.Close()
//
// # Semantics
//
// The engine keeps the storage semantics of a classic inode design: direct
// block lists without indirection, first-fit allocation, hard links as
// additional directory entries sharing one inode, and symbolic links whose
// single data block holds a target path that callers re-resolve themselves.
//
// Size accounting is first-write based: a byte position contributes to an
// object's size whenever the zero sentinel stored there is replaced, so
// rewriting existing content never changes the reported length. Directory
// sizes accumulate the write deltas of their descendants and are never
// decreased by deletions. Deleting a file frees its inode and blocks
// immediately even when other hard links still reference it. These are
// documented behaviors of the on-image format, not accidents; see the
// package tests for the exact contracts.
package imagefs
