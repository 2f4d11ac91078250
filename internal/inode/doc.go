// Package inode implements the fixed-capacity inode table: per-object
// metadata records with direct block lists and an explicit free set.
package inode
