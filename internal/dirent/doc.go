// Package dirent implements the directory store: one fixed-capacity
// (name, inode) entry table per inode slot, parallel to the inode table.
package dirent
