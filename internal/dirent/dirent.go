package dirent

import (
	"fmt"

	"github.com/hupe1980/imagefs/model"
)

const (
	// NumEntries is the fixed entry capacity of every directory.
	NumEntries = 256
	// MaxNameLen is the longest directory entry name, in bytes. The image
	// reserves MaxNameLen+1 bytes per name for the terminator.
	MaxNameLen = 255
)

// Entry is one slot of a directory table. A free slot has Inode ==
// model.None and an empty name.
type Entry struct {
	Name  string
	Inode int32
}

// Dir is the fixed-capacity entry table of one directory.
type Dir struct {
	entries [NumEntries]Entry
}

// Store holds one Dir per inode slot, indexed identically to the inode
// table. Only slots whose inode is a directory are meaningful; the rest stay
// empty.
type Store struct {
	dirs [Count]Dir
}

// Count mirrors the inode table capacity; the directory store is a parallel
// table.
const Count = 256

// NewStore creates a store with every entry free.
func NewStore() *Store {
	s := &Store{}
	for d := range s.dirs {
		s.dirs[d].Clear()
	}
	return s
}

// Clear frees every entry of the directory.
func (d *Dir) Clear() {
	for i := range d.entries {
		d.entries[i] = Entry{Name: "", Inode: model.None}
	}
}

// Lookup scans for an exact name match and returns the referenced inode
// index, or model.None. The scan is linear in storage order; the first match
// wins.
func (d *Dir) Lookup(name string) int32 {
	for i := range d.entries {
		if d.entries[i].Inode != model.None && d.entries[i].Name == name {
			return d.entries[i].Inode
		}
	}
	return model.None
}

// FreeSlot returns the index of the first free entry, or -1 when the
// directory is full.
func (d *Dir) FreeSlot() int {
	for i := range d.entries {
		if d.entries[i].Inode == model.None {
			return i
		}
	}
	return -1
}

// Add claims the first free entry for (name, ino). It fails when the
// directory is full. Name uniqueness is the caller's pre-check; Add does not
// enforce it.
func (d *Dir) Add(name string, ino int32) error {
	slot := d.FreeSlot()
	if slot < 0 {
		return fmt.Errorf("directory full: %d entries in use", NumEntries)
	}
	d.entries[slot] = Entry{Name: name, Inode: ino}
	return nil
}

// Remove frees the entry matching both the inode index and the exact name.
// Matching on the pair tolerates hard links: two entries may carry the same
// inode under different names. It reports whether an entry was removed.
func (d *Dir) Remove(name string, ino int32) bool {
	for i := range d.entries {
		if d.entries[i].Inode == ino && d.entries[i].Name == name {
			d.entries[i] = Entry{Name: "", Inode: model.None}
			return true
		}
	}
	return false
}

// Entries returns the occupied entries in storage order.
func (d *Dir) Entries() []model.DirEntry {
	var out []model.DirEntry
	for i := range d.entries {
		if d.entries[i].Inode != model.None {
			out = append(out, model.DirEntry{Name: d.entries[i].Name, Inode: d.entries[i].Inode})
		}
	}
	return out
}

// NameOf returns the first entry name referencing ino, or "". Used for path
// reconstruction through parent back-references.
func (d *Dir) NameOf(ino int32) string {
	for i := range d.entries {
		if d.entries[i].Inode == ino {
			return d.entries[i].Name
		}
	}
	return ""
}

// At returns the raw entry at slot i. Serialization helper.
func (d *Dir) At(i int) Entry {
	return d.entries[i]
}

// SetAt overwrites the raw entry at slot i. Deserialization helper.
func (d *Dir) SetAt(i int, e Entry) {
	d.entries[i] = e
}

// Dir returns the entry table owned by inode slot idx.
func (s *Store) Dir(idx int32) *Dir {
	return &s.dirs[idx]
}
