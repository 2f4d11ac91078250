package inode

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/imagefs/model"
)

// Table is the fixed-capacity inode table.
//
// Slot freeness is carried twice on purpose: the Size == FreeSize sentinel is
// the on-image representation, while the roaring set gives allocation an
// explicit free list. The two are kept in sync by Allocate/Release and
// rebuilt together after deserialization.
type Table struct {
	nodes [Count]Inode
	free  *roaring.Bitmap
}

// NewTable creates a table with every slot free. The root directory is not
// created here; callers bootstrap it via InitRoot.
func NewTable(now time.Time) *Table {
	t := &Table{free: roaring.New()}
	t.free.AddRange(0, Count)
	for i := range t.nodes {
		t.nodes[i].reset(int32(i), now)
	}
	return t
}

// InitRoot claims slot Root as the self-parented root directory with full
// permissions.
func (t *Table) InitRoot(now time.Time) {
	t.free.Remove(uint32(Root))
	root := &t.nodes[Root]
	root.Type = model.TypeDirectory
	root.Size = 0
	root.Perm = model.PermAll
	root.LinkCount = 1
	root.Parent = Root
	root.CreatedAt = now
	root.ModifiedAt = now
}

// Allocate claims the lowest free slot. The slot is returned in the free
// state; the caller fills in type, permissions and parent.
func (t *Table) Allocate() (int32, error) {
	if t.free.IsEmpty() {
		return model.None, fmt.Errorf("inode table: %d slots in use", Count)
	}
	idx := t.free.Minimum()
	t.free.Remove(idx)
	return int32(idx), nil
}

// Release resets the slot to the free state and returns the block indices the
// inode owned so the caller can return them to the block store.
func (t *Table) Release(idx int32, now time.Time) []int32 {
	n := &t.nodes[idx]
	var owned []int32
	for i := range n.Blocks {
		if n.Blocks[i] != model.None {
			owned = append(owned, n.Blocks[i])
		}
	}
	n.reset(idx, now)
	t.free.Add(uint32(idx))
	return owned
}

// Get returns the inode record at idx. The index must be in [0, Count).
func (t *Table) Get(idx int32) *Inode {
	return &t.nodes[idx]
}

// Valid reports whether idx is a legal slot index.
func (t *Table) Valid(idx int32) bool {
	return idx >= 0 && idx < Count
}

// InUse reports whether the slot is occupied.
func (t *Table) InUse(idx int32) bool {
	return t.Valid(idx) && !t.free.Contains(uint32(idx))
}

// UsedCount returns the number of occupied slots.
func (t *Table) UsedCount() int {
	return Count - int(t.free.GetCardinality())
}

// Rebuild re-derives the free set from the size sentinels after the table
// has been loaded from an image.
func (t *Table) Rebuild() {
	t.free.Clear()
	for i := range t.nodes {
		if t.nodes[i].Size == FreeSize {
			t.free.Add(uint32(i))
		}
	}
}
