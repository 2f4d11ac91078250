package inode

import (
	"time"

	"github.com/hupe1980/imagefs/internal/block"
	"github.com/hupe1980/imagefs/model"
)

const (
	// Count is the inode table capacity.
	Count = 256
	// BlockListLen is the length of the direct block list carried by every
	// inode. There are no indirect blocks; an object can address at most
	// BlockListLen blocks, which equals the partition's block count.
	BlockListLen = block.NumSlots
	// Root is the inode index of the root directory. It is created at
	// initialization, self-parented, and never released.
	Root int32 = 0
	// FreeSize is the size sentinel marking an unused inode slot.
	FreeSize int64 = -1
)

// Inode is one fixed-size metadata record.
//
// A free slot has Size == FreeSize and Type == model.TypeNone. Blocks is the
// ordered direct block list: logical block i of the object lives in physical
// slot Blocks[i]; unused positions hold model.None.
type Inode struct {
	ID         int32
	Type       model.Type
	Size       int64
	Perm       model.Perm
	LinkCount  int32
	Parent     int32
	CreatedAt  time.Time
	ModifiedAt time.Time
	Blocks     [BlockListLen]int32
}

// ChainLen returns the number of leading allocated entries in the block list,
// i.e. the length of the contiguous block chain.
func (n *Inode) ChainLen() int {
	for i := range n.Blocks {
		if n.Blocks[i] == model.None {
			return i
		}
	}
	return BlockListLen
}

// AppendBlock records a newly allocated physical block at the end of the
// chain. It reports false when the direct list is full.
func (n *Inode) AppendBlock(idx int32) bool {
	for i := range n.Blocks {
		if n.Blocks[i] == model.None {
			n.Blocks[i] = idx
			return true
		}
	}
	return false
}

func (n *Inode) reset(id int32, now time.Time) {
	n.ID = id
	n.Type = model.TypeNone
	n.Size = FreeSize
	n.Perm = model.Perm{}
	n.LinkCount = 0
	n.Parent = model.None
	n.CreatedAt = now
	n.ModifiedAt = now
	for i := range n.Blocks {
		n.Blocks[i] = model.None
	}
}
