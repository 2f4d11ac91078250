package block

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/imagefs/model"
)

const (
	// NumSlots is the number of block slots in the partition.
	NumSlots = 1024
	// SlotSize is the size of one block in bytes.
	SlotSize = 512
)

// Store owns the physical block slots and their free/used state.
//
// Allocation is first-fit over slot indices. The free state is kept as an
// explicit set rather than a scan over per-slot markers; worst-case lookup
// stays O(capacity) but membership is exact.
type Store struct {
	slots [NumSlots][SlotSize]byte
	free  *roaring.Bitmap
}

// New creates a Store with every slot free and zeroed.
func New() *Store {
	s := &Store{free: roaring.New()}
	s.free.AddRange(0, NumSlots)
	return s
}

// Allocate claims the lowest free slot and returns its index.
// The returned slot is zeroed: size accounting relies on the zero sentinel
// to detect first writes.
func (s *Store) Allocate() (int32, error) {
	if s.free.IsEmpty() {
		return model.None, fmt.Errorf("block store: %d slots in use", NumSlots)
	}
	idx := s.free.Minimum()
	s.free.Remove(idx)
	s.slots[idx] = [SlotSize]byte{}
	return int32(idx), nil
}

// Free releases a previously allocated slot. Releasing an out-of-range or
// already-free index is an error; the store is left unchanged.
func (s *Store) Free(idx int32) error {
	if idx < 0 || idx >= NumSlots {
		return fmt.Errorf("block store: free of invalid slot %d", idx)
	}
	if s.free.Contains(uint32(idx)) {
		return fmt.Errorf("block store: free of unallocated slot %d", idx)
	}
	s.free.Add(uint32(idx))
	return nil
}

// InUse reports whether the slot is currently allocated.
func (s *Store) InUse(idx int32) bool {
	if idx < 0 || idx >= NumSlots {
		return false
	}
	return !s.free.Contains(uint32(idx))
}

// UsedCount returns the number of allocated slots.
func (s *Store) UsedCount() int {
	return NumSlots - int(s.free.GetCardinality())
}

// Slot returns the backing bytes of a slot. The caller must hold a valid
// index obtained from Allocate or a deserialized block list.
func (s *Store) Slot(idx int32) []byte {
	return s.slots[idx][:]
}

// UsedBitmap renders the free/used state as a fixed NumSlots/8-byte bitmap
// (bit i set = slot i in use), the form stored in the backing image.
func (s *Store) UsedBitmap() []byte {
	out := make([]byte, NumSlots/8)
	for i := uint32(0); i < NumSlots; i++ {
		if !s.free.Contains(i) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// SetUsedBitmap rebuilds the free set from an image bitmap.
func (s *Store) SetUsedBitmap(bm []byte) error {
	if len(bm) != NumSlots/8 {
		return fmt.Errorf("block store: used bitmap must be %d bytes, got %d", NumSlots/8, len(bm))
	}
	s.free.Clear()
	s.free.AddRange(0, NumSlots)
	for i := uint32(0); i < NumSlots; i++ {
		if bm[i/8]&(1<<(i%8)) != 0 {
			s.free.Remove(i)
		}
	}
	return nil
}
