package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/imagefs/internal/block"
	"github.com/hupe1980/imagefs/internal/dirent"
	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
)

// OpenFile is the persisted form of one descriptor table slot. A free slot
// carries Inode == model.None.
type OpenFile struct {
	Inode  int32
	Offset int64
}

// State is everything the image carries: the inode table, the directory
// region, the block store (usage bitmap plus raw data), the working directory
// and the open descriptor table.
type State struct {
	Inodes     *inode.Table
	Dirs       *dirent.Store
	Blocks     *block.Store
	CurrentDir int32
	OpenFiles  [MaxOpenFiles]OpenFile
}

// NewState returns an initialized empty state with the root directory in
// place and no open descriptors.
func NewState(now time.Time) *State {
	st := &State{
		Inodes:     inode.NewTable(now),
		Dirs:       dirent.NewStore(),
		Blocks:     block.New(),
		CurrentDir: inode.Root,
	}
	st.Inodes.InitRoot(now)
	for i := range st.OpenFiles {
		st.OpenFiles[i].Inode = model.None
	}
	return st
}

// On-disk record layouts. Field order and padding are part of the format.

type inodeRecord struct {
	ID        int32
	Type      int8
	Perm      uint8
	_         [2]byte
	LinkCount int32
	Parent    int32
	Size      int64
	Created   int64
	Modified  int64
	Blocks    [inode.BlockListLen]int32
}

type entryRecord struct {
	Name  [nameFieldLen]byte
	Inode int32
}

type openFileRecord struct {
	Inode  int32
	_      [4]byte
	Offset int64
}

const (
	inodeRecordSize    = 40 + 4*inode.BlockListLen
	entryRecordSize    = nameFieldLen + 4
	openFileRecordSize = 16

	payloadSize = inode.Count*inodeRecordSize +
		dirent.Count*dirent.NumEntries*entryRecordSize +
		block.NumSlots/8 +
		MaxOpenFiles*openFileRecordSize +
		block.NumSlots*block.SlotSize

	// ImageSize is the total byte length of a serialized image.
	ImageSize = HeaderSize + payloadSize
)

func permByte(p model.Perm) uint8 {
	var b uint8
	if p.Read {
		b |= 1
	}
	if p.Write {
		b |= 2
	}
	if p.Exec {
		b |= 4
	}
	return b
}

func permFromByte(b uint8) model.Perm {
	return model.Perm{Read: b&1 != 0, Write: b&2 != 0, Exec: b&4 != 0}
}

// EncodeImage serializes st to w in the fixed image layout. The payload is
// buffered so the CRC32 can be placed in the header before any payload byte
// reaches w.
func EncodeImage(w io.Writer, st *State) error {
	var buf bytes.Buffer
	buf.Grow(payloadSize)

	cw := NewChecksumWriter(&buf)
	if err := encodePayload(cw, st); err != nil {
		return fmt.Errorf("encode image payload: %w", err)
	}

	hdr := FileHeader{
		Magic:      MagicNumber,
		Version:    Version,
		InodeCount: inode.Count,
		BlockCount: block.NumSlots,
		BlockSize:  block.SlotSize,
		DirEntries: dirent.NumEntries,
		OpenFiles:  MaxOpenFiles,
		CurrentDir: st.CurrentDir,
		Checksum:   cw.Sum(),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write image header: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write image payload: %w", err)
	}

	return nil
}

func encodePayload(w io.Writer, st *State) error {
	le := binary.LittleEndian

	for i := int32(0); i < inode.Count; i++ {
		n := st.Inodes.Get(i)
		rec := inodeRecord{
			ID:        n.ID,
			Type:      int8(n.Type),
			Perm:      permByte(n.Perm),
			LinkCount: n.LinkCount,
			Parent:    n.Parent,
			Size:      n.Size,
			Created:   n.CreatedAt.UnixNano(),
			Modified:  n.ModifiedAt.UnixNano(),
			Blocks:    n.Blocks,
		}
		if err := binary.Write(w, le, &rec); err != nil {
			return err
		}
	}

	for d := int32(0); d < dirent.Count; d++ {
		dir := st.Dirs.Dir(d)
		for i := 0; i < dirent.NumEntries; i++ {
			e := dir.At(i)
			var rec entryRecord
			copy(rec.Name[:], e.Name)
			rec.Inode = e.Inode
			if err := binary.Write(w, le, &rec); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write(st.Blocks.UsedBitmap()); err != nil {
		return err
	}

	for i := range st.OpenFiles {
		rec := openFileRecord{
			Inode:  st.OpenFiles[i].Inode,
			Offset: st.OpenFiles[i].Offset,
		}
		if err := binary.Write(w, le, &rec); err != nil {
			return err
		}
	}

	for i := int32(0); i < block.NumSlots; i++ {
		if _, err := w.Write(st.Blocks.Slot(i)); err != nil {
			return err
		}
	}

	return nil
}

// DecodeImage reads a serialized image from r, verifies the header and the
// payload checksum, and rebuilds the in-memory state including the derived
// free sets.
func DecodeImage(r io.Reader) (*State, error) {
	le := binary.LittleEndian

	var hdr FileHeader
	if err := binary.Read(r, le, &hdr); err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if hdr.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if hdr.Version != Version {
		return nil, ErrInvalidVersion
	}
	if hdr.InodeCount != inode.Count || hdr.BlockCount != block.NumSlots ||
		hdr.BlockSize != block.SlotSize || hdr.DirEntries != dirent.NumEntries ||
		hdr.OpenFiles != MaxOpenFiles {
		return nil, ErrInvalidLayout
	}

	cr := NewChecksumReader(r)

	st := &State{
		Inodes:     inode.NewTable(time.Time{}),
		Dirs:       dirent.NewStore(),
		Blocks:     block.New(),
		CurrentDir: hdr.CurrentDir,
	}

	for i := int32(0); i < inode.Count; i++ {
		var rec inodeRecord
		if err := binary.Read(cr, le, &rec); err != nil {
			return nil, fmt.Errorf("read inode record %d: %w", i, err)
		}
		n := st.Inodes.Get(i)
		n.ID = rec.ID
		n.Type = model.Type(rec.Type)
		n.Perm = permFromByte(rec.Perm)
		n.LinkCount = rec.LinkCount
		n.Parent = rec.Parent
		n.Size = rec.Size
		n.CreatedAt = time.Unix(0, rec.Created)
		n.ModifiedAt = time.Unix(0, rec.Modified)
		n.Blocks = rec.Blocks
	}
	st.Inodes.Rebuild()

	for d := int32(0); d < dirent.Count; d++ {
		dir := st.Dirs.Dir(d)
		for i := 0; i < dirent.NumEntries; i++ {
			var rec entryRecord
			if err := binary.Read(cr, le, &rec); err != nil {
				return nil, fmt.Errorf("read directory %d entry %d: %w", d, i, err)
			}
			name := rec.Name[:]
			if j := bytes.IndexByte(name, 0); j >= 0 {
				name = name[:j]
			}
			dir.SetAt(i, dirent.Entry{Name: string(name), Inode: rec.Inode})
		}
	}

	bm := make([]byte, block.NumSlots/8)
	if _, err := io.ReadFull(cr, bm); err != nil {
		return nil, fmt.Errorf("read block bitmap: %w", err)
	}
	if err := st.Blocks.SetUsedBitmap(bm); err != nil {
		return nil, err
	}

	for i := range st.OpenFiles {
		var rec openFileRecord
		if err := binary.Read(cr, le, &rec); err != nil {
			return nil, fmt.Errorf("read descriptor record %d: %w", i, err)
		}
		st.OpenFiles[i] = OpenFile{Inode: rec.Inode, Offset: rec.Offset}
	}

	for i := int32(0); i < block.NumSlots; i++ {
		if _, err := io.ReadFull(cr, st.Blocks.Slot(i)); err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
	}

	if err := cr.Verify(hdr.Checksum); err != nil {
		return nil, err
	}

	return st, nil
}
