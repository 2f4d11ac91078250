package imagefs

import (
	"fmt"
	"io"

	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
	"github.com/hupe1980/imagefs/persistence"
)

// translate maps a logical byte offset to its block-list position and
// in-block offset. It is the only place the logical-to-physical mapping is
// computed; callers validate the position against the inode's chain.
func translate(off int64) (pos int, inBlock int) {
	return int(off / BlockSize), int(off % BlockSize)
}

func (fs *FS) fdArg(fd int) (*persistence.OpenFile, *inode.Inode, error) {
	if fd < 0 || fd >= MaxOpenFiles {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidDescriptor, fd)
	}
	slot := &fs.fds[fd]
	if slot.Inode == model.None {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidDescriptor, fd)
	}
	return slot, fs.inodes.Get(slot.Inode), nil
}

// OpenFile opens the named entry of dir and returns a descriptor with the
// cursor at offset zero. Directories cannot be opened; symbolic links can,
// which is how callers read a link target through the normal I/O path.
func (fs *FS) OpenFile(name string, dir int32) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.dirArg(dir); err != nil {
		return -1, err
	}

	ino := fs.dirs.Dir(dir).Lookup(name)
	if ino == model.None {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if fs.inodes.Get(ino).Type == model.TypeDirectory {
		return -1, fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}

	fd := -1
	for i := range fs.fds {
		if fs.fds[i].Inode == model.None {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, fmt.Errorf("%w: %d descriptors in use", ErrExhausted, MaxOpenFiles)
	}

	fs.fds[fd] = persistence.OpenFile{Inode: ino, Offset: 0}

	if err := fs.commit(); err != nil {
		return fd, err
	}
	return fd, nil
}

// CloseFile releases the descriptor slot. Writes are applied at call time,
// so there is nothing to flush; the bound inode is untouched.
func (fs *FS) CloseFile(fd int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	slot, _, err := fs.fdArg(fd)
	if err != nil {
		return err
	}

	*slot = persistence.OpenFile{Inode: model.None}

	return fs.commit()
}

// OpenDescriptors enumerates the live descriptor table.
func (fs *FS) OpenDescriptors() []model.Descriptor {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var out []model.Descriptor
	for i := range fs.fds {
		if fs.fds[i].Inode != model.None {
			out = append(out, model.Descriptor{
				FD:     i,
				Inode:  fs.fds[i].Inode,
				Offset: fs.fds[i].Offset,
			})
		}
	}
	return out
}

// Read copies bytes from the cursor into p and advances the cursor. It
// requires read permission on the bound inode. Running past the end of the
// allocated block chain stops the read at the boundary: the prefix read so
// far is returned together with ErrOutOfRange, never zero padding.
func (fs *FS) Read(fd int, p []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	n, err := fs.read(fd, p)
	fs.metrics.RecordRead(n, fs.now().Sub(start), err)
	fs.logger.LogIO("read", fd, n, err)

	return n, err
}

func (fs *FS) read(fd int, p []byte) (int, error) {
	slot, node, err := fs.fdArg(fd)
	if err != nil {
		return 0, err
	}
	if !node.Perm.Read {
		return 0, fmt.Errorf("%w: read on inode %d", ErrPermissionDenied, node.ID)
	}

	chain := node.ChainLen()
	off := slot.Offset

	var n int
	for n < len(p) {
		pos, inBlock := translate(off)
		if pos >= chain {
			slot.Offset = off
			return n, fmt.Errorf("%w: read past block %d", ErrOutOfRange, chain-1)
		}
		p[n] = fs.blocks.Slot(node.Blocks[pos])[inBlock]
		n++
		off++
	}

	slot.Offset = off

	return n, nil
}

// Write stores p byte by byte from the cursor, allocating and appending
// blocks on demand. It requires write permission and a regular file. A byte
// position still holding the zero sentinel increments the file size when
// overwritten; rewriting non-zero content does not. Block exhaustion stops
// the write early with the prefix retained. The returned count is the number
// of newly accounted bytes, and the size delta is propagated to every
// ancestor directory.
func (fs *FS) Write(fd int, p []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	n, err := fs.write(fd, p)
	fs.metrics.RecordWrite(n, fs.now().Sub(start), err)
	fs.logger.LogIO("write", fd, n, err)

	if err != nil {
		// Partial effects are real effects; persist them too.
		if cerr := fs.commit(); cerr != nil {
			fs.logger.Error("autosave after partial write failed", "error", cerr)
		}
		return n, err
	}

	return n, fs.commit()
}

func (fs *FS) write(fd int, p []byte) (int, error) {
	slot, node, err := fs.fdArg(fd)
	if err != nil {
		return 0, err
	}
	if !node.Perm.Write {
		return 0, fmt.Errorf("%w: write on inode %d", ErrPermissionDenied, node.ID)
	}
	if node.Type != model.TypeRegular {
		return 0, fmt.Errorf("%w: inode %d", ErrNotAFile, node.ID)
	}

	accounted, newOff, err := fs.writeCore(node, slot.Offset, p)
	slot.Offset = newOff

	if accounted > 0 {
		node.ModifiedAt = fs.now()
		fs.bubbleSize(node.ID, int64(accounted))
	}

	return accounted, err
}

// writeCore is the raw write loop shared by descriptor writes and copy. It
// performs first-write size accounting on node but no permission or type
// checks and no ancestor propagation.
func (fs *FS) writeCore(node *inode.Inode, off int64, p []byte) (int, int64, error) {
	var accounted int

	for _, b := range p {
		pos, inBlock := translate(off)
		if pos >= node.ChainLen() {
			idx, err := fs.blocks.Allocate()
			if err != nil {
				return accounted, off, fmt.Errorf("%w: %v", ErrExhausted, err)
			}
			if !node.AppendBlock(idx) {
				fs.blocks.Free(idx)
				return accounted, off, fmt.Errorf("%w: block list full on inode %d", ErrExhausted, node.ID)
			}
		}

		slot := fs.blocks.Slot(node.Blocks[pos])
		if slot[inBlock] == 0 {
			node.Size++
			accounted++
		}
		slot[inBlock] = b
		off++
	}

	return accounted, off, nil
}

// bubbleSize adds a write delta to every ancestor directory of ino, the
// root included once.
func (fs *FS) bubbleSize(ino int32, delta int64) {
	cur := fs.inodes.Get(ino).Parent
	for {
		dir := fs.inodes.Get(cur)
		dir.Size += delta
		if cur == inode.Root {
			return
		}
		cur = dir.Parent
	}
}

// Seek repositions the cursor. Whence accepts io.SeekStart, io.SeekCurrent
// and io.SeekEnd; for io.SeekEnd the target is size - offset. Negative
// offsets are rejected, and a target beyond the allocated block chain is
// ErrOutOfRange rather than an implicit extension.
func (fs *FS) Seek(fd int, offset int64, whence int) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	slot, node, err := fs.fdArg(fd)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, offset)
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = slot.Offset + offset
	case io.SeekEnd:
		target = node.Size - offset
	default:
		return 0, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}

	if target < 0 {
		return 0, fmt.Errorf("%w: target %d", ErrInvalidArgument, target)
	}
	if target > int64(node.ChainLen())*BlockSize {
		return 0, fmt.Errorf("%w: target %d beyond allocated chain", ErrOutOfRange, target)
	}

	slot.Offset = target

	if err := fs.commit(); err != nil {
		return target, err
	}
	return target, nil
}
