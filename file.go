package imagefs

import (
	"fmt"

	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
)

// createObject claims an inode and one initial block, registers the
// directory entry and fills in the metadata. Used for files, symlinks and
// the copy path; directories go through createDirLocked instead.
func (fs *FS) createObject(name string, dir int32, typ model.Type, perm model.Perm) (int32, error) {
	if err := checkName(name); err != nil {
		return model.None, err
	}
	if err := fs.dirArg(dir); err != nil {
		return model.None, err
	}
	if !fs.inodes.Get(dir).Perm.Write {
		return model.None, fmt.Errorf("%w: write on directory %d", ErrPermissionDenied, dir)
	}
	if fs.dirs.Dir(dir).Lookup(name) != model.None {
		return model.None, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if fs.dirs.Dir(dir).FreeSlot() < 0 {
		return model.None, fmt.Errorf("%w: directory %d is full", ErrExhausted, dir)
	}

	ino, err := fs.inodes.Allocate()
	if err != nil {
		return model.None, fmt.Errorf("%w: %v", ErrExhausted, err)
	}

	blk, err := fs.blocks.Allocate()
	if err != nil {
		fs.inodes.Release(ino, fs.now())
		return model.None, fmt.Errorf("%w: %v", ErrExhausted, err)
	}

	now := fs.now()
	node := fs.inodes.Get(ino)
	node.Type = typ
	node.Size = 0
	node.Perm = perm
	node.LinkCount = 1
	node.Parent = dir
	node.CreatedAt = now
	node.ModifiedAt = now
	node.AppendBlock(blk)

	if err := fs.dirs.Dir(dir).Add(name, ino); err != nil {
		fs.blocks.Free(blk)
		fs.inodes.Release(ino, fs.now())
		return model.None, fmt.Errorf("%w: %v", ErrExhausted, err)
	}

	return ino, nil
}

// CreateFile creates an empty regular file named name in dir, with read and
// write permission. One block is allocated up front; the size starts at
// zero. Requires write permission on dir.
func (fs *FS) CreateFile(name string, dir int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	ino, err := fs.createObject(name, dir, model.TypeRegular, model.PermRW)
	fs.metrics.RecordCreate("file", fs.now().Sub(start), err)
	fs.logger.LogCreate("file", name, ino, err)
	if err != nil {
		return model.None, err
	}

	if err := fs.commit(); err != nil {
		return ino, err
	}
	return ino, nil
}

// removeObject releases the inode, returns its blocks to the store and
// removes the (name, inode) entry from the containing directory. The link
// count is reset rather than decremented, so deleting one name of a
// hard-linked file orphans the others; see the package documentation.
func (fs *FS) removeObject(name string, ino int32, dir int32) {
	for _, blk := range fs.inodes.Release(ino, fs.now()) {
		fs.blocks.Free(blk)
	}
	fs.dirs.Dir(dir).Remove(name, ino)
}

// DeleteFile deletes the named regular file or symbolic link from dir,
// freeing its inode and every block it owned. Ancestor directory sizes are
// not decreased; they are historical write counters.
func (fs *FS) DeleteFile(name string, dir int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	err := fs.deleteFile(name, dir)
	fs.metrics.RecordDelete("file", fs.now().Sub(start), err)
	fs.logger.LogDelete("file", name, err)
	if err != nil {
		return err
	}

	return fs.commit()
}

func (fs *FS) deleteFile(name string, dir int32) error {
	if err := fs.dirArg(dir); err != nil {
		return err
	}

	ino := fs.dirs.Dir(dir).Lookup(name)
	if ino == model.None {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if fs.inodes.Get(ino).Type == model.TypeDirectory {
		return fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}

	fs.removeObject(name, ino, dir)

	return nil
}

// MoveFile moves the named file or symbolic link from srcDir to dstDir.
// The inode and its blocks are untouched; only directory entries change,
// plus the parent back-reference. Requires write permission on both
// directories.
func (fs *FS) MoveFile(name string, srcDir, dstDir int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	err := fs.moveEntry(name, srcDir, dstDir, false)
	fs.metrics.RecordStructural("move", fs.now().Sub(start), err)
	if err != nil {
		return err
	}

	return fs.commit()
}

func (fs *FS) moveEntry(name string, srcDir, dstDir int32, wantDir bool) error {
	if err := fs.dirArg(srcDir); err != nil {
		return err
	}
	if err := fs.dirArg(dstDir); err != nil {
		return err
	}
	if !fs.inodes.Get(srcDir).Perm.Write {
		return fmt.Errorf("%w: write on directory %d", ErrPermissionDenied, srcDir)
	}
	if !fs.inodes.Get(dstDir).Perm.Write {
		return fmt.Errorf("%w: write on directory %d", ErrPermissionDenied, dstDir)
	}

	ino := fs.dirs.Dir(srcDir).Lookup(name)
	if ino == model.None {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	isDir := fs.inodes.Get(ino).Type == model.TypeDirectory
	if wantDir && !isDir {
		return fmt.Errorf("%w: %s", ErrNotADirectory, name)
	}
	if !wantDir && isDir {
		return fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}

	// A directory moved under itself would orphan its subtree from the root
	// and turn the parent chain into a cycle.
	if isDir && fs.withinSubtree(ino, dstDir) {
		return fmt.Errorf("%w: cannot move %s into its own subtree", ErrInvalidArgument, name)
	}

	if fs.dirs.Dir(dstDir).Lookup(name) != model.None {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if fs.dirs.Dir(dstDir).FreeSlot() < 0 {
		return fmt.Errorf("%w: directory %d is full", ErrExhausted, dstDir)
	}

	fs.dirs.Dir(dstDir).Add(name, ino)
	fs.dirs.Dir(srcDir).Remove(name, ino)
	fs.inodes.Get(ino).Parent = dstDir

	return nil
}

// withinSubtree reports whether dir lies in the subtree rooted at ino,
// following parent back-references. The root is self-parented, which
// terminates the walk.
func (fs *FS) withinSubtree(ino, dir int32) bool {
	for {
		if dir == ino {
			return true
		}
		parent := fs.inodes.Get(dir).Parent
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// CopyFile copies the named file or symbolic link from srcDir into dstDir
// under newName. The copy gets the source's permissions and type; its
// content goes through the normal write path, so size accounting and block
// allocation behave exactly like a fresh write. Requires read permission on
// the source and write permission on dstDir.
func (fs *FS) CopyFile(name, newName string, srcDir, dstDir int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	ino, err := fs.copyFile(name, newName, srcDir, dstDir)
	fs.metrics.RecordStructural("copy", fs.now().Sub(start), err)
	if err != nil {
		return model.None, err
	}

	if err := fs.commit(); err != nil {
		return ino, err
	}
	return ino, nil
}

func (fs *FS) copyFile(name, newName string, srcDir, dstDir int32) (int32, error) {
	if err := fs.dirArg(srcDir); err != nil {
		return model.None, err
	}

	srcIno := fs.dirs.Dir(srcDir).Lookup(name)
	if srcIno == model.None {
		return model.None, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	src := fs.inodes.Get(srcIno)
	if src.Type == model.TypeDirectory {
		return model.None, fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}
	if !src.Perm.Read {
		return model.None, fmt.Errorf("%w: read on inode %d", ErrPermissionDenied, srcIno)
	}

	content := fs.contentOf(src)

	ino, err := fs.createObject(newName, dstDir, src.Type, src.Perm)
	if err != nil {
		return model.None, err
	}

	node := fs.inodes.Get(ino)
	accounted, _, err := fs.writeCore(node, 0, content)
	if accounted > 0 {
		fs.bubbleSize(ino, int64(accounted))
	}
	if err != nil {
		return ino, err
	}

	return ino, nil
}

// contentOf reads the first Size bytes of an object directly off its block
// chain.
func (fs *FS) contentOf(node *inode.Inode) []byte {
	chain := node.ChainLen()
	out := make([]byte, 0, node.Size)
	for off := int64(0); off < node.Size; off++ {
		pos, inBlock := translate(off)
		if pos >= chain {
			break
		}
		out = append(out, fs.blocks.Slot(node.Blocks[pos])[inBlock])
	}
	return out
}

// Chmod replaces the permission bits of the object at path.
func (fs *FS) Chmod(path string, perm model.Perm) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ino, err := fs.resolve(path, fs.cwd)
	if err != nil {
		return err
	}

	node := fs.inodes.Get(ino)
	node.Perm = perm
	node.ModifiedAt = fs.now()

	return fs.commit()
}

// Stat returns the metadata of the object at path.
func (fs *FS) Stat(path string) (model.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ino, err := fs.resolve(path, fs.cwd)
	if err != nil {
		return model.FileInfo{}, err
	}

	return fs.statOf(ino), nil
}

// StatInode returns the metadata of an inode by index.
func (fs *FS) StatInode(ino int32) (model.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.inodes.InUse(ino) {
		return model.FileInfo{}, fmt.Errorf("%w: inode %d", ErrNotFound, ino)
	}

	return fs.statOf(ino), nil
}

func (fs *FS) statOf(ino int32) model.FileInfo {
	node := fs.inodes.Get(ino)

	name := Separator
	if ino != inode.Root {
		name = fs.dirs.Dir(node.Parent).NameOf(ino)
	}

	return model.FileInfo{
		Inode:      ino,
		Name:       name,
		Type:       node.Type,
		Size:       node.Size,
		Perm:       node.Perm,
		LinkCount:  node.LinkCount,
		Parent:     node.Parent,
		CreatedAt:  node.CreatedAt,
		ModifiedAt: node.ModifiedAt,
	}
}
