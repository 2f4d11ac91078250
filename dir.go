package imagefs

import (
	"fmt"

	"github.com/hupe1980/imagefs/model"
)

func (fs *FS) createDir(name string, dir int32, perm model.Perm) (int32, error) {
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

	now := fs.now()
	node := fs.inodes.Get(ino)
	node.Type = model.TypeDirectory
	node.Size = 0
	node.Perm = perm
	node.LinkCount = 1
	node.Parent = dir
	node.CreatedAt = now
	node.ModifiedAt = now

	// The entry table slot may carry leftovers from a previous life of this
	// inode index.
	fs.dirs.Dir(ino).Clear()

	if err := fs.dirs.Dir(dir).Add(name, ino); err != nil {
		fs.inodes.Release(ino, fs.now())
		return model.None, fmt.Errorf("%w: %v", ErrExhausted, err)
	}

	return ino, nil
}

// CreateDir creates an empty directory named name in dir with full
// permissions. Requires write permission on dir.
func (fs *FS) CreateDir(name string, dir int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	ino, err := fs.createDir(name, dir, model.PermAll)
	fs.metrics.RecordCreate("dir", fs.now().Sub(start), err)
	fs.logger.LogCreate("dir", name, ino, err)
	if err != nil {
		return model.None, err
	}

	if err := fs.commit(); err != nil {
		return ino, err
	}
	return ino, nil
}

// ReadDir enumerates the occupied entries of a directory in storage order.
// Requires read permission.
func (fs *FS) ReadDir(dir int32) ([]model.DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.dirArg(dir); err != nil {
		return nil, err
	}
	if !fs.inodes.Get(dir).Perm.Read {
		return nil, fmt.Errorf("%w: read on directory %d", ErrPermissionDenied, dir)
	}

	return fs.dirs.Dir(dir).Entries(), nil
}

// DeleteDir deletes the named directory from dir together with every
// descendant. The traversal runs on an explicit worklist in storage order,
// so directory depth is bounded by memory, not the call stack. Requires
// write permission on the target directory. Exactly one entry disappears
// from dir.
func (fs *FS) DeleteDir(name string, dir int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	err := fs.deleteDir(name, dir)
	fs.metrics.RecordDelete("dir", fs.now().Sub(start), err)
	fs.logger.LogDelete("dir", name, err)
	if err != nil {
		return err
	}

	return fs.commit()
}

type delItem struct {
	dir      int32 // containing directory
	name     string
	ino      int32
	expanded bool
}

func (fs *FS) deleteDir(name string, dir int32) error {
	if err := fs.dirArg(dir); err != nil {
		return err
	}

	ino := fs.dirs.Dir(dir).Lookup(name)
	if ino == model.None {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if fs.inodes.Get(ino).Type != model.TypeDirectory {
		return fmt.Errorf("%w: %s", ErrNotADirectory, name)
	}
	if !fs.inodes.Get(ino).Perm.Write {
		return fmt.Errorf("%w: write on directory %d", ErrPermissionDenied, ino)
	}

	stack := []delItem{{dir: dir, name: name, ino: ino}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if fs.inodes.Get(top.ino).Type == model.TypeDirectory && !top.expanded {
			top.expanded = true
			children := fs.dirs.Dir(top.ino).Entries()
			// Pushed in reverse so they pop in storage order.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, delItem{
					dir:  top.ino,
					name: children[i].Name,
					ino:  children[i].Inode,
				})
			}
			continue
		}

		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fs.removeObject(it.name, it.ino, it.dir)
	}

	return nil
}

// MoveDir moves the named directory from srcDir to dstDir, updating its
// parent back-reference. Requires write permission on both directories.
func (fs *FS) MoveDir(name string, srcDir, dstDir int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	err := fs.moveEntry(name, srcDir, dstDir, true)
	fs.metrics.RecordStructural("move", fs.now().Sub(start), err)
	if err != nil {
		return err
	}

	return fs.commit()
}

// CopyDir copies the named directory from srcDir into dstDir under newName,
// recursing over every occupied entry on an explicit worklist. Files and
// symbolic links are copied through the normal write path; subdirectories
// get the source's permissions. Requires read permission on the source tree
// and write permission on dstDir.
func (fs *FS) CopyDir(name, newName string, srcDir, dstDir int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	ino, err := fs.copyDir(name, newName, srcDir, dstDir)
	fs.metrics.RecordStructural("copy", fs.now().Sub(start), err)
	if err != nil {
		return model.None, err
	}

	if err := fs.commit(); err != nil {
		return ino, err
	}
	return ino, nil
}

type copyItem struct {
	srcIno int32
	name   string
	dstDir int32
}

func (fs *FS) copyDir(name, newName string, srcDir, dstDir int32) (int32, error) {
	if err := fs.dirArg(srcDir); err != nil {
		return model.None, err
	}

	srcIno := fs.dirs.Dir(srcDir).Lookup(name)
	if srcIno == model.None {
		return model.None, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	src := fs.inodes.Get(srcIno)
	if src.Type != model.TypeDirectory {
		return model.None, fmt.Errorf("%w: %s", ErrNotADirectory, name)
	}
	if !src.Perm.Read {
		return model.None, fmt.Errorf("%w: read on directory %d", ErrPermissionDenied, srcIno)
	}

	// A destination inside the source subtree would make the walk copy its
	// own output until inodes run out.
	if fs.withinSubtree(srcIno, dstDir) {
		return model.None, fmt.Errorf("%w: cannot copy %s into its own subtree", ErrInvalidArgument, name)
	}

	root, err := fs.createDir(newName, dstDir, src.Perm)
	if err != nil {
		return model.None, err
	}

	var work []copyItem
	children := fs.dirs.Dir(srcIno).Entries()
	for i := len(children) - 1; i >= 0; i-- {
		work = append(work, copyItem{srcIno: children[i].Inode, name: children[i].Name, dstDir: root})
	}

	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		node := fs.inodes.Get(it.srcIno)
		if node.Type == model.TypeDirectory {
			if !node.Perm.Read {
				return root, fmt.Errorf("%w: read on directory %d", ErrPermissionDenied, it.srcIno)
			}
			sub, err := fs.createDir(it.name, it.dstDir, node.Perm)
			if err != nil {
				return root, err
			}
			grand := fs.dirs.Dir(it.srcIno).Entries()
			for i := len(grand) - 1; i >= 0; i-- {
				work = append(work, copyItem{srcIno: grand[i].Inode, name: grand[i].Name, dstDir: sub})
			}
			continue
		}

		if !node.Perm.Read {
			return root, fmt.Errorf("%w: read on inode %d", ErrPermissionDenied, it.srcIno)
		}

		content := fs.contentOf(node)
		ino, err := fs.createObject(it.name, it.dstDir, node.Type, node.Perm)
		if err != nil {
			return root, err
		}
		accounted, _, err := fs.writeCore(fs.inodes.Get(ino), 0, content)
		if accounted > 0 {
			fs.bubbleSize(ino, int64(accounted))
		}
		if err != nil {
			return root, err
		}
	}

	return root, nil
}
