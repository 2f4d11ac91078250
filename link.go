package imagefs

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/imagefs/model"
)

// Link creates a hard link: a second directory entry in dstDir named
// linkName, referencing the same inode as targetName in srcDir. The link
// count is incremented; no inode or block is allocated. Directories cannot
// be hard-linked.
func (fs *FS) Link(targetName, linkName string, srcDir, dstDir int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	err := fs.link(targetName, linkName, srcDir, dstDir)
	fs.metrics.RecordCreate("link", fs.now().Sub(start), err)
	fs.logger.LogCreate("link", linkName, model.None, err)
	if err != nil {
		return err
	}

	return fs.commit()
}

func (fs *FS) link(targetName, linkName string, srcDir, dstDir int32) error {
	if err := checkName(linkName); err != nil {
		return err
	}
	if err := fs.dirArg(srcDir); err != nil {
		return err
	}
	if err := fs.dirArg(dstDir); err != nil {
		return err
	}

	ino := fs.dirs.Dir(srcDir).Lookup(targetName)
	if ino == model.None {
		return fmt.Errorf("%w: %s", ErrNotFound, targetName)
	}
	if fs.inodes.Get(ino).Type == model.TypeDirectory {
		return fmt.Errorf("%w: %s", ErrIsDirectory, targetName)
	}

	if fs.dirs.Dir(dstDir).Lookup(linkName) != model.None {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, linkName)
	}
	if fs.dirs.Dir(dstDir).FreeSlot() < 0 {
		return fmt.Errorf("%w: directory %d is full", ErrExhausted, dstDir)
	}

	fs.dirs.Dir(dstDir).Add(linkName, ino)
	fs.inodes.Get(ino).LinkCount++

	return nil
}

// Symlink creates a symbolic link named linkName in dir. The literal target
// path plus a NUL terminator is stored in the link's single data block and
// its size is the encoded length. The target must resolve at creation time,
// but nothing re-validates it afterwards; resolution of the link itself is
// always the caller's job via ReadLink.
func (fs *FS) Symlink(linkName, targetPath string, dir int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	start := fs.now()
	ino, err := fs.symlink(linkName, targetPath, dir)
	fs.metrics.RecordCreate("symlink", fs.now().Sub(start), err)
	fs.logger.LogCreate("symlink", linkName, ino, err)
	if err != nil {
		return model.None, err
	}

	if err := fs.commit(); err != nil {
		return ino, err
	}
	return ino, nil
}

func (fs *FS) symlink(linkName, targetPath string, dir int32) (int32, error) {
	if len(targetPath)+1 > BlockSize {
		return model.None, fmt.Errorf("%w: target path longer than one block", ErrInvalidArgument)
	}

	if err := fs.dirArg(dir); err != nil {
		return model.None, err
	}
	if _, err := fs.resolve(targetPath, dir); err != nil {
		return model.None, err
	}

	ino, err := fs.createObject(linkName, dir, model.TypeSymlink, model.PermRW)
	if err != nil {
		return model.None, err
	}

	node := fs.inodes.Get(ino)
	slot := fs.blocks.Slot(node.Blocks[0])
	copy(slot, targetPath)
	slot[len(targetPath)] = 0
	node.Size = int64(len(targetPath)) + 1

	return ino, nil
}

// ReadLink returns the target path stored in the named symbolic link.
// Requires read permission on the link inode.
func (fs *FS) ReadLink(name string, dir int32) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.dirArg(dir); err != nil {
		return "", err
	}

	ino := fs.dirs.Dir(dir).Lookup(name)
	if ino == model.None {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	node := fs.inodes.Get(ino)
	if node.Type != model.TypeSymlink {
		return "", fmt.Errorf("%w: %s is not a symbolic link", ErrInvalidArgument, name)
	}
	if !node.Perm.Read {
		return "", fmt.Errorf("%w: read on inode %d", ErrPermissionDenied, ino)
	}

	slot := fs.blocks.Slot(node.Blocks[0])
	target := slot
	if i := bytes.IndexByte(slot, 0); i >= 0 {
		target = slot[:i]
	}

	return string(target), nil
}
