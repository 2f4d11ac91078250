package imagefs

import (
	"fmt"
	"strings"

	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
)

// Separator is the path component separator.
const Separator = "/"

// resolve walks path starting at start and returns the target inode index.
// A leading separator restarts at the root. "." is a no-op component, ".."
// moves to the parent, anything else is a directory entry lookup. Symbolic
// links are never followed; the link inode itself is returned.
func (fs *FS) resolve(path string, start int32) (int32, error) {
	cur := start
	if strings.HasPrefix(path, Separator) {
		cur = inode.Root
	}

	for _, comp := range strings.Split(path, Separator) {
		switch comp {
		case "", ".":
			continue
		case "..":
			cur = fs.inodes.Get(cur).Parent
			continue
		}

		next := fs.dirs.Dir(cur).Lookup(comp)
		if next == model.None {
			return model.None, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		cur = next
	}

	return cur, nil
}

// Resolve translates a path, relative to the current directory unless it is
// absolute, into an inode index. Symbolic links are not followed; callers
// that want transitive resolution read the link with ReadLink and resolve
// again.
func (fs *FS) Resolve(path string) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.resolve(path, fs.cwd)
}

// ResolveAt is Resolve with an explicit starting directory.
func (fs *FS) ResolveAt(path string, start int32) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.inodes.InUse(start) {
		return model.None, fmt.Errorf("%w: start inode %d", ErrInvalidArgument, start)
	}

	return fs.resolve(path, start)
}

// ChangeDir resolves path and makes it the current directory.
func (fs *FS) ChangeDir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ino, err := fs.resolve(path, fs.cwd)
	if err != nil {
		return err
	}
	if fs.inodes.Get(ino).Type != model.TypeDirectory {
		return fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}

	fs.cwd = ino

	return fs.commit()
}

// CurrentDir returns the inode index of the current directory.
func (fs *FS) CurrentDir() int32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.cwd
}

// PathOf reconstructs the absolute path of an inode by walking parent
// references up to the root.
func (fs *FS) PathOf(ino int32) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.inodes.InUse(ino) {
		return "", fmt.Errorf("%w: inode %d", ErrNotFound, ino)
	}

	if ino == inode.Root {
		return Separator, nil
	}

	var parts []string
	for cur := ino; cur != inode.Root; {
		parent := fs.inodes.Get(cur).Parent
		name := fs.dirs.Dir(parent).NameOf(cur)
		if name == "" {
			return "", fmt.Errorf("%w: inode %d has no entry in parent %d", ErrNotFound, cur, parent)
		}
		parts = append(parts, name)
		cur = parent
	}

	// parts were collected leaf-first
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString(Separator)
		sb.WriteString(parts[i])
	}

	return sb.String(), nil
}

// checkName validates a directory entry name.
func checkName(name string) error {
	switch {
	case name == "":
		return &ErrNameInvalid{Name: name, Reason: "empty"}
	case len(name) > MaxNameLen:
		return &ErrNameInvalid{Name: name, Reason: "too long"}
	case strings.Contains(name, Separator):
		return &ErrNameInvalid{Name: name, Reason: "contains separator"}
	case name == "." || name == "..":
		return &ErrNameInvalid{Name: name, Reason: "reserved"}
	}
	return nil
}

// dirArg validates a directory inode argument shared by the structural
// operations.
func (fs *FS) dirArg(dir int32) error {
	if !fs.inodes.InUse(dir) {
		return fmt.Errorf("%w: directory inode %d", ErrInvalidArgument, dir)
	}
	if fs.inodes.Get(dir).Type != model.TypeDirectory {
		return fmt.Errorf("%w: inode %d", ErrNotADirectory, dir)
	}
	return nil
}
