package imagefs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imagefs/model"
)

func TestHardLink(t *testing.T) {
	fs := New()

	ino, err := fs.CreateFile("orig.txt", RootInode)
	require.NoError(t, err)
	writeTo(t, fs, "orig.txt", RootInode, []byte("shared"))

	dir, err := fs.CreateDir("aliases", RootInode)
	require.NoError(t, err)

	require.NoError(t, fs.Link("orig.txt", "alias.txt", RootInode, dir))

	got, err := fs.Resolve("/aliases/alias.txt")
	require.NoError(t, err)
	require.Equal(t, ino, got)

	fi, err := fs.StatInode(ino)
	require.NoError(t, err)
	require.Equal(t, int32(2), fi.LinkCount)

	// No new inode or block.
	require.Equal(t, 3, fs.Usage().InodesUsed)
	require.Equal(t, 1, fs.Usage().BlocksUsed)

	require.Equal(t, "shared", readString(t, fs, "alias.txt", dir, 6))
}

func TestHardLinkErrors(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("t.txt", RootInode)
	require.NoError(t, err)
	_, err = fs.CreateDir("d", RootInode)
	require.NoError(t, err)

	t.Run("TargetMissing", func(t *testing.T) {
		require.ErrorIs(t, fs.Link("ghost", "l", RootInode, RootInode), ErrNotFound)
	})

	t.Run("NameCollision", func(t *testing.T) {
		require.ErrorIs(t, fs.Link("t.txt", "t.txt", RootInode, RootInode), ErrAlreadyExists)
	})

	t.Run("DirectoryTarget", func(t *testing.T) {
		require.ErrorIs(t, fs.Link("d", "dlink", RootInode, RootInode), ErrIsDirectory)
	})
}

func TestHardLinkDeleteHazard(t *testing.T) {
	fs := New()

	ino, err := fs.CreateFile("orig.txt", RootInode)
	require.NoError(t, err)
	require.NoError(t, fs.Link("orig.txt", "alias.txt", RootInode, RootInode))

	// Deleting through one name frees the inode and its blocks
	// unconditionally; the remaining entry is orphaned and the link count
	// is reset, not decremented. This is the engine's documented contract,
	// asserted here as observed behavior.
	require.NoError(t, fs.DeleteFile("orig.txt", RootInode))

	require.Equal(t, 1, fs.Usage().InodesUsed)
	require.Equal(t, 0, fs.Usage().BlocksUsed)

	entries, err := fs.ReadDir(RootInode)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "alias.txt", entries[0].Name)
	require.Equal(t, ino, entries[0].Inode)

	_, err = fs.StatInode(ino)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSymlinkStoreAndRead(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("target.txt", RootInode)
	require.NoError(t, err)

	ino, err := fs.Symlink("ln.txt", "/target.txt", RootInode)
	require.NoError(t, err)

	fi, err := fs.StatInode(ino)
	require.NoError(t, err)
	require.Equal(t, model.TypeSymlink, fi.Type)
	require.Equal(t, int64(len("/target.txt")+1), fi.Size)

	target, err := fs.ReadLink("ln.txt", RootInode)
	require.NoError(t, err)
	require.Equal(t, "/target.txt", target)

	// Transitive resolution is the caller's job.
	resolved, err := fs.Resolve(target)
	require.NoError(t, err)
	want, err := fs.Resolve("/target.txt")
	require.NoError(t, err)
	require.Equal(t, want, resolved)
}

func TestSymlinkErrors(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("t.txt", RootInode)
	require.NoError(t, err)

	t.Run("TargetMissing", func(t *testing.T) {
		_, err := fs.Symlink("dangling", "/nowhere", RootInode)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NameCollision", func(t *testing.T) {
		_, err := fs.Symlink("t.txt", "/t.txt", RootInode)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("ReadLinkOnFile", func(t *testing.T) {
		_, err := fs.ReadLink("t.txt", RootInode)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestSymlinkDelete(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("t.txt", RootInode)
	require.NoError(t, err)
	_, err = fs.Symlink("ln", "/t.txt", RootInode)
	require.NoError(t, err)

	require.Equal(t, 2, fs.Usage().BlocksUsed)

	require.NoError(t, fs.DeleteFile("ln", RootInode))

	require.Equal(t, 1, fs.Usage().BlocksUsed)
	_, err = fs.Resolve("/t.txt")
	require.NoError(t, err)
}
