package imagefs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imagefs/model"
)

func writeTo(t *testing.T, fs *FS, name string, dir int32, data []byte) {
	t.Helper()

	fd, err := fs.OpenFile(name, dir)
	require.NoError(t, err)
	defer fs.CloseFile(fd)

	n, err := fs.Write(fd, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

func TestCreateFileDefaults(t *testing.T) {
	fs := New()

	ino, err := fs.CreateFile("fresh.txt", RootInode)
	require.NoError(t, err)

	fi, err := fs.StatInode(ino)
	require.NoError(t, err)
	require.Equal(t, model.TypeRegular, fi.Type)
	require.Equal(t, int64(0), fi.Size)
	require.Equal(t, model.PermRW, fi.Perm)
	require.Equal(t, int32(1), fi.LinkCount)
	require.Equal(t, RootInode, fi.Parent)

	// One block is allocated up front.
	require.Equal(t, 1, fs.Usage().BlocksUsed)
}

func TestDeleteFileFreesResources(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("gone.bin", RootInode)
	require.NoError(t, err)
	writeTo(t, fs, "gone.bin", RootInode, make([]byte, BlockSize+1))

	require.Equal(t, 2, fs.Usage().BlocksUsed)

	require.NoError(t, fs.DeleteFile("gone.bin", RootInode))

	require.Equal(t, 1, fs.Usage().InodesUsed)
	require.Equal(t, 0, fs.Usage().BlocksUsed)

	_, err = fs.Resolve("/gone.bin")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFileOnDirectoryFails(t *testing.T) {
	fs := New()

	_, err := fs.CreateDir("d", RootInode)
	require.NoError(t, err)

	require.ErrorIs(t, fs.DeleteFile("d", RootInode), ErrIsDirectory)
	require.ErrorIs(t, fs.DeleteFile("ghost", RootInode), ErrNotFound)
}

func TestMoveFilePreservesInodeAndContent(t *testing.T) {
	fs := New()

	dst, err := fs.CreateDir("dst", RootInode)
	require.NoError(t, err)

	ino, err := fs.CreateFile("mv.txt", RootInode)
	require.NoError(t, err)
	writeTo(t, fs, "mv.txt", RootInode, []byte("payload"))

	require.NoError(t, fs.MoveFile("mv.txt", RootInode, dst))

	_, err = fs.Resolve("/mv.txt")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := fs.Resolve("/dst/mv.txt")
	require.NoError(t, err)
	require.Equal(t, ino, got)

	require.Equal(t, "payload", readString(t, fs, "mv.txt", dst, 7))
}

func TestMoveFileErrors(t *testing.T) {
	fs := New()

	dst, err := fs.CreateDir("dst", RootInode)
	require.NoError(t, err)
	_, err = fs.CreateFile("f.txt", RootInode)
	require.NoError(t, err)

	t.Run("Collision", func(t *testing.T) {
		_, err := fs.CreateFile("f.txt", dst)
		require.NoError(t, err)
		require.ErrorIs(t, fs.MoveFile("f.txt", RootInode, dst), ErrAlreadyExists)
	})

	t.Run("OnDirectory", func(t *testing.T) {
		_, err := fs.CreateDir("sub", RootInode)
		require.NoError(t, err)
		require.ErrorIs(t, fs.MoveFile("sub", RootInode, dst), ErrIsDirectory)
	})

	t.Run("SourceNotWritable", func(t *testing.T) {
		ro, err := fs.CreateDir("ro", RootInode)
		require.NoError(t, err)
		_, err = fs.CreateFile("locked.txt", ro)
		require.NoError(t, err)
		require.NoError(t, fs.Chmod("/ro", model.Perm{Read: true}))

		require.ErrorIs(t, fs.MoveFile("locked.txt", ro, dst), ErrPermissionDenied)
	})
}

func TestCopyFileFollowsWritePath(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("orig.txt", RootInode)
	require.NoError(t, err)
	writeTo(t, fs, "orig.txt", RootInode, []byte("copy me"))

	rootBefore, err := fs.Stat("/")
	require.NoError(t, err)

	ino, err := fs.CopyFile("orig.txt", "dup.txt", RootInode, RootInode)
	require.NoError(t, err)

	fi, err := fs.StatInode(ino)
	require.NoError(t, err)
	require.Equal(t, int64(7), fi.Size)
	require.Equal(t, model.PermRW, fi.Perm)

	require.Equal(t, "copy me", readString(t, fs, "dup.txt", RootInode, 7))

	// The copy goes through the normal write path, so the delta bubbles to
	// the root again.
	rootAfter, err := fs.Stat("/")
	require.NoError(t, err)
	require.Equal(t, rootBefore.Size+7, rootAfter.Size)

	// Independent blocks: changing the copy leaves the original alone.
	fd, err := fs.OpenFile("dup.txt", RootInode)
	require.NoError(t, err)
	_, err = fs.Seek(fd, 0, io.SeekStart)
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("COPY"))
	require.NoError(t, err)
	require.NoError(t, fs.CloseFile(fd))

	require.Equal(t, "copy me", readString(t, fs, "orig.txt", RootInode, 7))
}

func TestCopyFilePermissions(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("hidden.txt", RootInode)
	require.NoError(t, err)
	require.NoError(t, fs.Chmod("/hidden.txt", model.Perm{Write: true}))

	_, err = fs.CopyFile("hidden.txt", "out.txt", RootInode, RootInode)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestChmod(t *testing.T) {
	fs := New()

	_, err := fs.CreateFile("p.txt", RootInode)
	require.NoError(t, err)

	require.NoError(t, fs.Chmod("/p.txt", model.Perm{Read: true, Exec: true}))

	fi, err := fs.Stat("/p.txt")
	require.NoError(t, err)
	require.Equal(t, "r-x", fi.Perm.String())

	require.ErrorIs(t, fs.Chmod("/missing", model.PermAll), ErrNotFound)
}

func TestStat(t *testing.T) {
	fs := New()

	dir, err := fs.CreateDir("home", RootInode)
	require.NoError(t, err)
	_, err = fs.CreateFile("me.txt", dir)
	require.NoError(t, err)

	fi, err := fs.Stat("/home/me.txt")
	require.NoError(t, err)
	require.Equal(t, "me.txt", fi.Name)
	require.Equal(t, dir, fi.Parent)
	require.False(t, fi.IsDir())

	root, err := fs.Stat("/")
	require.NoError(t, err)
	require.Equal(t, Separator, root.Name)
	require.Equal(t, RootInode, root.Inode)
	require.True(t, root.IsDir())
}
