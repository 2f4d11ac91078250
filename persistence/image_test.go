package persistence

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imagefs/internal/block"
	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
)

func buildTestState(t *testing.T) *State {
	t.Helper()

	now := time.Unix(1700000000, 0)
	st := NewState(now)

	ino, err := st.Inodes.Allocate()
	require.NoError(t, err)

	n := st.Inodes.Get(ino)
	n.Type = model.TypeRegular
	n.Size = 5
	n.Perm = model.PermRW
	n.LinkCount = 1
	n.Parent = inode.Root

	blk, err := st.Blocks.Allocate()
	require.NoError(t, err)
	copy(st.Blocks.Slot(blk), "hello")
	require.True(t, n.AppendBlock(blk))

	require.NoError(t, st.Dirs.Dir(inode.Root).Add("greeting.txt", ino))
	st.Inodes.Get(inode.Root).Size = 5

	st.OpenFiles[3] = OpenFile{Inode: ino, Offset: 2}
	st.CurrentDir = inode.Root

	return st
}

func requireStatesEqual(t *testing.T, want, got *State) {
	t.Helper()

	require.Equal(t, want.CurrentDir, got.CurrentDir)
	require.Equal(t, want.OpenFiles, got.OpenFiles)
	require.Equal(t, want.Inodes.UsedCount(), got.Inodes.UsedCount())
	require.Equal(t, want.Blocks.UsedCount(), got.Blocks.UsedCount())

	for i := int32(0); i < inode.Count; i++ {
		w, g := want.Inodes.Get(i), got.Inodes.Get(i)
		require.Equal(t, w.Type, g.Type, "inode %d type", i)
		require.Equal(t, w.Size, g.Size, "inode %d size", i)
		require.Equal(t, w.Perm, g.Perm, "inode %d perm", i)
		require.Equal(t, w.LinkCount, g.LinkCount, "inode %d link count", i)
		require.Equal(t, w.Parent, g.Parent, "inode %d parent", i)
		require.Equal(t, w.Blocks, g.Blocks, "inode %d block list", i)
		require.True(t, w.CreatedAt.Equal(g.CreatedAt), "inode %d created at", i)
		require.True(t, w.ModifiedAt.Equal(g.ModifiedAt), "inode %d modified at", i)
	}

	require.Equal(t, want.Dirs.Dir(inode.Root).Entries(), got.Dirs.Dir(inode.Root).Entries())

	for i := int32(0); i < block.NumSlots; i++ {
		require.Equal(t, want.Blocks.Slot(i), got.Blocks.Slot(i), "block %d", i)
	}
}

func TestImageRoundTrip(t *testing.T) {
	want := buildTestState(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeImage(&buf, want))
	require.Equal(t, ImageSize, buf.Len())

	got, err := DecodeImage(&buf)
	require.NoError(t, err)

	requireStatesEqual(t, want, got)
}

func TestDecodeImageRejectsBadHeader(t *testing.T) {
	st := buildTestState(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeImage(&buf, st))
	img := buf.Bytes()

	t.Run("BadMagic", func(t *testing.T) {
		corrupt := append([]byte(nil), img...)
		corrupt[0] ^= 0xff
		_, err := DecodeImage(bytes.NewReader(corrupt))
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("BadVersion", func(t *testing.T) {
		corrupt := append([]byte(nil), img...)
		corrupt[4] ^= 0xff
		_, err := DecodeImage(bytes.NewReader(corrupt))
		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("BadLayout", func(t *testing.T) {
		corrupt := append([]byte(nil), img...)
		corrupt[8] ^= 0xff // inode count field
		_, err := DecodeImage(bytes.NewReader(corrupt))
		require.ErrorIs(t, err, ErrInvalidLayout)
	})
}

func TestDecodeImageDetectsCorruption(t *testing.T) {
	st := buildTestState(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeImage(&buf, st))

	img := buf.Bytes()
	img[len(img)-1] ^= 0xff // flip a byte in the data region

	_, err := DecodeImage(bytes.NewReader(img))
	require.Error(t, err)
	require.True(t, IsChecksumMismatch(err))
}

func TestImageFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	img, created, err := OpenImage(path)
	require.NoError(t, err)
	require.True(t, created)

	want := buildTestState(t)
	require.NoError(t, img.WriteState(want))
	require.NoError(t, img.Close())

	img, created, err = OpenImage(path)
	require.NoError(t, err)
	require.False(t, created)
	defer img.Close()

	got, err := img.ReadState()
	require.NoError(t, err)
	requireStatesEqual(t, want, got)
}

func TestImageFileRewriteInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	img, _, err := OpenImage(path)
	require.NoError(t, err)
	defer img.Close()

	st := buildTestState(t)
	require.NoError(t, img.WriteState(st))

	st.CurrentDir = 1
	require.NoError(t, img.WriteState(st))

	got, err := img.ReadState()
	require.NoError(t, err)
	require.Equal(t, int32(1), got.CurrentDir)
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := buildTestState(t)

	var buf bytes.Buffer
	require.NoError(t, ExportSnapshot(&buf, want))
	require.Less(t, buf.Len(), ImageSize/10, "snapshot should compress an almost empty image")

	got, err := ImportSnapshot(&buf)
	require.NoError(t, err)
	requireStatesEqual(t, want, got)
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img.zst")

	want := buildTestState(t)
	require.NoError(t, ExportSnapshotFile(path, want))

	got, err := ImportSnapshotFile(path)
	require.NoError(t, err)
	requireStatesEqual(t, want, got)
}
