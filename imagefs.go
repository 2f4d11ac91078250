package imagefs

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/imagefs/internal/block"
	"github.com/hupe1980/imagefs/internal/dirent"
	"github.com/hupe1980/imagefs/internal/inode"
	"github.com/hupe1980/imagefs/model"
	"github.com/hupe1980/imagefs/persistence"
)

// Fixed capacities of every filesystem instance. The backing image layout
// depends on them; they cannot be changed at runtime.
const (
	// NumInodes is the inode table capacity.
	NumInodes = inode.Count
	// NumBlocks is the number of data blocks.
	NumBlocks = block.NumSlots
	// BlockSize is the byte size of one data block.
	BlockSize = block.SlotSize
	// NumDirEntries is the entry capacity of one directory.
	NumDirEntries = dirent.NumEntries
	// MaxOpenFiles is the descriptor table capacity.
	MaxOpenFiles = persistence.MaxOpenFiles
	// MaxNameLen is the longest storable directory entry name.
	MaxNameLen = dirent.MaxNameLen
)

// RootInode is the inode index of the root directory.
const RootInode = inode.Root

// FS is one simulated filesystem instance: the inode table, directory store,
// block store, descriptor table and working directory, optionally bound to a
// locked backing image. Instances are independent; tests construct throwaway
// in-memory ones with New.
//
// Operations are synchronous and serialized by an internal mutex. There are
// no internal suspension points; every call runs to completion or returns an
// error with the documented partial effect.
type FS struct {
	mu sync.Mutex

	inodes *inode.Table
	dirs   *dirent.Store
	blocks *block.Store
	fds    [MaxOpenFiles]persistence.OpenFile
	cwd    int32

	img    *persistence.ImageFile
	closed bool

	autosave bool
	logger   *Logger
	metrics  MetricsCollector
	now      func() time.Time
}

// New creates a fresh in-memory filesystem with an initialized root
// directory and no backing image. Save returns ErrNoImage on such an
// instance; use Open for durable sessions.
func New(opts ...Option) *FS {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return adopt(persistence.NewState(o.now()), nil, o)
}

// Open opens the backing image at path, taking an exclusive advisory lock
// that is held until Close. A missing or empty image triggers first-time
// initialization; anything else is deserialized and verified. The call
// blocks while another process holds the lock.
func Open(path string, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	img, created, err := persistence.OpenImage(path)
	if err != nil {
		return nil, err
	}

	var st *persistence.State
	if created {
		st = persistence.NewState(o.now())
		if err := img.WriteState(st); err != nil {
			img.Close()
			return nil, fmt.Errorf("initialize image: %w", err)
		}
		o.logger.Info("image initialized", "path", path)
	} else {
		st, err = img.ReadState()
		if err != nil {
			img.Close()
			return nil, fmt.Errorf("load image: %w", err)
		}
		o.logger.Debug("image loaded", "path", path)
	}

	return adopt(st, img, o), nil
}

// ImportSnapshot rebuilds an in-memory filesystem from a zstd snapshot
// produced by ExportSnapshot. The result has no backing image.
func ImportSnapshot(r io.Reader, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	st, err := persistence.ImportSnapshot(r)
	if err != nil {
		return nil, err
	}

	return adopt(st, nil, o), nil
}

// ImportSnapshotFile rebuilds an in-memory filesystem from a snapshot file.
func ImportSnapshotFile(path string, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	st, err := persistence.ImportSnapshotFile(path)
	if err != nil {
		return nil, err
	}

	return adopt(st, nil, o), nil
}

func adopt(st *persistence.State, img *persistence.ImageFile, o *options) *FS {
	return &FS{
		inodes:   st.Inodes,
		dirs:     st.Dirs,
		blocks:   st.Blocks,
		fds:      st.OpenFiles,
		cwd:      st.CurrentDir,
		img:      img,
		autosave: o.autosave,
		logger:   o.logger,
		metrics:  o.metricsCollector,
		now:      o.now,
	}
}

func (fs *FS) state() *persistence.State {
	return &persistence.State{
		Inodes:     fs.inodes,
		Dirs:       fs.dirs,
		Blocks:     fs.blocks,
		CurrentDir: fs.cwd,
		OpenFiles:  fs.fds,
	}
}

// Save serializes the whole aggregate to the backing image. It fails with
// ErrNoImage on purely in-memory instances.
func (fs *FS) Save() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	return fs.saveLocked()
}

func (fs *FS) saveLocked() error {
	if fs.img == nil {
		return ErrNoImage
	}

	start := fs.now()
	err := fs.img.WriteState(fs.state())
	fs.metrics.RecordSave(fs.now().Sub(start), err)
	fs.logger.LogSave(fs.img.Path(), err)

	return err
}

// commit persists the aggregate after a successful mutating operation when
// autosave is enabled and a backing image exists.
func (fs *FS) commit() error {
	if fs.img == nil || !fs.autosave {
		return nil
	}
	if err := fs.saveLocked(); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

// Close saves the image a final time (when autosave is enabled), releases
// the advisory lock and closes the backing file. In-memory instances just
// mark themselves closed. Close is idempotent.
func (fs *FS) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	if fs.img == nil {
		return nil
	}

	var saveErr error
	if fs.autosave {
		saveErr = fs.saveLocked()
	}

	closeErr := fs.img.Close()
	fs.img = nil

	if saveErr != nil {
		return saveErr
	}
	return closeErr
}

// ExportSnapshot writes a zstd-compressed copy of the aggregate to w.
func (fs *FS) ExportSnapshot(w io.Writer) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	return persistence.ExportSnapshot(w, fs.state())
}

// ExportSnapshotFile writes a snapshot to path, replacing any existing file.
func (fs *FS) ExportSnapshotFile(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	err := persistence.ExportSnapshotFile(path, fs.state())
	fs.logger.LogSnapshot(path, err)

	return err
}

// Usage is a point-in-time occupancy snapshot.
type Usage struct {
	InodesUsed  int
	BlocksUsed  int
	Descriptors int
}

// Usage reports current inode, block and descriptor occupancy.
func (fs *FS) Usage() Usage {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	u := Usage{
		InodesUsed: fs.inodes.UsedCount(),
		BlocksUsed: fs.blocks.UsedCount(),
	}
	for i := range fs.fds {
		if fs.fds[i].Inode != model.None {
			u.Descriptors++
		}
	}
	return u
}
