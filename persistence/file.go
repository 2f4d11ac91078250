package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// ImageFile is an open, exclusively locked backing image. The advisory lock
// is taken when the file is opened and held until Close, so saves rewrite the
// image in place rather than going through a rename.
type ImageFile struct {
	f    *os.File
	path string
}

// OpenImage opens or creates the backing image at path and takes an exclusive
// advisory lock on it. The call blocks while another process holds the lock.
// The returned created flag reports whether the file is brand new (or empty)
// and therefore needs an initial state written.
func OpenImage(path string) (*ImageFile, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open image %s: %w", path, err)
	}

	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("lock image %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		unlock(f)
		f.Close()
		return nil, false, fmt.Errorf("stat image %s: %w", path, err)
	}

	return &ImageFile{f: f, path: path}, fi.Size() == 0, nil
}

// Path returns the image file path.
func (img *ImageFile) Path() string {
	return img.path
}

// WriteState serializes st over the image, starting at offset zero, and
// flushes it to stable storage.
func (img *ImageFile) WriteState(st *State) error {
	if _, err := img.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek image %s: %w", img.path, err)
	}

	w := bufio.NewWriterSize(img.f, 1<<20)
	if err := EncodeImage(w, st); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush image %s: %w", img.path, err)
	}

	if err := img.f.Truncate(ImageSize); err != nil {
		return fmt.Errorf("truncate image %s: %w", img.path, err)
	}

	if err := img.f.Sync(); err != nil {
		return fmt.Errorf("sync image %s: %w", img.path, err)
	}

	return nil
}

// ReadState deserializes the image from offset zero.
func (img *ImageFile) ReadState() (*State, error) {
	if _, err := img.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek image %s: %w", img.path, err)
	}

	return DecodeImage(bufio.NewReaderSize(img.f, 1<<20))
}

// Close releases the advisory lock and closes the file.
func (img *ImageFile) Close() error {
	if img.f == nil {
		return nil
	}
	unlockErr := unlock(img.f)
	closeErr := img.f.Close()
	img.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
