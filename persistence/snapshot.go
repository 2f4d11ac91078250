package persistence

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ExportSnapshot writes a zstd-compressed copy of st to w. Snapshots use the
// same layout as the backing image, so ImportSnapshot and DecodeImage see
// identical bytes after decompression. Images are dominated by zeroed blocks
// and empty table slots, which compress extremely well.
func ExportSnapshot(w io.Writer, st *State) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create snapshot compressor: %w", err)
	}

	if err := EncodeImage(enc, st); err != nil {
		enc.Close()
		return err
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize snapshot: %w", err)
	}

	return nil
}

// ImportSnapshot reads a snapshot produced by ExportSnapshot.
func ImportSnapshot(r io.Reader) (*State, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create snapshot decompressor: %w", err)
	}
	defer dec.Close()

	return DecodeImage(dec)
}

// ExportSnapshotFile writes a snapshot to path, replacing any existing file.
func ExportSnapshotFile(path string, st *State) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", path, err)
	}

	if err := ExportSnapshot(f, st); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// ImportSnapshotFile reads a snapshot from path.
func ImportSnapshotFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	return ImportSnapshot(f)
}
