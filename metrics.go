package imagefs

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the promfs
// package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordCreate is called after each file, directory, link or symlink
	// creation. kind is "file", "dir", "link" or "symlink".
	RecordCreate(kind string, duration time.Duration, err error)

	// RecordDelete is called after each file or directory deletion.
	RecordDelete(kind string, duration time.Duration, err error)

	// RecordStructural is called after move and copy operations.
	// op is "move" or "copy".
	RecordStructural(op string, duration time.Duration, err error)

	// RecordRead is called after each descriptor read. n is the number of
	// bytes returned, err is nil if successful.
	RecordRead(n int, duration time.Duration, err error)

	// RecordWrite is called after each descriptor write. n is the number of
	// newly accounted bytes.
	RecordWrite(n int, duration time.Duration, err error)

	// RecordSave is called after each image serialization.
	RecordSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordDelete(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordStructural(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CreateCount      atomic.Int64
	CreateErrors     atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	StructuralCount  atomic.Int64
	StructuralErrors atomic.Int64
	ReadCount        atomic.Int64
	ReadErrors       atomic.Int64
	ReadBytes        atomic.Int64
	ReadTotalNanos   atomic.Int64
	WriteCount       atomic.Int64
	WriteErrors      atomic.Int64
	WriteBytes       atomic.Int64
	WriteTotalNanos  atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(kind string, duration time.Duration, err error) {
	b.CreateCount.Add(1)
	if err != nil {
		b.CreateErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(kind string, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordStructural implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStructural(op string, duration time.Duration, err error) {
	b.StructuralCount.Add(1)
	if err != nil {
		b.StructuralErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(n int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(n))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(n int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteBytes.Add(int64(n))
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// BasicMetricsStats is a point-in-time snapshot of a BasicMetricsCollector.
type BasicMetricsStats struct {
	CreateCount      int64
	CreateErrors     int64
	DeleteCount      int64
	DeleteErrors     int64
	StructuralCount  int64
	StructuralErrors int64
	ReadCount        int64
	ReadErrors       int64
	ReadBytes        int64
	WriteCount       int64
	WriteErrors      int64
	WriteBytes       int64
	SaveCount        int64
	SaveErrors       int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:      b.CreateCount.Load(),
		CreateErrors:     b.CreateErrors.Load(),
		DeleteCount:      b.DeleteCount.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
		StructuralCount:  b.StructuralCount.Load(),
		StructuralErrors: b.StructuralErrors.Load(),
		ReadCount:        b.ReadCount.Load(),
		ReadErrors:       b.ReadErrors.Load(),
		ReadBytes:        b.ReadBytes.Load(),
		WriteCount:       b.WriteCount.Load(),
		WriteErrors:      b.WriteErrors.Load(),
		WriteBytes:       b.WriteBytes.Load(),
		SaveCount:        b.SaveCount.Load(),
		SaveErrors:       b.SaveErrors.Load(),
	}
}
