package imagefs

import "time"

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	autosave         bool
	now              func() time.Time
}

// Option configures FS constructor behavior.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		autosave:         true,
		now:              time.Now,
	}
}

// WithLogger configures structured logging for all operations.
//
// If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures operational metrics collection.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithAutosave controls whether every successful mutating operation
// re-serializes the aggregate to the backing image. Enabled by default for
// image-backed instances; it has no effect on purely in-memory ones.
func WithAutosave(enabled bool) Option {
	return func(o *options) {
		o.autosave = enabled
	}
}

// WithClock injects the time source used for inode timestamps. Tests use
// this for deterministic CreatedAt/ModifiedAt values.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now == nil {
			now = time.Now
		}
		o.now = now
	}
}
