package splatsort

import "log/slog"

// Order selects the direction of the produced index permutation.
type Order uint8

const (
	// BackToFront orders splats by descending depth, farthest first.
	// This is the order standard "over" alpha blending needs.
	BackToFront Order = iota

	// FrontToBack orders splats by ascending depth, nearest first.
	// Useful for front-to-back "under" blending with early termination.
	FrontToBack
)

// String returns the order name.
func (o Order) String() string {
	switch o {
	case BackToFront:
		return "BackToFront"
	case FrontToBack:
		return "FrontToBack"
	default:
		return "Unknown"
	}
}

// Metric selects the scalar used as splat depth.
type Metric uint8

const (
	// MetricForward uses dot(position, forward). Camera translation does not
	// change this order, so positions may be in any frame.
	MetricForward Metric = iota

	// MetricDistance uses the squared distance from the camera position.
	// The camera orientation is ignored.
	MetricDistance
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case MetricForward:
		return "Forward"
	case MetricDistance:
		return "Distance"
	default:
		return "Unknown"
	}
}

// Bucket resolution limits for the quantized counting sort.
//
// 2^16 buckets keep the count table at 256 KiB (inside L2 on current CPUs)
// while leaving about 16 splats per bucket for a uniform million-splat
// cloud. Raising the bit count tightens the order inside a bucket at the
// cost of a larger table to clear and prefix-sum every frame.
const (
	MinBucketBits     = 8
	MaxBucketBits     = 24
	DefaultBucketBits = 16
)

// ParallelThreshold is the splat count from which a sort spreads its
// linear passes across the worker pool. Below it, a single goroutine is
// faster than the dispatch.
const ParallelThreshold = 1 << 15

// maxChunks caps the number of per-chunk histograms a sorter keeps.
const maxChunks = 64

// Option configures a Sorter during creation.
//
// Example:
//
//	s := splatsort.New(
//	    splatsort.WithOrder(splatsort.FrontToBack),
//	    splatsort.WithBucketBits(20),
//	)
type Option func(*options)

// options holds Sorter configuration.
type options struct {
	order      Order
	metric     Metric
	bucketBits int
	exact      bool
	axis       Vec3
	workers    int
	capacity   int
	logger     *slog.Logger
}

// defaultOptions returns the default sorter options.
func defaultOptions() options {
	return options{
		order:      BackToFront,
		metric:     MetricForward,
		bucketBits: DefaultBucketBits,
		axis:       CanonicalForward,
		workers:    0, // shared pool
	}
}

// WithOrder sets the output direction. The default is BackToFront.
func WithOrder(o Order) Option {
	return func(opts *options) {
		opts.order = o
	}
}

// WithMetric sets the depth metric. The default is MetricForward.
func WithMetric(m Metric) Option {
	return func(opts *options) {
		opts.metric = m
	}
}

// WithBucketBits sets the bucket count of the quantized sort to 1<<bits.
// Values outside [MinBucketBits, MaxBucketBits] are clamped.
func WithBucketBits(bits int) Option {
	return func(opts *options) {
		opts.bucketBits = max(MinBucketBits, min(bits, MaxBucketBits))
	}
}

// WithExactOrder replaces the quantized counting sort with an exact stable
// radix sort over the depth bits. It is still linear in the splat count
// but does two scatter passes instead of one.
func WithExactOrder() Option {
	return func(opts *options) {
		opts.exact = true
	}
}

// WithForwardAxis sets the view direction of an unrotated camera.
// The axis is normalized; a zero axis leaves CanonicalForward in place.
func WithForwardAxis(axis Vec3) Option {
	return func(opts *options) {
		if n := axis.Normalize(); n != (Vec3{}) {
			opts.axis = n
		}
	}
}

// WithWorkers gives the sorter its own pool of n worker goroutines,
// released by Close. n == 1 sorts on the calling goroutine only.
// n <= 0 uses the process-wide shared pool (the default).
func WithWorkers(n int) Option {
	return func(opts *options) {
		opts.workers = n
	}
}

// WithInitialCapacity pre-sizes scratch buffers for n splats so the first
// frames do not allocate.
func WithInitialCapacity(n int) Option {
	return func(opts *options) {
		opts.capacity = max(n, 0)
	}
}

// WithLogger gives the sorter its own logger. Without it, or with nil,
// the sorter logs to the package logger set by SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = l
	}
}
