// Command splatsort sorts a splat cloud over a rotating camera and reports
// the per-frame sort time.
//
// The cloud is read from a .splat file (-in) or synthesized. With -png the
// last frame is rendered as an alpha-blended preview in sorted order.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"runtime"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/splatsort"
	"github.com/gogpu/splatsort/splatfile"
)

func main() {
	var (
		in      = flag.String("in", "", "input .splat or .splat.gz file (default: synthetic cloud)")
		count   = flag.Int("n", 200000, "synthetic splat count")
		seed    = flag.Uint64("seed", 1, "synthetic cloud seed")
		frames  = flag.Int("frames", 60, "frames to sort over one camera orbit")
		order   = flag.String("order", "back", "output order: back or front")
		exact   = flag.Bool("exact", false, "exact radix order instead of quantized buckets")
		bits    = flag.Int("bits", splatsort.DefaultBucketBits, "bucket bits of the quantized sort")
		workers = flag.Int("workers", 0, "worker goroutines (0: shared pool, 1: serial)")
		useGPU  = flag.Bool("gpu", false, "project depths on the GPU")
		out     = flag.String("png", "", "write a preview of the last frame to this PNG file")
		size    = flag.Int("size", 512, "preview size in pixels")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	splatsort.SetLogger(logger)

	positions, err := loadCloud(*in, *count, *seed)
	if err != nil {
		log.Fatalf("Failed to load cloud: %v", err)
	}
	if n := splatsort.SanitizePositions(positions); n > 0 {
		splatsort.Logger().Warn("non-finite positions replaced", "count", n)
	}

	opts := []splatsort.Option{
		splatsort.WithBucketBits(*bits),
		splatsort.WithWorkers(*workers),
		splatsort.WithInitialCapacity(len(positions)),
		splatsort.WithLogger(logger.With("component", "sorter")),
	}
	switch *order {
	case "back":
		opts = append(opts, splatsort.WithOrder(splatsort.BackToFront))
	case "front":
		opts = append(opts, splatsort.WithOrder(splatsort.FrontToBack))
	default:
		log.Fatalf("Unknown order %q (want back or front)", *order)
	}
	if *exact {
		opts = append(opts, splatsort.WithExactOrder())
	}

	s := splatsort.New(opts...)
	defer s.Close()

	sortFrame := func(cam splatsort.Camera, dst []uint32) error {
		s.SortFrom(positions, cam, dst)
		return nil
	}
	if *useGPU {
		p, err := openProjector(logger.With("component", "gpu"))
		if err != nil {
			splatsort.Logger().Warn("GPU projection unavailable, sorting on CPU", "err", err)
		} else {
			defer p.Close()
			sortFrame = func(cam splatsort.Camera, dst []uint32) error {
				return p.Sort(s, positions, cam, dst)
			}
		}
	}

	indexes := make([]uint32, len(positions))
	stats, cam, err := run(*frames, indexes, sortFrame)
	if err != nil {
		log.Fatalf("Sort failed: %v", err)
	}

	pr := message.NewPrinter(language.English)
	pr.Printf("%d splats, %d frames, %s, %d workers\n",
		len(positions), stats.frames, describe(s, *exact), runtime.GOMAXPROCS(0))
	pr.Printf("mean %v  min %v  max %v  (%.1f Msplats/s)\n",
		stats.mean().Round(time.Microsecond),
		stats.min.Round(time.Microsecond),
		stats.max.Round(time.Microsecond),
		stats.throughput(len(positions))/1e6)

	if *out != "" {
		label := pr.Sprintf("%d splats  %v", len(positions), stats.mean().Round(time.Microsecond))
		if err := savePreview(*out, *size, positions, indexes, cam, s.Order(), label); err != nil {
			log.Fatalf("Failed to save preview: %v", err)
		}
		log.Printf("Preview saved to %s (%dx%d)\n", *out, *size, *size)
	}
}

func loadCloud(path string, n int, seed uint64) ([]splatsort.Position, error) {
	if path == "" {
		return ellipsoidShell(n, seed), nil
	}
	return splatfile.ReadFile(path)
}

func describe(s *splatsort.Sorter, exact bool) string {
	if exact {
		return fmt.Sprintf("exact %v", s.Order())
	}
	return fmt.Sprintf("%d buckets %v", s.Buckets(), s.Order())
}

// frameStats accumulates sort times.
type frameStats struct {
	frames   int
	total    time.Duration
	min, max time.Duration
}

func (st *frameStats) add(d time.Duration) {
	if st.frames == 0 || d < st.min {
		st.min = d
	}
	st.max = max(st.max, d)
	st.total += d
	st.frames++
}

func (st *frameStats) mean() time.Duration {
	if st.frames == 0 {
		return 0
	}
	return st.total / time.Duration(st.frames)
}

func (st *frameStats) throughput(n int) float64 {
	if st.total <= 0 {
		return 0
	}
	return float64(n) * float64(st.frames) / st.total.Seconds()
}

// run sorts frames views of one orbit around the cloud and returns the
// timing and the camera of the last frame.
func run(frames int, dst []uint32, sortFrame func(splatsort.Camera, []uint32) error) (frameStats, splatsort.Camera, error) {
	var st frameStats
	var cam splatsort.Camera
	frames = max(frames, 1)

	tilt := splatsort.QuatFromAxisAngle(splatsort.V3(1, 0, 0), -0.35)
	for f := range frames {
		yaw := splatsort.QuatFromAxisAngle(splatsort.V3(0, 1, 0), float32(2*math.Pi*float64(f)/float64(frames)))
		cam = orbitCamera(yaw.Mul(tilt), 3)

		start := time.Now()
		if err := sortFrame(cam, dst); err != nil {
			return st, cam, err
		}
		st.add(time.Since(start))
	}
	return st, cam, nil
}

// orbitCamera places a camera with orientation q at distance r from the
// origin, looking at it.
func orbitCamera(q splatsort.Quat, r float32) splatsort.Camera {
	return splatsort.Camera{
		Orientation: q,
		Position:    splatsort.ForwardVector(q).Mul(-r),
	}
}
