// Package splatsort orders 3D splats by view depth for alpha compositing.
//
// # Overview
//
// Gaussian splat and point-sprite renderers blend primitives in depth
// order. splatsort turns per-splat positions and a camera orientation into
// an index permutation, once per frame, for clouds of tens of thousands to
// several million splats.
//
// # Quick Start
//
//	import "github.com/gogpu/splatsort"
//
//	order := make([]uint32, len(positions))
//	splatsort.SortSplatIndexes(positions, uint32(len(positions)),
//	    rot.X, rot.Y, rot.Z, rot.W, order)
//
// For a render loop, keep a Sorter so scratch buffers stay bound to it:
//
//	s := splatsort.New(splatsort.WithOrder(splatsort.BackToFront))
//	defer s.Close()
//	s.Sort(positions, cameraRotation, order)
//
// # Pipeline
//
// A sort runs three stages:
//   - Forward vector: CanonicalForward (+Z) rotated by the camera quaternion
//   - Depth projection: dot(position, forward) per splat, 8 lanes at a time,
//     split across the worker pool for large clouds
//   - Index sort: a single-pass counting sort over 2^16 depth buckets
//     spanning the frame's depth range, O(n + B), stable
//
// # Precision
//
// Splats that fall in the same bucket keep their index order, so two
// splats closer than (max-min)/B along the view axis may come out in index
// order rather than depth order. WithBucketBits trades table size for
// resolution; WithExactOrder switches to an exact radix sort of the depth
// bits at roughly twice the scatter cost.
//
// The range is taken over every finite depth, so a single far outlier
// widens all buckets for the whole frame and can fold the rest of the
// cloud into a few of them. Use WithExactOrder when such input is
// expected, or bound the coordinates once with ClampPositions.
//
// # Coordinate Frame
//
// With MetricForward, positions may be given in any frame: camera
// translation adds the same constant to every depth and cannot change the
// order. MetricDistance orders by distance to Camera.Position instead.
//
// # Non-finite Input
//
// NaN and +Inf depths land in the farthest bucket and -Inf in the nearest.
// They never disturb the order of the finite splats. SanitizePositions
// cleans such coordinates up front.
//
// # Sub-packages
//
//   - gpu: depth projection as a WGSL compute kernel on a wgpu HAL device
//   - splatfile: reading and writing .splat point cloud files
package splatsort
