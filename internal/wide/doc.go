// Package wide provides SIMD-friendly wide types for batch depth processing.
//
// F32x8 holds 8 float32 lanes and Vec3x8 holds 8 XYZ vectors in
// Structure-of-Arrays form. Operations are written as simple loops over
// fixed-size arrays so the Go compiler can auto-vectorize them on supported
// architectures (SSE, AVX, NEON).
//
// # Design Philosophy
//
//   - Use simple loops over fixed-size arrays for auto-vectorization
//   - Avoid unsafe and assembly - rely on compiler optimization
//   - Keep functions small and inlineable
//   - Provide benchmarks to verify SIMD performance gains
//
// # Usage Example
//
//	var batch wide.Vec3x8
//	for lane, p := range points[:wide.Lanes] {
//		batch.Set(lane, p.X, p.Y, p.Z)
//	}
//	depths := batch.Dot(fx, fy, fz)
package wide
