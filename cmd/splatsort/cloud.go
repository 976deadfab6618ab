package main

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/gogpu/splatsort"
)

// ellipsoidShell returns n splats scattered around the surface of an
// ellipsoid with radii (1, 0.6, 0.8), plus a sparse interior. The same seed
// always yields the same cloud.
func ellipsoidShell(n int, seed uint64) []splatsort.Position {
	r := rand.New(rand.NewPCG(seed, seed*0x9e3779b97f4a7c15+1))
	radii := splatsort.V3(1, 0.6, 0.8)

	pos := make([]splatsort.Position, n)
	for i := range pos {
		// Uniform direction from a normalized Gaussian vector.
		d := splatsort.V3(float32(r.NormFloat64()), float32(r.NormFloat64()), float32(r.NormFloat64())).Normalize()

		shell := float32(1)
		if r.IntN(8) == 0 {
			shell = math32.Cbrt(r.Float32())
		} else {
			shell += float32(r.NormFloat64()) * 0.02
		}
		pos[i] = splatsort.V3(d.X*radii.X, d.Y*radii.Y, d.Z*radii.Z).Mul(shell)
	}
	return pos
}
