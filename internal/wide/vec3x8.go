package wide

// Vec3x8 holds 8 three-component vectors in Structure-of-Arrays layout.
//
// Splat positions arrive as interleaved XYZ records. Transposing a batch
// into separate X, Y and Z lanes lets the dot product below run as three
// independent lane-wise multiply-adds.
type Vec3x8 struct {
	X, Y, Z F32x8
}

// Set stores one vector into lane i.
func (v *Vec3x8) Set(i int, x, y, z float32) {
	v.X[i] = x
	v.Y[i] = y
	v.Z[i] = z
}

// Dot returns the per-lane dot product with the vector (x, y, z).
func (v *Vec3x8) Dot(x, y, z float32) F32x8 {
	acc := v.X.Scale(x)
	acc = v.Y.MulAdd(SplatF32(y), acc)
	return v.Z.MulAdd(SplatF32(z), acc)
}

// DistSq returns the per-lane squared distance to the point (x, y, z).
func (v *Vec3x8) DistSq(x, y, z float32) F32x8 {
	dx := v.X.Sub(SplatF32(x))
	dy := v.Y.Sub(SplatF32(y))
	dz := v.Z.Sub(SplatF32(z))
	return dx.Mul(dx).Add(dy.Mul(dy)).Add(dz.Mul(dz))
}
