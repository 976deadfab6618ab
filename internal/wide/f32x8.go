package wide

// Lanes is the number of float32 values processed per batch.
const Lanes = 8

// F32x8 represents 8 float32 values for SIMD-style operations.
// Designed for Go compiler auto-vectorization with fixed-size arrays.
type F32x8 [Lanes]float32

// SplatF32 creates F32x8 with all elements set to n.
func SplatF32(n float32) F32x8 {
	var result F32x8
	for i := range result {
		result[i] = n
	}
	return result
}

// Add performs element-wise addition.
func (v F32x8) Add(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Sub performs element-wise subtraction.
func (v F32x8) Sub(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

// Mul performs element-wise multiplication.
func (v F32x8) Mul(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// MulAdd returns v[i]*m[i] + a[i] for each element.
func (v F32x8) MulAdd(m, a F32x8) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i]*m[i] + a[i]
	}
	return result
}

// Scale multiplies every element by s.
func (v F32x8) Scale(s float32) F32x8 {
	var result F32x8
	for i := range v {
		result[i] = v[i] * s
	}
	return result
}

// Min returns element-wise minimum.
// NaN lanes in v propagate, NaN lanes in other are ignored.
func (v F32x8) Min(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		if other[i] < v[i] {
			result[i] = other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

// Max returns element-wise maximum.
// NaN lanes in v propagate, NaN lanes in other are ignored.
func (v F32x8) Max(other F32x8) F32x8 {
	var result F32x8
	for i := range v {
		if other[i] > v[i] {
			result[i] = other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}
