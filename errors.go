package splatsort

import "fmt"

// PreconditionError describes a sort call whose buffers do not match the
// vertex count. Sort functions panic with a *PreconditionError; writing a
// partial permutation would corrupt the render order silently.
type PreconditionError struct {
	Op          string
	VertexCount int
	Positions   int
	Output      int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("splatsort: %s: vertexCount=%d positions=%d output=%d: output must hold vertexCount indexes and positions must equal vertexCount",
		e.Op, e.VertexCount, e.Positions, e.Output)
}

// ValidateInputs reports the error SortSplatIndexes would panic with, or nil.
func ValidateInputs(positions []Position, vertexCount uint32, depthIndex []uint32) error {
	return checkSizes("SortSplatIndexes", int(vertexCount), len(positions), len(depthIndex))
}

func checkSizes(op string, n, positions, output int) error {
	if positions != n || output < n {
		return &PreconditionError{Op: op, VertexCount: n, Positions: positions, Output: output}
	}
	return nil
}

func mustSizes(op string, n, positions, output int) {
	if err := checkSizes(op, n, positions, output); err != nil {
		panic(err)
	}
}

// SanitizePositions replaces non-finite coordinates with zero in place and
// returns the number of positions changed.
//
// Sorting never fails on NaN or Inf input, but such splats land in an
// extreme bucket. Callers that load untrusted data can clean it once here
// instead of paying the check every frame.
func SanitizePositions(positions []Position) int {
	changed := 0
	for i := range positions {
		p := &positions[i]
		if p.IsFinite() {
			continue
		}
		if !finite(p.X) {
			p.X = 0
		}
		if !finite(p.Y) {
			p.Y = 0
		}
		if !finite(p.Z) {
			p.Z = 0
		}
		changed++
	}
	return changed
}

// ClampPositions limits every coordinate to [-limit, limit] in place and
// returns the number of positions changed. NaN coordinates are left for
// SanitizePositions. A limit that is not positive and finite does nothing.
//
// The quantized sort spreads its buckets over the full depth range, so
// clamping far outliers keeps resolution for the rest of the cloud.
func ClampPositions(positions []Position, limit float32) int {
	if !(limit > 0) || !finite(limit) {
		return 0
	}
	changed := 0
	for i := range positions {
		p := &positions[i]
		x, cx := clampCoord(p.X, limit)
		y, cy := clampCoord(p.Y, limit)
		z, cz := clampCoord(p.Z, limit)
		if cx || cy || cz {
			*p = Position{X: x, Y: y, Z: z}
			changed++
		}
	}
	return changed
}

func clampCoord(v, limit float32) (float32, bool) {
	switch {
	case v > limit:
		return limit, true
	case v < -limit:
		return -limit, true
	}
	return v, false
}
