//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/naga"

	"github.com/gogpu/splatsort"
)

//go:embed shaders/depth.wgsl
var depthShaderSource string

const (
	// workgroupSize matches @workgroup_size in depth.wgsl.
	workgroupSize = 256

	// maxGroupsPerDim is the WebGPU default limit on workgroups per
	// dispatch dimension.
	maxGroupsPerDim = 65535

	// paramsSize is the uniform block size: two vec3+u32 rows and the row
	// stride, padded to 16 bytes.
	paramsSize = 48

	// bytesPerPosition is the packed xyz stride of the positions buffer.
	bytesPerPosition = 12
)

// CompileShaderToSPIRV compiles WGSL source to SPIR-V words.
func CompileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// dispatchSize returns the workgroup grid for n splats and the number of
// threads in one grid row.
func dispatchSize(n int) (x, y, row uint32) {
	groups := (n + workgroupSize - 1) / workgroupSize
	if groups <= maxGroupsPerDim {
		return uint32(max(groups, 1)), 1, uint32(max(groups, 1)) * workgroupSize //nolint:gosec // bounded by maxGroupsPerDim
	}
	y = uint32((groups + maxGroupsPerDim - 1) / maxGroupsPerDim) //nolint:gosec // splat counts fit uint32
	return maxGroupsPerDim, y, maxGroupsPerDim * workgroupSize
}

// encodeParams packs the uniform block for one projection.
func encodeParams(dst []byte, forward, origin splatsort.Vec3, metric splatsort.Metric, count, row uint32) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], math.Float32bits(forward.X))
	le.PutUint32(dst[4:], math.Float32bits(forward.Y))
	le.PutUint32(dst[8:], math.Float32bits(forward.Z))
	le.PutUint32(dst[12:], count)
	le.PutUint32(dst[16:], math.Float32bits(origin.X))
	le.PutUint32(dst[20:], math.Float32bits(origin.Y))
	le.PutUint32(dst[24:], math.Float32bits(origin.Z))
	le.PutUint32(dst[28:], uint32(metric))
	le.PutUint32(dst[32:], row)
	clear(dst[36:paramsSize])
}

// encodePositions packs positions as little-endian xyz floats.
func encodePositions(dst []byte, positions []splatsort.Position) {
	le := binary.LittleEndian
	for i, p := range positions {
		b := dst[i*bytesPerPosition:]
		le.PutUint32(b[0:], math.Float32bits(p.X))
		le.PutUint32(b[4:], math.Float32bits(p.Y))
		le.PutUint32(b[8:], math.Float32bits(p.Z))
	}
}

// decodeDepths unpacks little-endian floats into depths.
func decodeDepths(depths []float32, src []byte) {
	le := binary.LittleEndian
	for i := range depths {
		depths[i] = math.Float32frombits(le.Uint32(src[i*4:]))
	}
}
