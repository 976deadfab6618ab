// Command libsplatsort builds the sorter as a C shared library:
//
//	go build -buildmode=c-shared -o libsplatsort.so ./cmd/libsplatsort
//
// It exports
//
//	void sortSplatIndexes(const SplatPosition* positions, uint32_t vertexCount,
//	                      float qx, float qy, float qz, float qw,
//	                      uint32_t* depthIndex);
//
// with SplatPosition a struct of three floats.
package main

/*
#include <stdint.h>

typedef struct {
    float x, y, z;
} SplatPosition;
*/
import "C"

import (
	"unsafe"

	"github.com/gogpu/splatsort"
)

// The Go and C position layouts must agree.
var _ [unsafe.Sizeof(C.SplatPosition{}) - unsafe.Sizeof(splatsort.Position{})]struct{}
var _ [unsafe.Sizeof(splatsort.Position{}) - unsafe.Sizeof(C.SplatPosition{})]struct{}

//export sortSplatIndexes
func sortSplatIndexes(positions *C.SplatPosition, vertexCount C.uint32_t,
	qx, qy, qz, qw C.float, depthIndex *C.uint32_t,
) {
	n := int(vertexCount)
	if n == 0 || positions == nil || depthIndex == nil {
		return
	}
	pos := unsafe.Slice((*splatsort.Position)(unsafe.Pointer(positions)), n)
	out := unsafe.Slice((*uint32)(unsafe.Pointer(depthIndex)), n)
	splatsort.SortSplatIndexes(pos, uint32(n), float32(qx), float32(qy), float32(qz), float32(qw), out)
}

func main() {}
