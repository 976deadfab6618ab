package splatsort

import (
	"math"

	"github.com/chewxy/math32"
)

const (
	radixBits    = 16
	radixBuckets = 1 << radixBits
	radixMask    = radixBuckets - 1
	signBit      = 1 << 31
)

// sortKey maps a depth to a uint32 whose unsigned order matches the float
// order: negative values have all bits flipped, non-negative values get the
// sign bit set. -0 is folded into +0 so equal depths tie, and NaN sorts
// above +Inf. For descending output the key is inverted.
func sortKey(d float32, desc bool) uint32 {
	var k uint32
	if math32.IsNaN(d) {
		k = math.MaxUint32
	} else {
		if d == 0 {
			d = 0
		}
		bits := math.Float32bits(d)
		if bits&signBit != 0 {
			k = ^bits
		} else {
			k = bits | signBit
		}
	}
	if desc {
		return ^k
	}
	return k
}

// radixKeys fills s.keys[lo:hi] with sort keys.
func (s *Sorter) radixKeys(_, lo, hi int) {
	desc := s.opts.order == BackToFront
	keys := s.keys[lo:hi]
	for i, d := range s.src[lo:hi] {
		keys[i] = sortKey(d, desc)
	}
}

// sortExact is a two-pass LSD radix sort over 16-bit digits of the sort
// keys. Each pass is a stable counting sort, so ties keep index order.
func (s *Sorter) sortExact(n int) {
	s.run(n, s.projectChunks(n), s.keyFn)

	keys := s.keys[:n]
	tmpIdx := s.tmpIdx[:n]
	tmpKey := s.tmpKey[:n]
	dst := s.dst
	count := s.radix

	// Pass 0: low digit, identity permutation to tmp.
	clear(count)
	for _, k := range keys {
		count[k&radixMask]++
	}
	exclusiveScan(count)
	for i, k := range keys {
		d := k & radixMask
		p := count[d]
		tmpIdx[p] = uint32(i)
		tmpKey[p] = k
		count[d]++
	}

	// Pass 1: high digit, tmp to dst.
	clear(count)
	for _, k := range tmpKey {
		count[k>>radixBits]++
	}
	exclusiveScan(count)
	for j, k := range tmpKey {
		d := k >> radixBits
		dst[count[d]] = tmpIdx[j]
		count[d]++
	}
}

// exclusiveScan converts counts into starting offsets in place.
func exclusiveScan(count []uint32) {
	var total uint32
	for i, c := range count {
		count[i] = total
		total += c
	}
}
