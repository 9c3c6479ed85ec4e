package csf

import (
	"csfbench/csf/packed"
)

// MaxValue returns the largest value, or 0 for an empty slice.
func MaxValue(values []uint64) uint64 {
	var m uint64
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

// PlaceValues stores values at the slots a perfect hash assigns to their
// keys. slot returns a position in [0, n) or ok=false. Any out-of-range or
// missing slot is a construction failure.
func PlaceValues(keys, values []uint64, slot func(key uint64) (uint64, bool)) (*packed.Array, error) {
	n := len(keys)
	arr := packed.Make(n, packed.BitsToStore(MaxValue(values)))
	for i, k := range keys {
		pos, ok := slot(k)
		if !ok || pos >= uint64(n) {
			return nil, Constructionf("key %d has no slot in [0,%d)", k, n)
		}
		arr.Set(int(pos), values[i])
	}
	return arr, nil
}
