// Package packed stores a fixed number of small unsigned integers using
// exactly Width bits each, back to back in a []uint64.
package packed

import (
	"fmt"
	"math/bits"

	"csfbench/errutil"
	"csfbench/utils"
)

// headerBits accounts for the slice header, element count and width.
const headerBits = 3*64 + 64 + 8

// Array is a bit-packed array of n values of the same width.
type Array struct {
	words []uint64
	n     int
	width int
}

// BitsToStore returns the number of bits needed to store every value in
// [0, maxValue]. Zero needs zero bits.
func BitsToStore(maxValue uint64) int {
	return bits.Len64(maxValue)
}

// Make returns a zeroed array of n values of the given width.
func Make(n, width int) *Array {
	if width < 0 || width > 64 {
		errutil.FatalIf(fmt.Errorf("packed: width %d out of range", width))
	}
	return &Array{
		words: make([]uint64, (n*width+63)/64),
		n:     n,
		width: width,
	}
}

// Pack packs values using the smallest width that fits their maximum.
func Pack(values []uint64) *Array {
	var maxValue uint64
	for _, v := range values {
		maxValue = max(maxValue, v)
	}
	a := Make(len(values), BitsToStore(maxValue))
	for i, v := range values {
		a.Set(i, v)
	}
	return a
}

func mask(width int) uint64 {
	if width == 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}

// Set writes v at index i. Bits of v above the width are dropped.
func (a *Array) Set(i int, v uint64) {
	if a.width == 0 {
		return
	}
	m := mask(a.width)
	v &= m
	bitPos := i * a.width
	wordIdx := bitPos / 64
	bitOffset := uint(bitPos % 64)

	a.words[wordIdx] = a.words[wordIdx]&^(m<<bitOffset) | v<<bitOffset
	if avail := 64 - int(bitOffset); avail < a.width {
		a.words[wordIdx+1] = a.words[wordIdx+1]&^(m>>uint(avail)) | v>>uint(avail)
	}
}

// Get returns the value at index i.
func (a *Array) Get(i int) uint64 {
	if a.width == 0 {
		return 0
	}
	bitPos := i * a.width
	wordIdx := bitPos / 64
	bitOffset := uint(bitPos % 64)

	v := a.words[wordIdx] >> bitOffset
	if avail := 64 - int(bitOffset); avail < a.width {
		v |= a.words[wordIdx+1] << uint(avail)
	}
	return v & mask(a.width)
}

func (a *Array) Len() int   { return a.n }
func (a *Array) Width() int { return a.width }

// SizeInBits counts the backing words plus a fixed header.
func (a *Array) SizeInBits() uint64 {
	return uint64(len(a.words))*64 + headerBits
}

func (a *Array) MemDetailed() utils.MemReport {
	return utils.NewMemReport("packed_values",
		utils.Leaf("words", uint64(len(a.words))*8),
		utils.Leaf("header", headerBits/8),
	)
}
