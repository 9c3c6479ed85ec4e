// Copyright (c) 2016 Caleb Spare
// Copyright (c) 2022 Alexey Ivanov
//
// MIT License
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package rbtz is a fork of github.com/SaveTheRbtz/mph specialised to
// uint64 keys. A Table maps each build key to its index in the build slice
// using two levels of hash-and-displace, so values can be stored in input
// order without a separate placement pass.
package rbtz

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/zeebo/xxh3"
)

// maxSeed bounds the displacement search for a single bucket.
const maxSeed = 1 << 24

var ErrNoSeed = errors.New("mph: no displacement seed found")

type Table struct {
	level0     []uint32
	level0Mask int
	level1     []uint32
	level1Mask int
}

func hash(key uint64, seed uint32) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return xxh3.HashSeed(buf[:], uint64(seed))
}

type indexBucket struct {
	n    int
	vals []int
}

// Build returns a table over keys. keys must be distinct.
func Build(keys []uint64) (*Table, error) {
	var (
		level0        = make([]uint32, nextPow2(len(keys)/4))
		level0Mask    = len(level0) - 1
		level1        = make([]uint32, nextPow2(len(keys)))
		level1Mask    = len(level1) - 1
		sparseBuckets = make([][]int, len(level0))
	)
	for i, k := range keys {
		n := int(hash(k, 0)) & level0Mask
		sparseBuckets[n] = append(sparseBuckets[n], i)
	}
	var buckets []indexBucket
	for n, vals := range sparseBuckets {
		if len(vals) > 0 {
			buckets = append(buckets, indexBucket{n, vals})
		}
	}
	// Largest buckets first, while level1 is still sparse.
	sort.SliceStable(buckets, func(i, j int) bool {
		return len(buckets[i].vals) > len(buckets[j].vals)
	})

	occ := make([]bool, len(level1))
	var tmpOcc []int
	for _, bucket := range buckets {
		seed, ok := placeBucket(keys, bucket.vals, level1, level1Mask, occ, &tmpOcc)
		if !ok {
			return nil, ErrNoSeed
		}
		level0[bucket.n] = seed
	}

	return &Table{
		level0:     level0,
		level0Mask: level0Mask,
		level1:     level1,
		level1Mask: level1Mask,
	}, nil
}

// placeBucket finds a seed that sends every key of the bucket to a free
// level1 slot and claims those slots.
func placeBucket(keys []uint64, vals []int, level1 []uint32, mask int, occ []bool, tmpOcc *[]int) (uint32, bool) {
	for seed := uint32(0); seed < maxSeed; seed++ {
		*tmpOcc = (*tmpOcc)[:0]
		collided := false
		for _, i := range vals {
			n := int(hash(keys[i], seed)) & mask
			if occ[n] {
				collided = true
				break
			}
			occ[n] = true
			*tmpOcc = append(*tmpOcc, n)
			level1[n] = uint32(i)
		}
		if !collided {
			return seed, true
		}
		for _, n := range *tmpOcc {
			occ[n] = false
		}
	}
	return 0, false
}

func nextPow2(n int) int {
	for i := 1; ; i *= 2 {
		if i >= n {
			return i
		}
	}
}

// Lookup returns the build index of key. For keys that were not in the
// build set the result is an arbitrary index.
func (t *Table) Lookup(key uint64) uint32 {
	i0 := int(hash(key, 0)) & t.level0Mask
	seed := t.level0[i0]
	i1 := int(hash(key, seed)) & t.level1Mask
	return t.level1[i1]
}
