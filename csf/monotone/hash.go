// Package monotone implements a bucketed monotone minimal perfect hash over
// uint64 keys: sorted keys map to their rank.
//
// Keys are cut into buckets of ceil(log2 n) consecutive keys. Each bucket is
// identified by the longest common prefix of its keys. Three levels of
// boomphf tables answer a query:
//
//	d0: key -> length of its bucket's common prefix
//	d1: (prefix, length) -> bucket index
//	bucket: key -> local rank inside the bucket
package monotone

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/dgryski/go-boomphf"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"

	"csfbench/errutil"
	"csfbench/utils"
)

const gamma = 2.0

type MonotoneHash struct {
	bucketSize int

	// d0: key -> LCP length (in bits)
	d0Table   *boomphf.H
	d0Lengths []uint8 // 0..64

	// d1: prefix hash -> bucket index
	d1Table   *boomphf.H
	d1Indices []int32

	// buckets: key -> local rank
	buckets     []*boomphf.H
	bucketRanks [][]uint8
}

type prefix struct {
	value uint64
	len   int
}

func prefixOf(key uint64, lcpLen int) prefix {
	if lcpLen == 0 {
		return prefix{}
	}
	return prefix{value: key >> (64 - lcpLen), len: lcpLen}
}

func (p prefix) hash() uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.value)
	return xxh3.HashSeed(buf[:], uint64(p.len))
}

// lcpLen returns the length of the common prefix of the sorted range
// [first, last].
func lcpLen(first, last uint64) int {
	return bits.LeadingZeros64(first ^ last)
}

// BucketCount returns ceil(totalKeys / bucketSize).
func BucketCount(totalKeys, bucketSize int) int {
	errutil.BugOn(totalKeys < 0, "totalKeys must be non-negative, got %d", totalKeys)
	errutil.BugOn(bucketSize <= 0, "bucketSize must be positive, got %d", bucketSize)
	if totalKeys == 0 {
		return 0
	}
	return (totalKeys + bucketSize - 1) / bucketSize
}

// New builds a monotone hash over keys, which must be distinct. keys is not
// modified; ranks are positions in ascending key order.
func New(keys []uint64) (*MonotoneHash, error) {
	n := len(keys)
	if n == 0 {
		return &MonotoneHash{}, nil
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	bucketSize := max(int(math.Ceil(math.Log2(float64(n)))), 1)
	if bucketSize > 256 {
		return nil, fmt.Errorf("bucket size %d exceeds 256", bucketSize)
	}
	numBuckets := BucketCount(n, bucketSize)

	mh := &MonotoneHash{
		bucketSize:  bucketSize,
		buckets:     make([]*boomphf.H, numBuckets),
		bucketRanks: make([][]uint8, numBuckets),
		d0Lengths:   make([]uint8, n),
	}

	lengths := make([]int, n)
	var lcps []prefix
	prefixToBucketIdx := make(map[prefix]int32, numBuckets)

	for i := 0; i < numBuckets; i++ {
		start := i * bucketSize
		end := min(start+bucketSize, n)
		bucketKeys := sorted[start:end]

		mh.buckets[i] = boomphf.New(gamma, bucketKeys)
		mh.bucketRanks[i] = make([]uint8, len(bucketKeys))
		for localRank, k := range bucketKeys {
			phfIdx := mh.buckets[i].Query(k)
			if phfIdx == 0 {
				return nil, fmt.Errorf("bucket %d: key %d not placed", i, k)
			}
			mh.bucketRanks[i][phfIdx-1] = uint8(localRank)
		}

		l := lcpLen(bucketKeys[0], bucketKeys[len(bucketKeys)-1])
		p := prefixOf(bucketKeys[0], l)
		if _, exists := prefixToBucketIdx[p]; !exists {
			lcps = append(lcps, p)
			prefixToBucketIdx[p] = int32(i)
		}
		for j := start; j < end; j++ {
			lengths[j] = l
		}
	}

	mh.d0Table = boomphf.New(gamma, sorted)
	for j, k := range sorted {
		phfIdx := mh.d0Table.Query(k)
		if phfIdx == 0 {
			return nil, fmt.Errorf("d0: key %d not placed", k)
		}
		mh.d0Lengths[phfIdx-1] = uint8(lengths[j])
	}

	lcpHashes := utils.Map(lcps, prefix.hash)
	mh.d1Table = boomphf.New(gamma, lcpHashes)
	mh.d1Indices = make([]int32, len(lcps))
	for _, p := range lcps {
		phfIdx := mh.d1Table.Query(p.hash())
		if phfIdx == 0 {
			return nil, fmt.Errorf("d1: prefix %x/%d not placed", p.value, p.len)
		}
		mh.d1Indices[phfIdx-1] = prefixToBucketIdx[p]
	}

	return mh, nil
}

// GetRank returns the rank of key among the build keys, or -1 when the
// structure can tell the key is absent. Absent keys may also get an
// arbitrary rank.
func (mh *MonotoneHash) GetRank(key uint64) int {
	rank, _ := mh.lookup(key)
	return rank
}

// Levels returns how many of the three tables a lookup of key reads.
func (mh *MonotoneHash) Levels(key uint64) int {
	_, levels := mh.lookup(key)
	return levels
}

func (mh *MonotoneHash) lookup(key uint64) (rank, levels int) {
	if mh.d0Table == nil {
		return -1, 0
	}

	d0PhfIdx := mh.d0Table.Query(key)
	if d0PhfIdx == 0 || int(d0PhfIdx) > len(mh.d0Lengths) {
		return -1, 1
	}
	p := prefixOf(key, int(mh.d0Lengths[d0PhfIdx-1]))

	d1PhfIdx := mh.d1Table.Query(p.hash())
	if d1PhfIdx == 0 || int(d1PhfIdx) > len(mh.d1Indices) {
		return -1, 2
	}
	bucketIdx := int(mh.d1Indices[d1PhfIdx-1])

	localPhfIdx := mh.buckets[bucketIdx].Query(key)
	if localPhfIdx == 0 || int(localPhfIdx) > len(mh.bucketRanks[bucketIdx]) {
		return -1, 3
	}

	return bucketIdx*mh.bucketSize + int(mh.bucketRanks[bucketIdx][localPhfIdx-1]), 3
}

// Size returns the total size of the structure in bytes: the three levels of
// boomphf tables plus the arrays they index.
func (mh *MonotoneHash) Size() uint64 {
	size := uint64(8) // bucket size
	size += tableSize(mh.d0Table) + uint64(len(mh.d0Lengths))
	size += tableSize(mh.d1Table) + uint64(len(mh.d1Indices))*4
	for _, b := range mh.buckets {
		size += tableSize(b)
	}
	for _, r := range mh.bucketRanks {
		size += uint64(len(r))
	}
	return size
}

func tableSize(h *boomphf.H) uint64 {
	if h == nil {
		return 0
	}
	return uint64(h.Size())
}

func (mh *MonotoneHash) MemDetailed() utils.MemReport {
	var bucketBytes uint64
	for _, b := range mh.buckets {
		bucketBytes += tableSize(b)
	}
	var rankBytes uint64
	for _, r := range mh.bucketRanks {
		rankBytes += uint64(len(r))
	}
	return utils.NewMemReport("monotone",
		utils.Leaf("bucket_size", 8),
		utils.Leaf("d0_table", tableSize(mh.d0Table)),
		utils.Leaf("d0_lengths", uint64(len(mh.d0Lengths))),
		utils.Leaf("d1_table", tableSize(mh.d1Table)),
		utils.Leaf("d1_indices", uint64(len(mh.d1Indices))*4),
		utils.Leaf("buckets", bucketBytes),
		utils.Leaf("bucket_ranks", rankBytes),
	)
}
