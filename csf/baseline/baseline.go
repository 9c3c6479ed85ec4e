// Package baseline holds uncompressed key-value structures that give the
// compressed functions something to be compared against. All of them store
// the keys and therefore answer absent keys exactly. None of them exposes
// its size, so btree and iradix are measured with footprint, and the map,
// whose hash table slack footprint cannot see, by its build allocations.
package baseline

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/google/btree"
	iradix "github.com/hashicorp/go-immutable-radix"

	"csfbench/csf"
	"csfbench/footprint"
)

// exact is embedded by every baseline structure.
type exact struct{}

func (exact) DetectsAbsence() bool { return true }

// GoMap is the built-in map.
type GoMap struct{}

func (GoMap) Name() string   { return "gomap" }
func (GoMap) Mode() csf.Mode { return csf.ModeFunction }
func (GoMap) Params() string { return "size=build_alloc" }

func (GoMap) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	m := make(map[uint64]uint64, len(keys))
	for i, k := range keys {
		m[k] = values[i]
	}
	return &mapStructure{m: m}, nil
}

type mapStructure struct {
	exact
	m map[uint64]uint64
}

func (s *mapStructure) Query(key uint64) (uint64, bool) {
	v, ok := s.m[key]
	return v, ok
}

// SizeInBits counts entries only and is a lower bound; the runner replaces
// it with the heap allocated by Build.
func (s *mapStructure) SizeInBits() uint64 { return footprint.Bits(s.m) }

func (s *mapStructure) SizedByAllocation() bool { return true }

// BTree is github.com/google/btree with generic items.
type BTree struct {
	Degree int
}

type item struct {
	key, value uint64
}

func itemLess(a, b item) bool { return a.key < b.key }

func (BTree) Name() string   { return "btree" }
func (BTree) Mode() csf.Mode { return csf.ModeFunction }

func (b BTree) Params() string {
	return "degree=" + strconv.Itoa(b.degree())
}

func (b BTree) degree() int {
	if b.Degree < 2 {
		return 32
	}
	return b.Degree
}

func (b BTree) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	t := btree.NewG[item](b.degree(), itemLess)
	for i, k := range keys {
		t.ReplaceOrInsert(item{key: k, value: values[i]})
	}
	if t.Len() != len(keys) {
		return nil, csf.Constructionf("btree: %d items for %d keys", t.Len(), len(keys))
	}
	return &btreeStructure{t: t}, nil
}

type btreeStructure struct {
	exact
	t *btree.BTreeG[item]
}

func (s *btreeStructure) Query(key uint64) (uint64, bool) {
	it, ok := s.t.Get(item{key: key})
	return it.value, ok
}

func (s *btreeStructure) SizeInBits() uint64 { return footprint.Bits(s.t) }

// Radix is github.com/hashicorp/go-immutable-radix keyed by the big-endian
// key bytes.
type Radix struct{}

func (Radix) Name() string   { return "iradix" }
func (Radix) Mode() csf.Mode { return csf.ModeFunction }

func (Radix) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	txn := iradix.New().Txn()
	for i, k := range keys {
		txn.Insert(keyBytes(k), values[i])
	}
	t := txn.Commit()
	if t.Len() != len(keys) {
		return nil, csf.Constructionf("iradix: %d leaves for %d keys", t.Len(), len(keys))
	}
	return &radixStructure{t: t}, nil
}

func keyBytes(k uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, k)
	return b
}

type radixStructure struct {
	exact
	t *iradix.Tree
}

func (s *radixStructure) Query(key uint64) (uint64, bool) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	v, ok := s.t.Get(buf[:])
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

func (s *radixStructure) SizeInBits() uint64 { return footprint.Bits(s.t) }
