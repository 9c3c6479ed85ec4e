// Package rankdict stores a function as a rank/select dictionary over the
// key universe: bit k-min is set for every key k, and the value of a key is
// found at its rank in a packed array. It answers absent keys exactly but
// only builds when keys are dense enough.
package rankdict

import (
	"context"
	"fmt"

	"github.com/hillbig/rsdic"
	"golang.org/x/exp/slices"

	"csfbench/csf"
	"csfbench/csf/packed"
	"csfbench/utils"
)

// DefaultMaxDensity bounds the universe span at 64 bits per key.
const DefaultMaxDensity = 64

type Adapter struct {
	maxBitsPerKey uint64
}

func New() *Adapter { return &Adapter{maxBitsPerKey: DefaultMaxDensity} }

// WithMaxBitsPerKey returns an adapter that refuses universes larger than
// limit bits per key.
func WithMaxBitsPerKey(limit uint64) *Adapter { return &Adapter{maxBitsPerKey: limit} }

func (*Adapter) Name() string     { return "rankdict" }
func (*Adapter) Mode() csf.Mode   { return csf.ModeFunction }
func (a *Adapter) Params() string { return fmt.Sprintf("max_span=%dn", a.maxBitsPerKey) }

func (a *Adapter) Build(ctx context.Context, keys, values []uint64) (csf.Structure, error) {
	if len(keys) == 0 {
		return nil, csf.Constructionf("rankdict: no keys")
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	span := hi - lo // universe is span+1 bits
	limit := a.maxBitsPerKey * uint64(len(keys))
	if span >= limit {
		return nil, csf.Constructionf("rankdict: universe of %d bits exceeds %d", span+1, limit)
	}

	rs := rsdic.New()
	next := lo
	for i, k := range sorted {
		if i%4096 == 0 && ctx.Err() != nil {
			return nil, csf.Constructionf("rankdict: %v", ctx.Err())
		}
		for ; next < k; next++ {
			rs.PushBack(false)
		}
		rs.PushBack(true)
		next = k + 1
	}

	d := &Dict{bits: rs, lo: lo}
	var err error
	d.values, err = csf.PlaceValues(keys, values, d.rank)
	if err != nil {
		return nil, err
	}
	return d, nil
}

type Dict struct {
	bits   *rsdic.RSDic
	lo     uint64
	values *packed.Array
}

func (d *Dict) rank(key uint64) (uint64, bool) {
	if key < d.lo {
		return 0, false
	}
	pos := key - d.lo
	if pos >= d.bits.Num() || !d.bits.Bit(pos) {
		return 0, false
	}
	return d.bits.Rank(pos, true), true
}

func (d *Dict) Query(key uint64) (uint64, bool) {
	r, ok := d.rank(key)
	if !ok {
		return 0, false
	}
	return d.values.Get(int(r)), true
}

func (d *Dict) DetectsAbsence() bool { return true }

func (d *Dict) SizeInBits() uint64 {
	return uint64(d.bits.AllocSize())*8 + 64 + d.values.SizeInBits()
}

func (d *Dict) MemDetailed() utils.MemReport {
	return utils.NewMemReport("rankdict",
		utils.Leaf("rsdic", uint64(d.bits.AllocSize())),
		utils.Leaf("offset", 8),
		d.values.MemDetailed(),
	)
}
