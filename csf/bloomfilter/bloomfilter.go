// Package bloomfilter benchmarks a Bloom filter in membership mode. It
// stores no values; its false-positive rate is measured on absent keys.
package bloomfilter

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bloom/v3"

	"csfbench/csf"
	"csfbench/utils"
)

const DefaultFalsePositiveRate = 0.01

type Adapter struct {
	fpRate float64
}

func New(fpRate float64) *Adapter { return &Adapter{fpRate: fpRate} }

func (*Adapter) Name() string     { return "bloom" }
func (*Adapter) Mode() csf.Mode   { return csf.ModeMembership }
func (a *Adapter) Params() string { return fmt.Sprintf("fp=%g", a.fpRate) }

func (a *Adapter) Build(_ context.Context, keys, _ []uint64) (csf.Structure, error) {
	if a.fpRate <= 0 || a.fpRate >= 1 {
		return nil, csf.Constructionf("bloom: false-positive rate %g out of (0,1)", a.fpRate)
	}
	f := bloom.NewWithEstimates(uint(len(keys)), a.fpRate)
	var buf [8]byte
	for _, k := range keys {
		binary.LittleEndian.PutUint64(buf[:], k)
		f.Add(buf[:])
	}
	return &Filter{f: f}, nil
}

type Filter struct {
	f *bloom.BloomFilter
}

func (f *Filter) Query(key uint64) (uint64, bool) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return 0, f.f.Test(buf[:])
}

func (f *Filter) DetectsAbsence() bool { return true }

// SizeInBits is the length of the filter's serialized form.
func (f *Filter) SizeInBits() uint64 {
	n, err := f.f.WriteTo(io.Discard)
	if err != nil {
		return 0
	}
	return uint64(n) * 8
}

func (f *Filter) MemDetailed() utils.MemReport {
	return utils.NewMemReport("bloom",
		utils.Leaf("bits", uint64(f.f.Cap()+7)/8),
		utils.Leaf("header", f.SizeInBits()/8-uint64(f.f.Cap()+7)/8),
	)
}
