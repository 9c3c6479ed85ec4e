package monotone

import (
	"context"

	"csfbench/csf"
	"csfbench/csf/packed"
	"csfbench/utils"
)

// Adapter stores values in key-rank order behind a MonotoneHash.
type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

func (*Adapter) Name() string   { return "monotone" }
func (*Adapter) Mode() csf.Mode { return csf.ModeFunction }
func (*Adapter) Params() string { return "bucket=log2(n) gamma=2.0" }

func (*Adapter) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	mh, err := New(keys)
	if err != nil {
		return nil, csf.Constructionf("monotone: %v", err)
	}
	f := &Function{mh: mh, n: len(keys)}
	f.values, err = csf.PlaceValues(keys, values, f.rank)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type Function struct {
	mh     *MonotoneHash
	n      int
	values *packed.Array
}

func (f *Function) rank(key uint64) (uint64, bool) {
	r := f.mh.GetRank(key)
	if r < 0 || r >= f.n {
		return 0, false
	}
	return uint64(r), true
}

func (f *Function) Query(key uint64) (uint64, bool) {
	r, ok := f.rank(key)
	if !ok {
		return 0, false
	}
	return f.values.Get(int(r)), true
}

func (f *Function) QueryLevels(key uint64) int { return f.mh.Levels(key) }

func (f *Function) SizeInBits() uint64 {
	return f.mh.Size()*8 + f.values.SizeInBits()
}

func (f *Function) MemDetailed() utils.MemReport {
	return utils.NewMemReport("monotone_function", f.mh.MemDetailed(), f.values.MemDetailed())
}
