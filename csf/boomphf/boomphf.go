// Package boomphf adapts github.com/dgryski/go-boomphf into a compressed
// static function: the MPHF maps each key to a slot of a packed value array.
package boomphf

import (
	"context"
	"fmt"

	upstream "github.com/dgryski/go-boomphf"

	"csfbench/csf"
	"csfbench/csf/packed"
	"csfbench/utils"
)

type Adapter struct {
	name  string
	gamma float64
}

// New returns an adapter with the given gamma. Larger gamma builds faster
// and uses more space.
func New(name string, gamma float64) *Adapter {
	return &Adapter{name: name, gamma: gamma}
}

func (a *Adapter) Name() string   { return a.name }
func (a *Adapter) Mode() csf.Mode { return csf.ModeFunction }
func (a *Adapter) Params() string { return fmt.Sprintf("gamma=%.1f", a.gamma) }

func (a *Adapter) Build(_ context.Context, keys, values []uint64) (_ csf.Structure, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = csf.Constructionf("boomphf: %v", p)
		}
	}()
	f := &Function{mph: upstream.New(a.gamma, keys), n: uint64(len(keys))}
	f.values, err = csf.PlaceValues(keys, values, f.slot)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type Function struct {
	mph    *upstream.H
	n      uint64
	values *packed.Array
}

func (f *Function) slot(key uint64) (uint64, bool) {
	idx := f.mph.Query(key)
	if idx == 0 || idx > f.n {
		return 0, false
	}
	return idx - 1, true
}

func (f *Function) Query(key uint64) (uint64, bool) {
	pos, ok := f.slot(key)
	if !ok {
		return 0, false
	}
	return f.values.Get(int(pos)), true
}

func (f *Function) mphBytes() uint64 {
	return uint64(f.mph.Size())
}

func (f *Function) SizeInBits() uint64 {
	return f.mphBytes()*8 + f.values.SizeInBits()
}

func (f *Function) MemDetailed() utils.MemReport {
	return utils.NewMemReport("boomphf",
		utils.Leaf("mphf", f.mphBytes()),
		f.values.MemDetailed(),
	)
}
