package bbhash

import (
	"context"
	"fmt"

	obb "github.com/opencoff/go-bbhash"

	"csfbench/csf"
)

// PositionAdapter builds opencoff/go-bbhash MPHFs and exposes them in
// position mode: each key maps to a distinct slot in [0, n).
type PositionAdapter struct {
	gamma float64
}

func NewPosition() *PositionAdapter {
	return &PositionAdapter{gamma: DefaultGamma}
}

func (a *PositionAdapter) Name() string   { return "opencoff-bbhash" }
func (a *PositionAdapter) Mode() csf.Mode { return csf.ModePosition }
func (a *PositionAdapter) Params() string { return fmt.Sprintf("gamma=%.1f", a.gamma) }

func (a *PositionAdapter) Build(_ context.Context, keys, _ []uint64) (csf.Structure, error) {
	h, err := obb.New(a.gamma, keys)
	if err != nil {
		return nil, csf.Constructionf("opencoff-bbhash: %v", err)
	}
	return &Positions{mph: h, n: uint64(len(keys))}, nil
}

type Positions struct {
	mph *obb.BBHash
	n   uint64
}

func (p *Positions) Query(key uint64) (uint64, bool) {
	idx := p.mph.Find(key)
	if idx == 0 || idx > p.n {
		return 0, false
	}
	return idx - 1, true
}

func (p *Positions) SizeInBits() uint64 {
	return uint64(p.mph.MarshalBinarySize()) * 8
}
