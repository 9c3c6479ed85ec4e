// Package bbhash adapts BBHash minimal perfect hash functions into
// compressed static functions: the MPHF assigns each key a slot, and a
// bit-packed array holds the value for every slot.
package bbhash

import (
	"context"
	"encoding/binary"
	"fmt"

	relab "github.com/relab/bbhash"
	"github.com/zeebo/xxh3"

	"csfbench/csf"
	"csfbench/csf/packed"
	"csfbench/utils"
)

const DefaultGamma = 2.0

// Adapter builds relab/bbhash based functions. With fingerprints enabled it
// stores an 8-bit fingerprint per slot and rejects keys whose fingerprint
// does not match.
type Adapter struct {
	name         string
	gamma        float64
	fingerprints bool
}

func New() *Adapter {
	return &Adapter{name: "bbhash", gamma: DefaultGamma}
}

func NewWithFingerprints() *Adapter {
	return &Adapter{name: "bbhash-fp8", gamma: DefaultGamma, fingerprints: true}
}

func (a *Adapter) Name() string   { return a.name }
func (a *Adapter) Mode() csf.Mode { return csf.ModeFunction }

func (a *Adapter) Params() string {
	if a.fingerprints {
		return fmt.Sprintf("gamma=%.1f fp=8", a.gamma)
	}
	return fmt.Sprintf("gamma=%.1f", a.gamma)
}

func (a *Adapter) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	h, err := relab.New(keys, relab.Gamma(a.gamma))
	if err != nil {
		return nil, csf.Constructionf("bbhash: %v", err)
	}
	f := &Function{mph: h, n: uint64(len(keys))}
	f.values, err = csf.PlaceValues(keys, values, f.slot)
	if err != nil {
		return nil, err
	}
	if a.fingerprints {
		f.fps = make([]uint8, len(keys))
		for _, k := range keys {
			pos, _ := f.slot(k)
			f.fps[pos] = fingerprint(k)
		}
	}
	return f, nil
}

func fingerprint(key uint64) uint8 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return uint8(xxh3.Hash(buf[:]) >> 56)
}

// Function is a built BBHash function.
type Function struct {
	mph    *relab.BBHash2
	n      uint64
	values *packed.Array
	fps    []uint8
}

// slot converts bbhash's 1-based result to a 0-based slot.
func (f *Function) slot(key uint64) (uint64, bool) {
	idx := f.mph.Find(key)
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
	if f.fps != nil && f.fps[pos] != fingerprint(key) {
		return 0, false
	}
	return f.values.Get(int(pos)), true
}

func (f *Function) DetectsAbsence() bool { return f.fps != nil }

func (f *Function) mphBytes() uint64 {
	data, err := f.mph.MarshalBinary()
	if err != nil {
		return 0
	}
	return uint64(len(data))
}

func (f *Function) SizeInBits() uint64 {
	return f.mphBytes()*8 + f.values.SizeInBits() + uint64(len(f.fps))*8
}

func (f *Function) MemDetailed() utils.MemReport {
	children := []utils.MemReport{
		utils.Leaf("mphf", f.mphBytes()),
		f.values.MemDetailed(),
	}
	if f.fps != nil {
		children = append(children, utils.Leaf("fingerprints", uint64(len(f.fps))))
	}
	return utils.NewMemReport("bbhash", children...)
}
