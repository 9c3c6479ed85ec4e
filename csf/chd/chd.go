// Package chd adapts github.com/aelaguiz/mph, a compress-hash-displace table
// that keeps every key next to its value. Lookups compare the stored key, so
// absent keys are always rejected.
package chd

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/aelaguiz/mph"

	"csfbench/csf"
	"csfbench/errutil"
	"csfbench/utils"
)

const (
	// DefaultRetryLimit bounds the hash functions tried per bucket.
	DefaultRetryLimit = 1_000_000

	bucketRatio = 0.5
	seed        = 42
)

type Adapter struct {
	retryLimit int
}

func New() *Adapter { return WithRetryLimit(DefaultRetryLimit) }

// WithRetryLimit returns an adapter whose builds fail once a bucket needs more
// than limit new hash functions.
func WithRetryLimit(limit int) *Adapter { return &Adapter{retryLimit: limit} }

func (*Adapter) Name() string   { return "chd" }
func (*Adapter) Mode() csf.Mode { return csf.ModeFunction }
func (a *Adapter) Params() string {
	return fmt.Sprintf("bucket_ratio=%.1f retry_limit=%d", bucketRatio, a.retryLimit)
}

func (a *Adapter) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	b, err := mph.Builder().Seed(seed).BucketRatio(bucketRatio)
	if err != nil {
		return nil, csf.Constructionf("chd: %v", err)
	}
	if _, err := b.RetryLimit(a.retryLimit); err != nil {
		return nil, csf.Constructionf("chd: %v", err)
	}
	keyBuf := make([]byte, 8*len(keys))
	valBuf := make([]byte, 0, binary.MaxVarintLen64*len(values))
	for i, k := range keys {
		key := keyBuf[8*i : 8*i+8]
		binary.BigEndian.PutUint64(key, k)
		start := len(valBuf)
		valBuf = binary.AppendUvarint(valBuf, values[i])
		b.Add(key, valBuf[start:])
	}
	t, err := b.Build()
	if err != nil {
		return nil, csf.Constructionf("chd: %v", err)
	}
	return &Table{t: t}, nil
}

type Table struct {
	t *mph.CHD
}

func (t *Table) Query(key uint64) (uint64, bool) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	v := t.t.Get(buf[:])
	if v == nil {
		return 0, false
	}
	x, n := binary.Uvarint(v)
	if n <= 0 {
		return 0, false
	}
	return x, true
}

// DetectsAbsence is true: Get compares the stored key.
func (*Table) DetectsAbsence() bool { return true }

// QueryLevels is always two: the bucket index picks the hash function, which
// picks the slot.
func (*Table) QueryLevels(uint64) int { return 2 }

type countingWriter struct{ n uint64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += uint64(len(p))
	return len(p), nil
}

// serializedBytes is the length of the table's Write encoding, the same bytes
// Mmap serves queries from.
func (t *Table) serializedBytes() uint64 {
	var w countingWriter
	errutil.FatalIf(t.t.Write(&w))
	return w.n
}

func (t *Table) SizeInBits() uint64 { return t.serializedBytes() * 8 }

func (t *Table) MemDetailed() utils.MemReport {
	return utils.NewMemReport("chd", utils.Leaf("serialized", t.serializedBytes()))
}
