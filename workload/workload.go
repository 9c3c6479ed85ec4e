// Package workload generates reproducible benchmark inputs: a set of
// distinct keys, one value per key, a query order and a set of keys that
// are guaranteed to be absent.
//
// Generation is a pure function of Spec. Every random stream is derived from
// Spec.Seed with MixSeed, one stream per purpose, so changing the query order
// never changes the keys and vice versa.
package workload

import (
	"math"
	"math/bits"
	"math/rand"

	"csfbench/utils"
)

// Workload is immutable once returned by Generate. Accessors return the
// backing slices; callers must not modify them.
type Workload struct {
	spec    Spec
	keys    []uint64
	values  []uint64
	order   []int
	absent  []uint64
	entropy float64
}

// Generate builds the workload described by spec.
func Generate(spec Spec) (*Workload, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	n := spec.KeyCount
	w := &Workload{spec: spec}
	w.keys, w.absent = generateKeys(spec)
	w.values = generateValues(spec)
	w.entropy = entropy(w.values)
	if spec.QueryOrder == ShuffledOrder {
		rng := rand.New(rand.NewSource(int64(MixSeed(spec.Seed, streamShuffle, 0))))
		w.order = rng.Perm(n)
	}
	return w, nil
}

func generateKeys(spec Spec) (keys, absent []uint64) {
	n, m := spec.KeyCount, spec.AbsentCount
	keys = make([]uint64, n)
	absent = make([]uint64, m)

	switch spec.Keys {
	case SequentialKeys:
		start := sequentialStart(spec)
		for i := range keys {
			keys[i] = start + uint64(i)
		}
		for i := range absent {
			absent[i] = start + uint64(n+i)
		}
	default:
		p := newPermutation(spec.keyBits(), spec.Seed)
		for i := range keys {
			keys[i] = p.apply(uint64(i))
		}
		for i := range absent {
			absent[i] = p.apply(uint64(n + i))
		}
	}
	return keys, absent
}

// sequentialStart picks a start such that start+n+m-1 stays in the key space.
func sequentialStart(spec Spec) uint64 {
	total := uint64(spec.KeyCount) + uint64(spec.AbsentCount)
	h := MixSeed(spec.Seed, streamStart, 0)
	var slack uint64
	if b := spec.keyBits(); b == 64 {
		slack = math.MaxUint64 - total + 1
	} else {
		slack = (uint64(1) << b) - total
	}
	if slack == math.MaxUint64 {
		return h
	}
	return h % (slack + 1)
}

func generateValues(spec Spec) []uint64 {
	rng := rand.New(rand.NewSource(int64(MixSeed(spec.Seed, streamValues, 0))))
	r := spec.ValueRange
	values := make([]uint64, spec.KeyCount)
	for i := range values {
		switch spec.Values {
		case DominantValues:
			if r == 1 || rng.Float64() < spec.DominantShare {
				values[i] = 0
			} else {
				values[i] = 1 + uniform(rng, r-1)
			}
		case GeometricValues:
			v := uint64(bits.TrailingZeros64(rng.Uint64()))
			values[i] = min(v, r-1)
		default:
			values[i] = uniform(rng, r)
		}
	}
	return values
}

func uniform(rng *rand.Rand, r uint64) uint64 {
	if r <= math.MaxInt64 {
		return uint64(rng.Int63n(int64(r)))
	}
	return rng.Uint64() % r
}

// entropy returns the empirical zero-order entropy of values in bits per
// value.
func entropy(values []uint64) float64 {
	n := float64(len(values))
	var h float64
	for _, c := range utils.Counts(values) {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func (w *Workload) Spec() Spec     { return w.spec }
func (w *Workload) Config() Config { return w.spec.Config() }
func (w *Workload) Len() int       { return len(w.keys) }

// Keys returns the workload keys in insertion order.
func (w *Workload) Keys() []uint64 { return w.keys }

// Values returns values aligned with Keys.
func (w *Workload) Values() []uint64 { return w.values }

// AbsentKeys returns keys guaranteed not to be in Keys.
func (w *Workload) AbsentKeys() []uint64 { return w.absent }

// ValueEntropy is the empirical entropy of Values in bits per key.
func (w *Workload) ValueEntropy() float64 { return w.entropy }

// QueryIndex returns the index into Keys of the i-th query, cycling through
// the query order.
func (w *Workload) QueryIndex(i int) int {
	i %= len(w.keys)
	if w.order == nil {
		return i
	}
	return w.order[i]
}

// Queries materializes count query keys in query order. A count of zero
// means one query per key.
func (w *Workload) Queries(count int) []uint64 {
	if count <= 0 {
		count = len(w.keys)
	}
	qs := make([]uint64, count)
	for i := range qs {
		qs[i] = w.keys[w.QueryIndex(i)]
	}
	return qs
}
