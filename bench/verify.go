package bench

import (
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"csfbench/csf"
	"csfbench/workload"
)

const streamVerify = 0x7665726966 // "verif"

// verifyIndices returns the key indices to check, in ascending order when
// every key is checked.
func (r *Runner) verifyIndices(w *workload.Workload, trial int) []int {
	n := w.Len()
	if r.opts.VerifySample <= 0 || r.opts.VerifySample >= n {
		return nil
	}
	seed := workload.MixSeed(w.Spec().Seed, streamVerify, uint64(trial))
	rng := rand.New(rand.NewSource(int64(seed)))
	return rng.Perm(n)[:r.opts.VerifySample]
}

// verify checks s against the contract of mode, records the number of keys
// checked in res and, if s reports them, their lookup depths.
func (r *Runner) verify(s csf.Structure, mode csf.Mode, w *workload.Workload, trial int, res *TrialResult) error {
	lr, _ := s.(csf.LevelReporter)
	checked, err := r.check(s, mode, w, trial, func(k uint64) {
		if lr != nil {
			res.QueryLevels += lr.QueryLevels(k)
			res.LevelSamples++
		}
	})
	res.VerifiedKeys = checked
	return err
}

// check returns the number of keys that passed before the first mismatch.
func (r *Runner) check(s csf.Structure, mode csf.Mode, w *workload.Workload, trial int, passed func(uint64)) (int, error) {
	keys, values := w.Keys(), w.Values()
	n := len(keys)
	indices := r.verifyIndices(w, trial)
	count := n
	if indices != nil {
		count = len(indices)
	}
	at := func(i int) int {
		if indices == nil {
			return i
		}
		return indices[i]
	}

	var seen *bitset.BitSet
	if mode == csf.ModePosition {
		seen = bitset.New(uint(n))
	}

	for i := 0; i < count; i++ {
		idx := at(i)
		k := keys[idx]
		got, ok := s.Query(k)
		switch mode {
		case csf.ModeFunction:
			if !ok || got != values[idx] {
				return i, &MismatchError{Key: k, Index: idx, Expected: values[idx], Got: got, Found: ok, Detail: "wrong value"}
			}
		case csf.ModePosition:
			if !ok || got >= uint64(n) {
				return i, &MismatchError{Key: k, Index: idx, Expected: uint64(n), Got: got, Found: ok, Detail: "position out of range"}
			}
			if seen.Test(uint(got)) {
				return i, &MismatchError{Key: k, Index: idx, Expected: got, Got: got, Found: ok, Detail: "position assigned twice"}
			}
			seen.Set(uint(got))
		case csf.ModeMembership:
			if !ok {
				return i, &MismatchError{Key: k, Index: idx, Expected: 1, Got: 0, Found: ok, Detail: "false negative"}
			}
		}
		passed(k)
	}
	return count, nil
}
