// Package stats folds trial results into one row per implementation and
// workload configuration.
package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"csfbench/bench"
	"csfbench/csf"
	"csfbench/workload"
)

// ErrFinalized is returned by Accumulate and Finalize once Finalize has run.
var ErrFinalized = errors.New("aggregator already finalized")

// Key identifies a report row.
type Key struct {
	Implementation string
	Config         workload.Config
}

// Row aggregates every trial of one Key. Failed trials only contribute to
// the failure counters.
type Row struct {
	Implementation string
	Params         string
	Mode           csf.Mode
	Config         workload.Config

	Successes        int
	Failures         int
	FailuresByReason map[bench.FailureReason]int
	// FirstErrors holds the first error message seen for each reason.
	FirstErrors map[bench.FailureReason]string

	BuildWallMs       Summary
	BuildCPUMs        Summary
	BuildHeapBytes    Summary
	BuildKeysPerSec   Summary
	SizeBits          Summary
	BitsPerKey        Summary
	QueryNsPerOp      Summary
	QueryPerSec       Summary
	AbsentNsPerOp     Summary
	AbsentPerSec      Summary
	FalsePositiveRate Summary
	ValueEntropy      Summary
	LevelsPerQuery    Summary
}

// Failed reports whether no trial of the row succeeded.
func (r *Row) Failed() bool { return r.Successes == 0 }

func (r *Row) Trials() int { return r.Successes + r.Failures }

// FailureSummary lists failure counts by reason, e.g. "timeout=2".
func (r *Row) FailureSummary() string {
	if r.Failures == 0 {
		return ""
	}
	var parts []string
	for _, reason := range []bench.FailureReason{bench.FailConstruction, bench.FailVerificationMismatch, bench.FailTimeout} {
		if c := r.FailuresByReason[reason]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, c))
		}
	}
	return strings.Join(parts, ",")
}

func (r *Row) add(t bench.TrialResult) {
	if t.State != bench.Completed {
		r.Failures++
		r.FailuresByReason[t.Failure]++
		if _, ok := r.FirstErrors[t.Failure]; !ok && t.Err != nil {
			r.FirstErrors[t.Failure] = t.Err.Error()
		}
		return
	}
	r.Successes++
	r.BuildWallMs.Add(float64(t.BuildWall.Nanoseconds()) / 1e6)
	r.BuildCPUMs.Add(float64(t.BuildCPU.Nanoseconds()) / 1e6)
	r.BuildHeapBytes.Add(float64(t.BuildHeapBytes))
	r.BuildKeysPerSec.Add(t.BuildThroughput())
	r.SizeBits.Add(float64(t.SizeBits))
	r.BitsPerKey.Add(t.BitsPerKey())
	r.QueryNsPerOp.Add(t.QueryNsPerOp())
	r.QueryPerSec.Add(t.QueryThroughput())
	r.ValueEntropy.Add(t.ValueEntropy)
	if levels, ok := t.LevelsPerQuery(); ok {
		r.LevelsPerQuery.Add(levels)
	}
	if t.AbsentQueryCount > 0 {
		r.AbsentNsPerOp.Add(t.AbsentQueryNsPerOp())
		r.AbsentPerSec.Add(t.AbsentQueryThroughput())
		r.FalsePositiveRate.Add(t.FalsePositiveRate())
	}
}

// Report is the finalized, ordered result of a benchmark run.
type Report struct {
	Rows     []*Row
	Warnings []string
	Trials   int
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	order     map[string]int
	rows      map[Key]*Row
	trials    int
	finalized bool
}

// NewAggregator returns an aggregator that orders rows by the position of
// their implementation in implOrder. Implementations not listed sort after
// the listed ones, by name.
func NewAggregator(implOrder ...string) *Aggregator {
	order := make(map[string]int, len(implOrder))
	for i, name := range implOrder {
		order[name] = i
	}
	return &Aggregator{order: order, rows: make(map[Key]*Row)}
}

func (a *Aggregator) Accumulate(t bench.TrialResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return ErrFinalized
	}
	k := Key{Implementation: t.Implementation, Config: t.Config}
	row, ok := a.rows[k]
	if !ok {
		row = &Row{
			Implementation:   t.Implementation,
			Params:           t.Params,
			Mode:             t.Mode,
			Config:           t.Config,
			FailuresByReason: make(map[bench.FailureReason]int),
			FirstErrors:      make(map[bench.FailureReason]string),
		}
		a.rows[k] = row
	}
	row.add(t)
	a.trials++
	return nil
}

func (a *Aggregator) rank(impl string) (int, bool) {
	i, ok := a.order[impl]
	return i, ok
}

func (a *Aggregator) less(x, y *Row) bool {
	if x.Implementation != y.Implementation {
		ix, okx := a.rank(x.Implementation)
		iy, oky := a.rank(y.Implementation)
		switch {
		case okx && oky:
			return ix < iy
		case okx != oky:
			return okx
		default:
			return x.Implementation < y.Implementation
		}
	}
	if x.Config.KeyCount != y.Config.KeyCount {
		return x.Config.KeyCount < y.Config.KeyCount
	}
	return x.Config.String() < y.Config.String()
}

// Finalize closes the aggregator and returns the ordered report.
func (a *Aggregator) Finalize() (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true

	rep := &Report{Trials: a.trials, Rows: make([]*Row, 0, len(a.rows))}
	for _, row := range a.rows {
		rep.Rows = append(rep.Rows, row)
	}
	sort.Slice(rep.Rows, func(i, j int) bool { return a.less(rep.Rows[i], rep.Rows[j]) })

	for _, row := range rep.Rows {
		if c := row.FailuresByReason[bench.FailVerificationMismatch]; c > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("VERIFICATION MISMATCH: %s [%s]: %d trial(s) returned wrong answers: %s",
				row.Implementation, row.Config, c, row.FirstErrors[bench.FailVerificationMismatch]))
		}
	}
	rep.Warnings = append(rep.Warnings, monotonicityWarnings(rep.Rows)...)
	return rep, nil
}

// monotonicityWarnings flags rows whose mean size is smaller than the mean
// size of the same implementation and shape at a smaller key count. Rows
// must already be ordered by key count within an implementation.
func monotonicityWarnings(rows []*Row) []string {
	type group struct {
		impl  string
		shape workload.Config
	}
	last := make(map[group]*Row)
	var warnings []string
	for _, row := range rows {
		if row.Failed() {
			continue
		}
		g := group{row.Implementation, row.Config.Shape()}
		if prev, ok := last[g]; ok && row.SizeBits.Mean() < prev.SizeBits.Mean() {
			warnings = append(warnings, fmt.Sprintf("size not monotonic: %s: %d keys -> %.0f bits, %d keys -> %.0f bits",
				row.Implementation, prev.Config.KeyCount, prev.SizeBits.Mean(), row.Config.KeyCount, row.SizeBits.Mean()))
		}
		last[g] = row
	}
	return warnings
}
