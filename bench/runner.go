// Package bench runs single benchmark trials: build a structure over a
// workload, verify it, then time queries against it.
//
// A trial moves Idle -> Building -> Verifying -> QueryTiming -> Completed
// and stops in Failed on the first error. Only the build and the query
// loops are timed; workload preparation, verification and size measurement
// happen outside the timed sections.
package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"csfbench/csf"
	"csfbench/logging"
	"csfbench/workload"
)

// sink receives a fold of every query result so the compiler cannot drop
// the timed loops.
var sink atomic.Uint64

// Options tune a Runner. The zero value verifies every key, issues one
// timed query per key and never times out.
type Options struct {
	// QueryCount is the number of timed queries; 0 means one per key.
	QueryCount int
	// WarmupQueries untimed queries run before the timed loop.
	WarmupQueries int
	// VerifySample checks only this many randomly chosen keys; 0 checks
	// every key.
	VerifySample int
	// TrialTimeout bounds the build; 0 disables the limit.
	TrialTimeout time.Duration
}

type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

type buildOutcome struct {
	s       csf.Structure
	err     error
	wall    time.Duration
	cpu     time.Duration
	alloced uint64
}

// Run executes one trial of a over w. It never panics on adapter failures;
// they are reported in the result.
func (r *Runner) Run(ctx context.Context, a csf.Adapter, w *workload.Workload, trial int) TrialResult {
	res := TrialResult{
		Implementation: a.Name(),
		Params:         csf.ParamsOf(a),
		Mode:           a.Mode(),
		Config:         w.Config(),
		TrialIndex:     trial,
		State:          Idle,
		KeyCount:       w.Len(),
		ValueEntropy:   w.ValueEntropy(),
	}
	logger := logging.FromContext(ctx).With().
		Str("impl", res.Implementation).
		Int("keys", res.KeyCount).
		Int("trial", trial).
		Logger()

	res.State = Building
	logger.Debug().Msg("building")
	out := r.build(ctx, logger, a, w)
	res.BuildWall, res.BuildCPU, res.BuildHeapBytes = out.wall, out.cpu, out.alloced
	if out.err != nil {
		return fail(logger, res, out.err)
	}
	s := out.s
	res.SizeBits = s.SizeInBits()
	if csf.SizedByAllocation(s) && res.BuildHeapBytes > 0 {
		res.SizeBits = res.BuildHeapBytes * 8
	}
	if mr, ok := s.(csf.MemReporter); ok {
		if e := logger.Debug(); e.Enabled() {
			mem := mr.MemDetailed()
			e.Uint64("mem_bits", mem.Bits()).RawJSON("mem", []byte(mem.JSON())).Msg("memory breakdown")
		}
	}

	res.State = Verifying
	logger.Debug().Dur("build", res.BuildWall).Uint64("size_bits", res.SizeBits).Msg("verifying")
	if err := r.verify(s, a.Mode(), w, trial, &res); err != nil {
		return fail(logger, res, err)
	}

	res.State = QueryTiming
	r.timeQueries(s, w, &res)
	res.State = Completed
	logger.Debug().
		Float64("ns_per_query", res.QueryNsPerOp()).
		Float64("bits_per_key", res.BitsPerKey()).
		Msg("trial completed")
	return res
}

func fail(logger zerolog.Logger, res TrialResult, err error) TrialResult {
	switch {
	case errors.Is(err, ErrTimeout):
		res.Failure = FailTimeout
	case errors.Is(err, ErrVerificationMismatch):
		res.Failure = FailVerificationMismatch
	default:
		res.Failure = FailConstruction
	}
	stage := res.State
	res.State = Failed
	res.Err = err

	ev := logger.Warn()
	if res.Failure == FailVerificationMismatch {
		ev = logger.Error()
	}
	ev.Err(err).Stringer("stage", stage).Stringer("reason", res.Failure).Msg("trial failed")
	return res
}

// build runs the adapter on its own goroutine, locked to an OS thread so
// that thread CPU time covers the build. If the deadline passes first the
// goroutine is abandoned.
func (r *Runner) build(ctx context.Context, logger zerolog.Logger, a csf.Adapter, w *workload.Workload) buildOutcome {
	if r.opts.TrialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.TrialTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return buildOutcome{err: fmt.Errorf("%w: %v", ErrTimeout, err)}
	}

	keys, values := w.Keys(), w.Values()
	done := make(chan buildOutcome, 1)
	started := time.Now()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var out buildOutcome
		var before, after runtime.MemStats
		defer func() {
			if p := recover(); p != nil {
				out.s = nil
				out.err = csf.Constructionf("panic: %v", p)
			}
			done <- out
		}()

		runtime.GC()
		runtime.ReadMemStats(&before)
		cpu0 := threadCPUTime()
		t0 := time.Now()
		out.s, out.err = a.Build(ctx, keys, values)
		out.wall = time.Since(t0)
		out.cpu = threadCPUTime() - cpu0
		runtime.ReadMemStats(&after)
		out.alloced = after.TotalAlloc - before.TotalAlloc

		if out.err != nil && !errors.Is(out.err, csf.ErrConstruction) {
			out.err = fmt.Errorf("%w: %w", csf.ErrConstruction, out.err)
		}
		if out.err == nil && out.s == nil {
			out.err = csf.Constructionf("adapter returned no structure")
		}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() != nil {
			out.err = fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return out
	case <-ctx.Done():
		logger.Warn().
			Dur("elapsed", time.Since(started)).
			Msg("build abandoned; it may keep consuming CPU until it returns")
		return buildOutcome{err: fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())}
	}
}

func (r *Runner) timeQueries(s csf.Structure, w *workload.Workload, res *TrialResult) {
	queries := w.Queries(r.opts.QueryCount)
	warm := min(r.opts.WarmupQueries, len(queries))
	res.QueryCount = len(queries)

	var acc uint64
	for _, k := range queries[:warm] {
		v, _ := s.Query(k)
		acc += v
	}

	runtime.GC()
	start := time.Now()
	for _, k := range queries {
		v, ok := s.Query(k)
		acc += v
		if ok {
			acc++
		}
	}
	res.QueryDuration = time.Since(start)

	absent := w.AbsentKeys()
	if len(absent) > 0 && csf.DetectsAbsence(s) {
		fp := 0
		runtime.GC()
		start = time.Now()
		for _, k := range absent {
			v, ok := s.Query(k)
			acc += v
			if ok {
				fp++
			}
		}
		res.AbsentQueryDuration = time.Since(start)
		res.AbsentQueryCount = len(absent)
		res.FalsePositives = fp
	}
	sink.Add(acc)
}
