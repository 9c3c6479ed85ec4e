package bench

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"csfbench/csf"
	"csfbench/csf/baseline"
	"csfbench/logging"
	"csfbench/utils"
	"csfbench/workload"
)

// mapAdapter builds an exact map and lets tests corrupt answers.
type mapAdapter struct {
	name    string
	mode    csf.Mode
	absence bool
	corrupt func(key, value uint64) (uint64, bool)
	build   func(ctx context.Context) error
}

func (a *mapAdapter) Name() string   { return a.name }
func (a *mapAdapter) Mode() csf.Mode { return a.mode }
func (a *mapAdapter) Params() string { return "p=1" }

func (a *mapAdapter) Build(ctx context.Context, keys, values []uint64) (csf.Structure, error) {
	if a.build != nil {
		if err := a.build(ctx); err != nil {
			return nil, err
		}
	}
	m := make(map[uint64]uint64, len(keys))
	for i, k := range keys {
		switch a.mode {
		case csf.ModePosition:
			m[k] = uint64(i)
		default:
			m[k] = values[i]
		}
	}
	return &mapStructure{m: m, a: a}, nil
}

type mapStructure struct {
	m map[uint64]uint64
	a *mapAdapter
}

func (s *mapStructure) Query(key uint64) (uint64, bool) {
	v, ok := s.m[key]
	if s.a.corrupt != nil {
		return s.a.corrupt(key, v)
	}
	return v, ok
}

func (s *mapStructure) SizeInBits() uint64   { return uint64(len(s.m)) * 128 }
func (s *mapStructure) DetectsAbsence() bool { return s.a.absence }

func testWorkload(t *testing.T, n int) *workload.Workload {
	t.Helper()
	w, err := workload.Generate(workload.Spec{Seed: 42, KeyCount: n, ValueRange: 256, AbsentCount: n})
	require.NoError(t, err)
	return w
}

func TestRunCompletes(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 2000)
	r := NewRunner(Options{})
	res := r.Run(context.Background(), &mapAdapter{name: "map", absence: true}, w, 3)

	require.Equal(t, Completed, res.State)
	require.Equal(t, NoFailure, res.Failure)
	require.NoError(t, res.Err)
	require.Equal(t, "map", res.Implementation)
	require.Equal(t, "p=1", res.Params)
	require.Equal(t, 3, res.TrialIndex)
	require.Equal(t, w.Config(), res.Config)
	require.Equal(t, 2000, res.VerifiedKeys)
	require.Equal(t, 2000, res.QueryCount)
	require.Equal(t, 2000, res.AbsentQueryCount)
	require.Zero(t, res.FalsePositives)
	require.Equal(t, 128.0, res.BitsPerKey())
	require.Positive(t, res.BuildWall)
	require.GreaterOrEqual(t, res.QueryNsPerOp(), 0.0)
}

func TestRunSkipsAbsentPassWithoutDetector(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 500)
	res := NewRunner(Options{QueryCount: 1234, WarmupQueries: 10}).
		Run(context.Background(), &mapAdapter{name: "map"}, w, 0)
	require.Equal(t, Completed, res.State)
	require.Equal(t, 1234, res.QueryCount)
	require.Zero(t, res.AbsentQueryCount)
	require.Zero(t, res.FalsePositiveRate())
}

func TestFalsePositivesCounted(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 1000)
	a := &mapAdapter{name: "leaky", mode: csf.ModeMembership, absence: true,
		corrupt: func(k, v uint64) (uint64, bool) { return 0, true }}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, Completed, res.State)
	require.Equal(t, 1000, res.FalsePositives)
	require.Equal(t, 1.0, res.FalsePositiveRate())
}

func TestWrongValueIsMismatch(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 1000)
	bad := w.Keys()[500]
	a := &mapAdapter{name: "bad", corrupt: func(k, v uint64) (uint64, bool) {
		if k == bad {
			return v + 1, true
		}
		return v, true
	}}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, Failed, res.State)
	require.Equal(t, FailVerificationMismatch, res.Failure)
	require.Equal(t, 500, res.VerifiedKeys)
	require.Zero(t, res.QueryCount, "mismatching trial must not be timed")

	var mm *MismatchError
	require.True(t, errors.As(res.Err, &mm))
	require.Equal(t, bad, mm.Key)
	require.Equal(t, w.Values()[500], mm.Expected)
	require.Equal(t, w.Values()[500]+1, mm.Got)
	require.ErrorIs(t, res.Err, ErrVerificationMismatch)
}

func TestPositionCollisionIsMismatch(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	ok := &mapAdapter{name: "pos", mode: csf.ModePosition}
	require.Equal(t, Completed, NewRunner(Options{}).Run(context.Background(), ok, w, 0).State)

	collide := &mapAdapter{name: "pos", mode: csf.ModePosition,
		corrupt: func(k, v uint64) (uint64, bool) { return v / 2, true }}
	res := NewRunner(Options{}).Run(context.Background(), collide, w, 0)
	require.Equal(t, FailVerificationMismatch, res.Failure)

	outOfRange := &mapAdapter{name: "pos", mode: csf.ModePosition,
		corrupt: func(k, v uint64) (uint64, bool) { return v + 100, true }}
	res = NewRunner(Options{}).Run(context.Background(), outOfRange, w, 0)
	require.Equal(t, FailVerificationMismatch, res.Failure)
}

func TestMembershipFalseNegative(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	a := &mapAdapter{name: "filter", mode: csf.ModeMembership,
		corrupt: func(k, v uint64) (uint64, bool) { return 0, false }}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, FailVerificationMismatch, res.Failure)
	require.Zero(t, res.VerifiedKeys)
}

func TestConstructionFailure(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	a := &mapAdapter{name: "broken", build: func(context.Context) error {
		return csf.Constructionf("too many retries")
	}}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, Failed, res.State)
	require.Equal(t, FailConstruction, res.Failure)
	require.ErrorIs(t, res.Err, csf.ErrConstruction)

	plain := &mapAdapter{name: "plain", build: func(context.Context) error { return errors.New("oops") }}
	res = NewRunner(Options{}).Run(context.Background(), plain, w, 0)
	require.Equal(t, FailConstruction, res.Failure)
	require.ErrorIs(t, res.Err, csf.ErrConstruction)
}

func TestPanicIsConstructionFailure(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	a := &mapAdapter{name: "panics", build: func(context.Context) error { panic("index out of range") }}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, FailConstruction, res.Failure)
	require.Contains(t, res.Err.Error(), "index out of range")
}

func TestTimeout(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	stubborn := &mapAdapter{name: "slow", build: func(context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	}}
	start := time.Now()
	res := NewRunner(Options{TrialTimeout: 20 * time.Millisecond}).Run(context.Background(), stubborn, w, 0)
	require.Less(t, time.Since(start), 250*time.Millisecond, "runner must not wait for an abandoned build")
	require.Equal(t, Failed, res.State)
	require.Equal(t, FailTimeout, res.Failure)
	require.ErrorIs(t, res.Err, ErrTimeout)

	cooperative := &mapAdapter{name: "coop", build: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	res = NewRunner(Options{TrialTimeout: 10 * time.Millisecond}).Run(context.Background(), cooperative, w, 0)
	require.Equal(t, FailTimeout, res.Failure)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewRunner(Options{}).Run(ctx, &mapAdapter{name: "map"}, w, 0)
	require.Equal(t, FailTimeout, res.Failure)
}

func TestVerifySample(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 1000)
	r := NewRunner(Options{VerifySample: 50})
	res := r.Run(context.Background(), &mapAdapter{name: "map"}, w, 1)
	require.Equal(t, Completed, res.State)
	require.Equal(t, 50, res.VerifiedKeys)

	a := r.verifyIndices(w, 1)
	b := r.verifyIndices(w, 1)
	require.Equal(t, a, b, "sample must be reproducible")
	require.NotEqual(t, a, r.verifyIndices(w, 2))
}

func TestStateNames(t *testing.T) {
	t.Parallel()
	require.Equal(t, "query_timing", QueryTiming.String())
	require.Equal(t, "verification_mismatch", FailVerificationMismatch.String())
}

// decorated wraps the structures of mapAdapter with optional capabilities.
type decorated struct {
	*mapStructure
	levels func(key uint64) int
}

func (d *decorated) QueryLevels(key uint64) int { return d.levels(key) }
func (d *decorated) SizedByAllocation() bool    { return true }

func (d *decorated) MemDetailed() utils.MemReport {
	return utils.NewMemReport("map", utils.Leaf("entries", uint64(len(d.m))*16))
}

type decoratedAdapter struct {
	mapAdapter
	levels func(key uint64) int
}

func (a *decoratedAdapter) Build(ctx context.Context, keys, values []uint64) (csf.Structure, error) {
	s, err := a.mapAdapter.Build(ctx, keys, values)
	if err != nil {
		return nil, err
	}
	return &decorated{mapStructure: s.(*mapStructure), levels: a.levels}, nil
}

func TestLevelsRecordedDuringVerification(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 999)
	a := &decoratedAdapter{mapAdapter: mapAdapter{name: "levels"}, levels: func(k uint64) int { return int(k%3) + 1 }}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, Completed, res.State)

	want := 0
	for _, k := range w.Keys() {
		want += int(k%3) + 1
	}
	require.Equal(t, 999, res.LevelSamples)
	require.Equal(t, want, res.QueryLevels)
	levels, ok := res.LevelsPerQuery()
	require.True(t, ok)
	require.InDelta(t, float64(want)/999, levels, 1e-9)

	plain := NewRunner(Options{}).Run(context.Background(), &mapAdapter{name: "map"}, w, 0)
	_, ok = plain.LevelsPerQuery()
	require.False(t, ok)
}

func TestAllocationSizedStructure(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 5000)
	a := &decoratedAdapter{mapAdapter: mapAdapter{name: "heap"}, levels: func(uint64) int { return 1 }}
	res := NewRunner(Options{}).Run(context.Background(), a, w, 0)
	require.Equal(t, Completed, res.State)
	require.Positive(t, res.BuildHeapBytes)
	require.Equal(t, res.BuildHeapBytes*8, res.SizeBits)
}

func TestMemoryBreakdownLogged(t *testing.T) {
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.DebugLevel))
	a := &decoratedAdapter{mapAdapter: mapAdapter{name: "mem"}, levels: func(uint64) int { return 1 }}
	res := NewRunner(Options{}).Run(ctx, a, testWorkload(t, 100), 0)
	require.Equal(t, Completed, res.State)
	require.Contains(t, buf.String(), `"mem_bits":12800`)
	require.Contains(t, buf.String(), `"mem":{"name":"map","total_bytes":1600`)
}

func TestGoMapSizedByBuildAllocation(t *testing.T) {
	t.Parallel()
	w := testWorkload(t, 5000)
	res := NewRunner(Options{}).Run(context.Background(), baseline.GoMap{}, w, 0)
	require.Equal(t, Completed, res.State)
	require.Equal(t, res.BuildHeapBytes*8, res.SizeBits)
	// 16 bytes per entry plus table slack and control bytes
	require.Greater(t, res.BitsPerKey(), 128.0)
}
