package rankdict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"csfbench/csf"
	"csfbench/csf/csftest"
	"csfbench/workload"
)

func denseWorkload(t *testing.T, n int, dist workload.KeyDistribution) *workload.Workload {
	t.Helper()
	w, err := workload.Generate(workload.Spec{
		Seed:        5,
		KeyCount:    n,
		Keys:        dist,
		KeyBits:     20,
		ValueRange:  100,
		AbsentCount: n / 4,
	})
	require.NoError(t, err)
	return w
}

func TestDenseKeys(t *testing.T) {
	t.Parallel()
	a := New()
	for _, dist := range []workload.KeyDistribution{workload.UniformKeys, workload.SequentialKeys} {
		w := denseWorkload(t, 50000, dist)
		s := csftest.Build(t, a, w)
		csftest.RequireCorrect(t, a, s, w)
		require.True(t, csf.DetectsAbsence(s))
		require.Zero(t, csftest.FalsePositiveRate(s, w), "rank dictionary is exact")

		_, ok := s.Query(1 << 20)
		require.False(t, ok, "key outside the universe")
	}
}

func TestSequentialIsCompact(t *testing.T) {
	t.Parallel()
	w := denseWorkload(t, 100000, workload.SequentialKeys)
	s := csftest.Build(t, New(), w)
	// one bit per key, rank support, and 7 value bits
	require.Less(t, csftest.BitsPerKey(s, w), 10.0)
}

func TestSparseUniverseFails(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 1000, 16, 1)
	_, err := New().Build(context.Background(), w.Keys(), w.Values())
	require.ErrorIs(t, err, csf.ErrConstruction)

	_, err = WithMaxBitsPerKey(1).Build(context.Background(), []uint64{1, 3}, []uint64{0, 0})
	require.ErrorIs(t, err, csf.ErrConstruction)

	s, err := WithMaxBitsPerKey(2).Build(context.Background(), []uint64{1, 3}, []uint64{5, 6})
	require.NoError(t, err)
	v, ok := s.Query(3)
	require.True(t, ok)
	require.Equal(t, uint64(6), v)
	_, ok = s.Query(2)
	require.False(t, ok)
}

func BenchmarkRankdict(b *testing.B) {
	a := New()
	w, err := workload.Generate(workload.Spec{Seed: 1, KeyCount: 1 << 20, Keys: workload.SequentialKeys, ValueRange: 256})
	require.NoError(b, err)
	b.Run("Build", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			s := csftest.Build(b, a, w)
			b.ReportMetric(csftest.BitsPerKey(s, w), "bits/key_in_mem")
		}
	})
}

func TestSizeFromRankDictionary(t *testing.T) {
	t.Parallel()
	w := denseWorkload(t, 20000, workload.UniformKeys)
	d := csftest.Build(t, New(), w).(*Dict)
	require.Equal(t, uint64(d.bits.AllocSize())*8+64+d.values.SizeInBits(), d.SizeInBits())
	require.Equal(t, d.SizeInBits(), d.MemDetailed().Bits())
}
