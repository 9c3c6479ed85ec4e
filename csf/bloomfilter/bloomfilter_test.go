package bloomfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"csfbench/csf"
	"csfbench/csf/csftest"
)

func TestNoFalseNegatives(t *testing.T) {
	t.Parallel()
	a := New(DefaultFalsePositiveRate)
	require.Equal(t, csf.ModeMembership, a.Mode())
	for _, n := range []int{1, 100, 100000} {
		w := csftest.Workload(t, n, 2, 8)
		s := csftest.Build(t, a, w)
		csftest.RequireCorrect(t, a, s, w)
		require.True(t, csf.DetectsAbsence(s))
	}
}

func TestFalsePositiveRateNearTarget(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 100000, 2, 9)
	s := csftest.Build(t, New(0.01), w)
	require.Less(t, csftest.FalsePositiveRate(s, w), 0.02)

	// about 9.6 bits per key at 1%
	bpk := csftest.BitsPerKey(s, w)
	require.Greater(t, bpk, 9.0)
	require.Less(t, bpk, 11.0)
}

func TestInvalidRate(t *testing.T) {
	t.Parallel()
	_, err := New(0).Build(context.Background(), []uint64{1}, nil)
	require.ErrorIs(t, err, csf.ErrConstruction)
}

func TestMemDetailedMatchesSize(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 1000, 2, 1)
	s := csftest.Build(t, New(0.05), w).(*Filter)
	require.Equal(t, s.SizeInBits()/8, s.MemDetailed().TotalBytes)
}

func BenchmarkBloom(b *testing.B) {
	csftest.BenchmarkAdapter(b, New(DefaultFalsePositiveRate), 1<<10, 1<<16, 1<<20)
}
