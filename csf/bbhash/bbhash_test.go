package bbhash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"csfbench/csf"
	"csfbench/csf/csftest"
)

func TestFunctionCorrect(t *testing.T) {
	t.Parallel()
	for _, a := range []*Adapter{New(), NewWithFingerprints()} {
		for _, n := range []int{1, 2, 100, 100000} {
			w := csftest.Workload(t, n, 256, 42)
			s := csftest.Build(t, a, w)
			csftest.RequireCorrect(t, a, s, w)
		}
	}
}

func TestFingerprintsRejectAbsentKeys(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 50000, 16, 7)

	plain := csftest.Build(t, New(), w)
	require.False(t, csf.DetectsAbsence(plain))

	fp := csftest.Build(t, NewWithFingerprints(), w)
	require.True(t, csf.DetectsAbsence(fp))
	// 8-bit fingerprints: about 1/256 of absent keys slip through
	require.Less(t, csftest.FalsePositiveRate(fp, w), 0.01)
	require.InDelta(t, float64(plain.SizeInBits()+50000*8), float64(fp.SizeInBits()), 0.01*float64(plain.SizeInBits()))
}

func TestBitsPerKey(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 100000, 256, 42)
	s := csftest.Build(t, New(), w)
	bpk := csftest.BitsPerKey(s, w)
	// 8 value bits plus roughly 3.7 bits for the MPHF at gamma 2
	require.Greater(t, bpk, 8.0)
	require.Less(t, bpk, 14.0)

	report := s.(csf.MemReporter).MemDetailed()
	require.Equal(t, s.SizeInBits(), report.Bits())
}

func TestPositions(t *testing.T) {
	t.Parallel()
	a := NewPosition()
	require.Equal(t, csf.ModePosition, a.Mode())
	for _, n := range []int{1, 1000, 100000} {
		w := csftest.Workload(t, n, 1, 3)
		s := csftest.Build(t, a, w)
		csftest.RequireCorrect(t, a, s, w)
		require.Positive(t, s.SizeInBits())
	}
}

func TestSizeGrows(t *testing.T) {
	t.Parallel()
	csftest.RequireSizeGrows(t, New(), 1000, 10000, 100000)
	csftest.RequireSizeGrows(t, NewPosition(), 1000, 10000, 100000)
}

func BenchmarkBBHash(b *testing.B) {
	csftest.BenchmarkAdapter(b, New(), 1<<10, 1<<16, 1<<20)
}

func BenchmarkBBHashFingerprints(b *testing.B) {
	csftest.BenchmarkAdapter(b, NewWithFingerprints(), 1<<10, 1<<16, 1<<20)
}

func TestPositionSizeIsMarshalledSize(t *testing.T) {
	t.Parallel()
	w := csftest.Workload(t, 20000, 1, 8)
	p := csftest.Build(t, NewPosition(), w).(*Positions)
	require.Equal(t, uint64(p.mph.MarshalBinarySize())*8, p.SizeInBits())
}
