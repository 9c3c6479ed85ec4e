// Package csftest holds shared checks for adapter tests.
package csftest

import (
	"context"
	"fmt"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"csfbench/csf"
	"csfbench/workload"
)

// Workload generates a uniform workload of n keys with values in [0, r).
func Workload(tb testing.TB, n int, r uint64, seed uint64) *workload.Workload {
	tb.Helper()
	w, err := workload.Generate(workload.Spec{
		Seed:        seed,
		KeyCount:    n,
		ValueRange:  r,
		AbsentCount: n,
	})
	require.NoError(tb, err)
	return w
}

// Build builds a over w and fails the test on error.
func Build(tb testing.TB, a csf.Adapter, w *workload.Workload) csf.Structure {
	tb.Helper()
	s, err := a.Build(context.Background(), w.Keys(), w.Values())
	require.NoError(tb, err, "build %s", a.Name())
	require.NotNil(tb, s)
	return s
}

// RequireCorrect checks every workload key against a's mode contract.
func RequireCorrect(tb testing.TB, a csf.Adapter, s csf.Structure, w *workload.Workload) {
	tb.Helper()
	keys, values := w.Keys(), w.Values()
	switch a.Mode() {
	case csf.ModeFunction:
		for i, k := range keys {
			got, ok := s.Query(k)
			if !ok || got != values[i] {
				require.FailNow(tb, fmt.Sprintf("%s: key %d: got (%d,%v), want (%d,true)", a.Name(), k, got, ok, values[i]))
			}
		}
	case csf.ModePosition:
		seen := bitset.New(uint(len(keys)))
		for _, k := range keys {
			got, ok := s.Query(k)
			require.True(tb, ok, "%s: key %d not found", a.Name(), k)
			require.Less(tb, got, uint64(len(keys)), "%s: key %d", a.Name(), k)
			require.False(tb, seen.Test(uint(got)), "%s: position %d assigned twice", a.Name(), got)
			seen.Set(uint(got))
		}
		require.Equal(tb, uint(len(keys)), seen.Count())
	case csf.ModeMembership:
		for _, k := range keys {
			_, ok := s.Query(k)
			require.True(tb, ok, "%s: false negative for %d", a.Name(), k)
		}
	}
}

// FalsePositiveRate returns the share of absent keys s reports as present.
func FalsePositiveRate(s csf.Structure, w *workload.Workload) float64 {
	absent := w.AbsentKeys()
	if len(absent) == 0 {
		return 0
	}
	fp := 0
	for _, k := range absent {
		if _, ok := s.Query(k); ok {
			fp++
		}
	}
	return float64(fp) / float64(len(absent))
}

// BitsPerKey is SizeInBits divided by the key count.
func BitsPerKey(s csf.Structure, w *workload.Workload) float64 {
	return float64(s.SizeInBits()) / float64(w.Len())
}

// RequireSizeGrows checks that the structure size does not shrink as the
// key count grows.
func RequireSizeGrows(t *testing.T, a csf.Adapter, counts ...int) {
	t.Helper()
	var prev uint64
	for _, n := range counts {
		w := Workload(t, n, 256, 11)
		s := Build(t, a, w)
		size := s.SizeInBits()
		require.GreaterOrEqual(t, size, prev, "%s: size shrank at n=%d", a.Name(), n)
		prev = size
	}
}

var sink uint64

// BenchmarkAdapter reports build time, query time and bits/key for a at
// several key counts.
func BenchmarkAdapter(b *testing.B, a csf.Adapter, counts ...int) {
	for _, n := range counts {
		w := Workload(b, n, 256, 1)
		b.Run(fmt.Sprintf("Build/Keys=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s := Build(b, a, w)
				b.ReportMetric(BitsPerKey(s, w), "bits/key_in_mem")
			}
		})
		b.Run(fmt.Sprintf("Query/Keys=%d", n), func(b *testing.B) {
			s := Build(b, a, w)
			qs := w.Queries(0)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				v, _ := s.Query(qs[i%len(qs)])
				sink += v
			}
		})
	}
}
