package stats

import "math"

// Summary accumulates a stream of observations in constant space.
type Summary struct {
	n    int
	sum  float64
	mean float64
	m2   float64 // sum of squared deviations from the running mean
	min  float64
	max  float64
}

func (s *Summary) Add(x float64) {
	if s.n == 0 {
		s.min, s.max = x, x
	} else {
		s.min = math.Min(s.min, x)
		s.max = math.Max(s.max, x)
	}
	s.n++
	s.sum += x
	d := x - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (x - s.mean)
}

func (s Summary) Count() int   { return s.n }
func (s Summary) Sum() float64 { return s.sum }
func (s Summary) Min() float64 { return s.min }
func (s Summary) Max() float64 { return s.max }

// Mean returns the arithmetic mean, or NaN when empty.
func (s Summary) Mean() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.mean
}

// StdDev returns the sample standard deviation; zero for fewer than two
// observations.
func (s Summary) StdDev() float64 {
	if s.n < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n-1))
}
