package utils

func Map[T, U any](ts []T, f func(T) U) []U {
	us := make([]U, len(ts))
	for i, v := range ts {
		us[i] = f(v)
	}
	return us
}

// Counts returns how often each element occurs in ts.
func Counts[T comparable](ts []T) map[T]int {
	m := make(map[T]int)
	for _, v := range ts {
		m[v]++
	}
	return m
}
