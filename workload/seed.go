package workload

// Sub-stream identifiers passed to MixSeed.
const (
	streamKeys = iota + 1
	streamValues
	streamShuffle
	streamStart
)

// MixSeed combines a base seed with two stream coordinates. Distinct
// coordinates give unrelated seeds; the same inputs always give the same
// output.
func MixSeed(base, a, b uint64) uint64 {
	x := base + 0x9e3779b97f4a7c15
	x ^= a + 0x9e3779b97f4a7c15 + (x << 6) + (x >> 2)
	x ^= b + 0x9e3779b97f4a7c15 + (x << 6) + (x >> 2)
	return mix64(x)
}

// mix64 is the splitmix64 finalizer. It is a bijection on uint64.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
