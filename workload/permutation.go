package workload

const feistelRounds = 4

// permutation is a seeded bijection on [0, 2^bits). Distinct indices map to
// distinct keys, so the first n indices give n distinct keys and the next m
// give m keys that are guaranteed to be absent.
type permutation struct {
	bits     uint
	half     uint
	halfMask uint64
	rounds   [feistelRounds]uint64
}

func newPermutation(bits uint, seed uint64) permutation {
	p := permutation{bits: bits}
	if bits < 64 {
		w := bits + bits%2
		p.half = w / 2
		p.halfMask = 1<<p.half - 1
	}
	for i := range p.rounds {
		p.rounds[i] = MixSeed(seed, streamKeys, uint64(i))
	}
	return p
}

func (p permutation) apply(i uint64) uint64 {
	if p.bits == 64 {
		x := mix64(i ^ p.rounds[0])
		x = mix64(x ^ p.rounds[1])
		return x
	}
	// Cycle walking: the Feistel network permutes [0, 2^w) with w the
	// next even width, so repeated application lands back in range.
	limit := uint64(1) << p.bits
	x := p.feistel(i)
	for x >= limit {
		x = p.feistel(x)
	}
	return x
}

func (p permutation) feistel(x uint64) uint64 {
	l := x >> p.half
	r := x & p.halfMask
	for _, k := range p.rounds {
		l, r = r, l^(mix64(r^k)&p.halfMask)
	}
	return l<<p.half | r
}
