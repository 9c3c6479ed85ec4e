// Package all lists the built-in adapters.
package all

import (
	"csfbench/csf"
	"csfbench/csf/baseline"
	"csfbench/csf/bbhash"
	"csfbench/csf/bloomfilter"
	"csfbench/csf/boomphf"
	"csfbench/csf/chd"
	"csfbench/csf/monotone"
	"csfbench/csf/rankdict"
	"csfbench/csf/rbtz"
)

// Adapters returns a fresh slice of every built-in adapter in report order.
func Adapters() []csf.Adapter {
	return []csf.Adapter{
		bbhash.New(),
		bbhash.NewWithFingerprints(),
		bbhash.NewPosition(),
		boomphf.New("boomphf", 2.0),
		boomphf.New("boomphf-g1", 1.0),
		rbtz.NewAdapter(),
		chd.New(),
		monotone.NewAdapter(),
		rankdict.New(),
		bloomfilter.New(bloomfilter.DefaultFalsePositiveRate),
		baseline.Radix{},
		baseline.BTree{},
		baseline.GoMap{},
	}
}

// Default returns a registry of Adapters.
func Default() *csf.Registry {
	r, err := csf.NewRegistry(Adapters()...)
	if err != nil {
		panic(err)
	}
	return r
}
