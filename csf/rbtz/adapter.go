package rbtz

import (
	"context"

	"csfbench/csf"
	"csfbench/csf/packed"
	"csfbench/errutil"
	"csfbench/utils"
)

// Adapter stores values in build order next to a Table.
type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

func (*Adapter) Name() string   { return "rbtz" }
func (*Adapter) Mode() csf.Mode { return csf.ModeFunction }
func (*Adapter) Params() string { return "hash=xxh3 bucket=4" }

func (*Adapter) Build(_ context.Context, keys, values []uint64) (csf.Structure, error) {
	t, err := Build(keys)
	if err != nil {
		return nil, csf.Constructionf("rbtz: %v", err)
	}
	return &Function{table: t, values: packed.Pack(values)}, nil
}

type Function struct {
	table  *Table
	values *packed.Array
}

func (f *Function) Query(key uint64) (uint64, bool) {
	i := int(f.table.Lookup(key))
	if i >= f.values.Len() {
		return 0, false
	}
	return f.values.Get(i), true
}

// QueryLevels is always two: level0 picks the seed, level1 the slot.
func (f *Function) QueryLevels(uint64) int { return 2 }

// tableBytes is the length of the serialized table.
func (f *Function) tableBytes() uint64 {
	data, err := f.table.Serialize()
	errutil.FatalIf(err)
	return uint64(len(data))
}

func (f *Function) SizeInBits() uint64 {
	return f.tableBytes()*8 + f.values.SizeInBits()
}

func (f *Function) MemDetailed() utils.MemReport {
	return utils.NewMemReport("rbtz",
		utils.Leaf("level0", 8+uint64(len(f.table.level0))*4),
		utils.Leaf("level1", 8+uint64(len(f.table.level1))*4),
		f.values.MemDetailed(),
	)
}
