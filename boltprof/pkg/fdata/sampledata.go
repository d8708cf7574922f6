package fdata

import (
	"slices"
	"sort"
)

// FuncSampleData stores instruction pointer samples recorded in the address space of
// one function. It is the no-LBR analogue of FuncBranchData.
type FuncSampleData struct {
	Name string
	Data []SampleInfo

	index  map[uint64]int
	sorted bool
}

func NewFuncSampleData(name string) *FuncSampleData {
	return &FuncSampleData{
		Name:   name,
		index:  make(map[uint64]int),
		sorted: true,
	}
}

// NewFuncSampleDataFrom builds a finalized container from existing records.
func NewFuncSampleDataFrom(name string, data []SampleInfo) *FuncSampleData {
	d := &FuncSampleData{Name: name, Data: data}
	d.Finalize()
	return d
}

// BumpCount records one sample at offset.
func (d *FuncSampleData) BumpCount(offset uint64) {
	d.add(SampleInfo{
		Loc:  Location{IsSymbol: true, Name: d.Name, Offset: offset},
		Hits: 1,
	})
}

func (d *FuncSampleData) add(si SampleInfo) {
	if d.index == nil {
		d.rebuildIndex()
	}
	if pos, ok := d.index[si.Loc.Offset]; ok {
		d.Data[pos].MergeWith(&si)
		return
	}
	d.Data = append(d.Data, si)
	d.index[si.Loc.Offset] = len(d.Data) - 1
	d.sorted = false
}

func (d *FuncSampleData) Finalize() {
	slices.SortStableFunc(d.Data, func(a, b SampleInfo) int {
		return a.Compare(&b)
	})
	d.rebuildIndex()
	d.sorted = true
}

func (d *FuncSampleData) Finalized() bool {
	return d.sorted
}

func (d *FuncSampleData) rebuildIndex() {
	d.index = make(map[uint64]int, len(d.Data))
	n := 0
	for i := range d.Data {
		si := d.Data[i]
		if pos, ok := d.index[si.Loc.Offset]; ok {
			d.Data[pos].MergeWith(&si)
			continue
		}
		d.Data[n] = si
		d.index[si.Loc.Offset] = n
		n++
	}
	d.Data = d.Data[:n]
}

// GetSamples returns the number of samples recorded in [start, end).
func (d *FuncSampleData) GetSamples(start uint64, end uint64) int64 {
	if !d.sorted {
		d.Finalize()
	}
	lo := sort.Search(len(d.Data), func(i int) bool {
		return d.Data[i].Loc.Offset >= start
	})
	var result int64
	for i := lo; i < len(d.Data) && d.Data[i].Loc.Offset < end; i++ {
		result += d.Data[i].Hits
	}
	return result
}

// AppendFrom appends samples of other, whose code is located offset bytes away from
// the entry of this function.
func (d *FuncSampleData) AppendFrom(other *FuncSampleData, offset uint64) {
	for _, si := range other.Data {
		if si.Loc.Name == other.Name {
			si.Loc.Name = d.Name
			si.Loc.Offset += offset
		}
		d.Data = append(d.Data, si)
	}
	d.Finalize()
}

func (d *FuncSampleData) TotalHits() int64 {
	var total int64
	for i := range d.Data {
		total += d.Data[i].Hits
	}
	return total
}
