package fdata

import (
	"slices"
)

type memKey struct {
	offset uint64
	addr   Location
}

// FuncMemData stores memory load events recorded in the address space of one
// function. Aggregation works the same way as in FuncBranchData.
type FuncMemData struct {
	Name string
	Data []MemInfo

	// Set by consumers once the data was used.
	Used bool

	eventIndex map[memKey]int
	sorted     bool
}

func NewFuncMemData(name string) *FuncMemData {
	return &FuncMemData{
		Name:       name,
		eventIndex: make(map[memKey]int),
		sorted:     true,
	}
}

// NewFuncMemDataFrom builds a finalized container from existing records.
func NewFuncMemDataFrom(name string, data []MemInfo) *FuncMemData {
	d := &FuncMemData{Name: name, Data: data}
	d.Finalize()
	return d
}

// Update records one load from addr by the instruction at offset.
// Events with the same offset and address are coalesced.
func (d *FuncMemData) Update(offset Location, addr Location) {
	d.add(MemInfo{Offset: offset, Addr: addr, Count: 1})
}

func (d *FuncMemData) add(mi MemInfo) {
	if d.eventIndex == nil {
		d.rebuildIndex()
	}
	key := memKey{offset: mi.Offset.Offset, addr: mi.Addr}
	if pos, ok := d.eventIndex[key]; ok {
		d.Data[pos].MergeWith(&mi)
		return
	}
	d.Data = append(d.Data, mi)
	d.eventIndex[key] = len(d.Data) - 1
	d.sorted = false
}

func (d *FuncMemData) Finalize() {
	slices.SortStableFunc(d.Data, func(a, b MemInfo) int {
		return a.Compare(&b)
	})
	d.rebuildIndex()
	d.sorted = true
}

func (d *FuncMemData) Finalized() bool {
	return d.sorted
}

func (d *FuncMemData) rebuildIndex() {
	d.eventIndex = make(map[memKey]int, len(d.Data))
	n := 0
	for i := range d.Data {
		mi := d.Data[i]
		key := memKey{offset: mi.Offset.Offset, addr: mi.Addr}
		if pos, ok := d.eventIndex[key]; ok {
			d.Data[pos].MergeWith(&mi)
			continue
		}
		d.Data[n] = mi
		d.eventIndex[key] = n
		n++
	}
	d.Data = d.Data[:n]
}

// GetMemInfoRange returns all memory events originating at offset, in sorted order.
// The returned slice aliases the container and must not be modified.
func (d *FuncMemData) GetMemInfoRange(offset uint64) []MemInfo {
	if !d.sorted {
		d.Finalize()
	}
	target := Location{IsSymbol: true, Name: d.Name, Offset: offset}
	lo, _ := slices.BinarySearchFunc(d.Data, target, func(mi MemInfo, l Location) int {
		return mi.Offset.Compare(l)
	})
	hi := lo
	for hi < len(d.Data) && d.Data[hi].Offset.Compare(target) == 0 {
		hi++
	}
	return d.Data[lo:hi:hi]
}

// AppendFrom appends memory events of other, whose code is located offset bytes away
// from the entry of this function.
func (d *FuncMemData) AppendFrom(other *FuncMemData, offset uint64) {
	for _, mi := range other.Data {
		if mi.Offset.Name == other.Name {
			mi.Offset.Name = d.Name
			mi.Offset.Offset += offset
		}
		d.Data = append(d.Data, mi)
	}
	d.Finalize()
}

func (d *FuncMemData) TotalCount() uint64 {
	var total uint64
	for i := range d.Data {
		total += d.Data[i].Count
	}
	return total
}
