package fdata

import (
	"slices"
)

type intraKey struct {
	from uint64
	to   uint64
}

type interKey struct {
	from uint64
	to   Location
}

type entryKey struct {
	from Location
	to   uint64
}

// FuncBranchData holds all edges recorded for one function.
//
// Data contains edges whose source lies in the function, EntryData contains edges
// entering the function from outside (calls, jumps and recursive calls to the entry).
//
// A container goes through two phases. While aggregating, records are appended and
// found through hash indices that store positions in Data/EntryData. Finalize sorts
// the records and rebuilds the indices, so the positions stay valid in both phases.
// Range queries need sorted records and finalize the container on demand.
type FuncBranchData struct {
	Name      string
	Data      []BranchInfo
	EntryData []BranchInfo

	// Total execution count for the function.
	ExecutionCount int64

	// Set by consumers once the data was used.
	Used bool

	intraIndex   map[intraKey]int
	interIndex   map[interKey]int
	foreignIndex map[LocationPair]int
	entryIndex   map[entryKey]int
	sorted       bool
}

func NewFuncBranchData(name string) *FuncBranchData {
	d := &FuncBranchData{Name: name}
	d.resetIndex()
	d.sorted = true
	return d
}

// NewFuncBranchDataFrom builds a finalized container from existing records.
// Duplicate edges are merged.
func NewFuncBranchDataFrom(name string, data []BranchInfo, entryData []BranchInfo) *FuncBranchData {
	d := &FuncBranchData{
		Name:      name,
		Data:      data,
		EntryData: entryData,
	}
	d.Finalize()
	return d
}

////////////////////////////////////////////////////////////////////////////////

// BumpBranchCount records one execution of the intra-function edge from -> to.
func (d *FuncBranchData) BumpBranchCount(from uint64, to uint64, mispred bool) {
	d.addBranch(BranchInfo{
		From:     d.location(from),
		To:       d.location(to),
		Mispreds: int64(boolToInt(mispred)),
		Branches: 1,
	})
}

// BumpCallCount records one execution of an edge leaving the function at from.
func (d *FuncBranchData) BumpCallCount(from uint64, to Location, mispred bool) {
	d.addBranch(BranchInfo{
		From:     d.location(from),
		To:       to,
		Mispreds: int64(boolToInt(mispred)),
		Branches: 1,
	})
}

// BumpEntryCount records one execution of an edge entering the function at to.
func (d *FuncBranchData) BumpEntryCount(from Location, to uint64, mispred bool) {
	d.addEntry(BranchInfo{
		From:     from,
		To:       d.location(to),
		Mispreds: int64(boolToInt(mispred)),
		Branches: 1,
	})
}

func (d *FuncBranchData) addBranch(bi BranchInfo) {
	d.ensureIndex()
	if pos, ok := d.findData(&bi); ok {
		d.Data[pos].MergeWith(&bi)
		return
	}
	d.Data = append(d.Data, bi)
	d.indexData(len(d.Data) - 1)
	d.sorted = false
}

func (d *FuncBranchData) addEntry(bi BranchInfo) {
	d.ensureIndex()
	key := entryKey{from: bi.From, to: bi.To.Offset}
	if pos, ok := d.entryIndex[key]; ok {
		d.EntryData[pos].MergeWith(&bi)
		return
	}
	d.EntryData = append(d.EntryData, bi)
	d.entryIndex[key] = len(d.EntryData) - 1
	d.sorted = false
}

////////////////////////////////////////////////////////////////////////////////

// Finalize sorts the records and rebuilds the aggregation indices.
// Records with identical keys are merged.
func (d *FuncBranchData) Finalize() {
	slices.SortStableFunc(d.Data, func(a, b BranchInfo) int {
		return a.Compare(&b)
	})
	slices.SortStableFunc(d.EntryData, func(a, b BranchInfo) int {
		return a.Compare(&b)
	})
	d.rebuildIndex()
	d.sorted = true
}

func (d *FuncBranchData) Finalized() bool {
	return d.sorted
}

func (d *FuncBranchData) ensureSorted() {
	if !d.sorted {
		d.Finalize()
	}
}

func (d *FuncBranchData) ensureIndex() {
	if d.intraIndex == nil {
		d.rebuildIndex()
	}
}

func (d *FuncBranchData) resetIndex() {
	d.intraIndex = make(map[intraKey]int)
	d.interIndex = make(map[interKey]int)
	d.foreignIndex = make(map[LocationPair]int)
	d.entryIndex = make(map[entryKey]int)
}

func (d *FuncBranchData) rebuildIndex() {
	d.resetIndex()

	n := 0
	for i := range d.Data {
		if pos, ok := d.findData(&d.Data[i]); ok {
			d.Data[pos].MergeWith(&d.Data[i])
			continue
		}
		d.Data[n] = d.Data[i]
		d.indexData(n)
		n++
	}
	d.Data = d.Data[:n]

	n = 0
	for i := range d.EntryData {
		bi := d.EntryData[i]
		key := entryKey{from: bi.From, to: bi.To.Offset}
		if pos, ok := d.entryIndex[key]; ok {
			d.EntryData[pos].MergeWith(&bi)
			continue
		}
		d.EntryData[n] = bi
		d.entryIndex[key] = n
		n++
	}
	d.EntryData = d.EntryData[:n]
}

func (d *FuncBranchData) owns(l Location) bool {
	return l.IsSymbol && l.Name == d.Name
}

func (d *FuncBranchData) findData(bi *BranchInfo) (pos int, ok bool) {
	switch {
	case d.owns(bi.From) && d.owns(bi.To):
		pos, ok = d.intraIndex[intraKey{from: bi.From.Offset, to: bi.To.Offset}]
	case d.owns(bi.From):
		pos, ok = d.interIndex[interKey{from: bi.From.Offset, to: bi.To}]
	default:
		pos, ok = d.foreignIndex[LocationPair{From: bi.From, To: bi.To}]
	}
	return
}

func (d *FuncBranchData) indexData(pos int) {
	bi := &d.Data[pos]
	switch {
	case d.owns(bi.From) && d.owns(bi.To):
		d.intraIndex[intraKey{from: bi.From.Offset, to: bi.To.Offset}] = pos
	case d.owns(bi.From):
		d.interIndex[interKey{from: bi.From.Offset, to: bi.To}] = pos
	default:
		d.foreignIndex[LocationPair{From: bi.From, To: bi.To}] = pos
	}
}

func (d *FuncBranchData) location(offset uint64) Location {
	return Location{IsSymbol: true, Name: d.Name, Offset: offset}
}

////////////////////////////////////////////////////////////////////////////////

// GetBranch returns the intra-function edge from -> to.
func (d *FuncBranchData) GetBranch(from uint64, to uint64) (BranchInfo, error) {
	d.ensureIndex()
	pos, ok := d.intraIndex[intraKey{from: from, to: to}]
	if !ok {
		return BranchInfo{}, ErrNotFound
	}
	return d.Data[pos], nil
}

// GetDirectCallBranch returns the edge leaving the function at offset from.
// If from is an indirect call site with several targets, which one is returned is unspecified.
func (d *FuncBranchData) GetDirectCallBranch(from uint64) (BranchInfo, error) {
	for _, bi := range d.GetBranchRange(from) {
		if bi.From.Name != bi.To.Name {
			return bi, nil
		}
	}
	return BranchInfo{}, ErrNotFound
}

// GetBranchRange returns all edges originating at offset from, in sorted order.
// The returned slice aliases the container and must not be modified.
func (d *FuncBranchData) GetBranchRange(from uint64) []BranchInfo {
	d.ensureSorted()
	target := d.location(from)
	lo, _ := slices.BinarySearchFunc(d.Data, target, func(bi BranchInfo, l Location) int {
		return bi.From.Compare(l)
	})
	hi := lo
	for hi < len(d.Data) && d.Data[hi].From.Compare(target) == 0 {
		hi++
	}
	return d.Data[lo:hi:hi]
}

// AppendFrom appends branch data of other, whose code is located offset bytes away from
// the entry of this function. Locations of other are renamed and shifted by offset.
func (d *FuncBranchData) AppendFrom(other *FuncBranchData, offset uint64) {
	for _, bi := range other.Data {
		if bi.From.Name == other.Name {
			bi.From.Name = d.Name
			bi.From.Offset += offset
		}
		if bi.To.Name == other.Name {
			bi.To.Name = d.Name
			bi.To.Offset += offset
		}
		d.Data = append(d.Data, bi)
	}

	d.ExecutionCount += other.ExecutionCount

	for _, bi := range other.EntryData {
		bi.To.Name = d.Name
		bi.To.Offset += offset
		d.EntryData = append(d.EntryData, bi)
	}

	d.Finalize()
}

// TotalBranches sums branch counts over Data.
func (d *FuncBranchData) TotalBranches() int64 {
	var total int64
	for i := range d.Data {
		total += d.Data[i].Branches
	}
	return total
}
