package fdata

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

// Profile is the parsed content of an fdata file, keyed by function name.
//
// A profile is populated by a single Reader pass and is read-only afterwards. Concurrent
// readers are safe as long as nobody bumps, appends or merges into it.
type Profile struct {
	Branches   map[string]*FuncBranchData
	Samples    map[string]*FuncSampleData
	Mem        map[string]*FuncMemData
	EventNames map[string]struct{}

	// NoLBR is set when the profile holds flat samples instead of LBR edges.
	NoLBR bool

	ltoBranches map[string][]*FuncBranchData
	ltoMem      map[string][]*FuncMemData
}

func NewProfile() *Profile {
	return &Profile{
		Branches:   make(map[string]*FuncBranchData),
		Samples:    make(map[string]*FuncSampleData),
		Mem:        make(map[string]*FuncMemData),
		EventNames: make(map[string]struct{}),
	}
}

////////////////////////////////////////////////////////////////////////////////

func (p *Profile) branchEntry(name string) *FuncBranchData {
	d, ok := p.Branches[name]
	if !ok {
		d = NewFuncBranchData(name)
		p.Branches[name] = d
	}
	return d
}

func (p *Profile) memEntry(name string) *FuncMemData {
	d, ok := p.Mem[name]
	if !ok {
		d = NewFuncMemData(name)
		p.Mem[name] = d
	}
	return d
}

func (p *Profile) sampleEntry(name string) *FuncSampleData {
	d, ok := p.Samples[name]
	if !ok {
		d = NewFuncSampleData(name)
		p.Samples[name] = d
	}
	return d
}

// addBranch routes a parsed edge into the containers of the functions it touches.
// Edges between two unknown locations are dropped and false is returned.
func (p *Profile) addBranch(bi BranchInfo) bool {
	if !bi.From.IsSymbol && !bi.To.IsSymbol {
		return false
	}

	p.branchEntry(bi.From.Name).addBranch(bi)

	// Calls to another function and branches to the entry point (including recursive
	// calls) also describe how the destination is entered.
	if bi.To.IsSymbol && (bi.From.Name != bi.To.Name || bi.To.Offset == 0) {
		p.branchEntry(bi.To.Name).addEntry(bi)
	}

	// Tail recursion cannot be told apart from other branches to the function start,
	// so the execution count may be skewed.
	if bi.To.IsSymbol && bi.To.Offset == 0 {
		p.branchEntry(bi.To.Name).ExecutionCount += bi.Branches
	}
	return true
}

func (p *Profile) addMem(mi MemInfo) bool {
	if !mi.Offset.IsSymbol {
		return false
	}
	p.memEntry(mi.Offset.Name).add(mi)
	return true
}

func (p *Profile) addSample(si SampleInfo) bool {
	if !si.Loc.IsSymbol {
		return false
	}
	p.sampleEntry(si.Loc.Name).add(si)
	return true
}

func (p *Profile) addEvent(name string) {
	p.EventNames[name] = struct{}{}
}

// Finalize sorts every container and builds the LTO lookup tables.
// It must be called again after any later modification.
func (p *Profile) Finalize() {
	for _, d := range p.Branches {
		d.Finalize()
	}
	for _, d := range p.Mem {
		d.Finalize()
	}
	for _, d := range p.Samples {
		d.Finalize()
	}
	p.buildLTONameMaps()
}

// MergeFrom adds all records of other to p. Counts of identical records are summed.
// Profiles collected in different modes cannot be merged.
func (p *Profile) MergeFrom(other *Profile) error {
	if p.NoLBR != other.NoLBR {
		return errors.New("fdata: cannot merge LBR and no-LBR profiles")
	}

	for _, name := range sortedKeys(other.Branches) {
		src := other.Branches[name]
		dst := p.branchEntry(name)
		for _, bi := range src.Data {
			dst.addBranch(bi)
		}
		for _, bi := range src.EntryData {
			dst.addEntry(bi)
		}
		dst.ExecutionCount += src.ExecutionCount
	}
	for _, name := range sortedKeys(other.Mem) {
		dst := p.memEntry(name)
		for _, mi := range other.Mem[name].Data {
			dst.add(mi)
		}
	}
	for _, name := range sortedKeys(other.Samples) {
		dst := p.sampleEntry(name)
		for _, si := range other.Samples[name].Data {
			dst.add(si)
		}
	}
	for event := range other.EventNames {
		p.addEvent(event)
	}

	p.Finalize()
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// normalizeName replaces spaces, which cannot appear in fdata names.
func normalizeName(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

func lookup[T any](m map[string]*T, names []string) (*T, error) {
	// The profile name is more likely to match names at the end of the list.
	for i := len(names) - 1; i >= 0; i-- {
		if d, ok := m[normalizeName(names[i])]; ok {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

// GetFuncBranchData returns branch data matching one of names.
func (p *Profile) GetFuncBranchData(names []string) (*FuncBranchData, error) {
	return lookup(p.Branches, names)
}

// GetFuncMemData returns memory events matching one of names.
func (p *Profile) GetFuncMemData(names []string) (*FuncMemData, error) {
	return lookup(p.Mem, names)
}

// GetFuncSampleData returns samples matching one of names.
func (p *Profile) GetFuncSampleData(names []string) (*FuncSampleData, error) {
	return lookup(p.Samples, names)
}

// HasLocalsWithFileName reports whether the profile has an entry for a local function
// qualified with its file name, e.g. "t2.c/func/1".
func (p *Profile) HasLocalsWithFileName() bool {
	isLocal := func(name string) bool {
		return strings.Count(name, "/") == 2 && !strings.HasPrefix(name, "/")
	}
	for name := range p.Branches {
		if isLocal(name) {
			return true
		}
	}
	for name := range p.Samples {
		if isLocal(name) {
			return true
		}
	}
	for name := range p.Mem {
		if isLocal(name) {
			return true
		}
	}
	return false
}

// UsesEvent reports whether an event containing name was used to collect the profile.
func (p *Profile) UsesEvent(name string) bool {
	for event := range p.EventNames {
		if strings.Contains(event, name) {
			return true
		}
	}
	return false
}

// HasLBR returns false only for profiles collected without LBR.
func (p *Profile) HasLBR() bool {
	return !p.NoLBR
}

func (p *Profile) SortedEventNames() []string {
	return sortedKeys(p.EventNames)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

////////////////////////////////////////////////////////////////////////////////

type Stats struct {
	BranchFunctions int
	MemFunctions    int
	SampleFunctions int

	BranchRecords int
	EntryRecords  int
	MemRecords    int
	SampleRecords int

	TotalBranches  int64
	TotalMispreds  int64
	TotalMemEvents uint64
	TotalSamples   int64
}

func (p *Profile) Stats() Stats {
	s := Stats{
		BranchFunctions: len(p.Branches),
		MemFunctions:    len(p.Mem),
		SampleFunctions: len(p.Samples),
	}
	for _, d := range p.Branches {
		s.BranchRecords += len(d.Data)
		s.EntryRecords += len(d.EntryData)
		for i := range d.Data {
			s.TotalBranches += d.Data[i].Branches
			s.TotalMispreds += d.Data[i].Mispreds
		}
	}
	for _, d := range p.Mem {
		s.MemRecords += len(d.Data)
		s.TotalMemEvents += d.TotalCount()
	}
	for _, d := range p.Samples {
		s.SampleRecords += len(d.Data)
		s.TotalSamples += d.TotalHits()
	}
	return s
}
