package pprofexport

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/pprof/profile"
	"golang.org/x/exp/maps"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

////////////////////////////////////////////////////////////////////////////////

// Convert builds a pprof profile from p.
//
// LBR edges become two-frame samples (the source location calls the destination), so
// the pprof graph view shows the branch graph. Flat samples become one-frame samples.
// Memory events are stored under a separate sample type, with the accessed address as
// the leaf frame.
func Convert(p *fdata.Profile) (*profile.Profile, error) {
	b := newBuilder()

	if p.HasLBR() {
		b.prof.SampleType = []*profile.ValueType{
			{Type: "branches", Unit: "count"},
			{Type: "mispredicts", Unit: "count"},
			{Type: "mem-loads", Unit: "count"},
		}
		b.prof.DefaultSampleType = "branches"

		for _, name := range sortedKeys(p.Branches) {
			for _, bi := range p.Branches[name].Data {
				kind := "branch"
				if bi.From.Name != bi.To.Name {
					kind = "call"
				}
				b.addSample(
					[]fdata.Location{bi.To, bi.From},
					[]int64{bi.Branches, bi.Mispreds, 0},
					kind,
				)
			}
		}
	} else {
		b.prof.SampleType = []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "mem-loads", Unit: "count"},
		}
		b.prof.DefaultSampleType = "samples"

		for _, name := range sortedKeys(p.Samples) {
			for _, si := range p.Samples[name].Data {
				b.addSample([]fdata.Location{si.Loc}, []int64{si.Hits, 0}, "sample")
			}
		}
		for _, event := range p.SortedEventNames() {
			b.prof.Comments = append(b.prof.Comments, "event: "+event)
		}
	}

	memIndex := len(b.prof.SampleType) - 1
	for _, name := range sortedKeys(p.Mem) {
		for _, mi := range p.Mem[name].Data {
			values := make([]int64, len(b.prof.SampleType))
			values[memIndex] = int64(mi.Count)
			b.addSample([]fdata.Location{mi.Addr, mi.Offset}, values, "mem")
		}
	}

	if err := b.prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("failed to build pprof profile: %w", err)
	}
	return b.prof, nil
}

// Write converts p and writes it in the gzipped pprof wire format.
func Write(w io.Writer, p *fdata.Profile) error {
	prof, err := Convert(p)
	if err != nil {
		return err
	}
	return prof.Write(w)
}

////////////////////////////////////////////////////////////////////////////////

type builder struct {
	prof      *profile.Profile
	functions map[string]*profile.Function
	mappings  map[string]*profile.Mapping
	locations map[fdata.Location]*profile.Location
}

func newBuilder() *builder {
	return &builder{
		prof:      &profile.Profile{},
		functions: make(map[string]*profile.Function),
		mappings:  make(map[string]*profile.Mapping),
		locations: make(map[fdata.Location]*profile.Location),
	}
}

func (b *builder) addSample(stack []fdata.Location, values []int64, kind string) {
	sample := &profile.Sample{
		Value: values,
		Label: map[string][]string{"kind": {kind}},
	}
	for _, loc := range stack {
		sample.Location = append(sample.Location, b.location(loc))
	}
	b.prof.Sample = append(b.prof.Sample, sample)
}

func (b *builder) location(loc fdata.Location) *profile.Location {
	if l, ok := b.locations[loc]; ok {
		return l
	}

	l := &profile.Location{
		ID:      uint64(len(b.prof.Location) + 1),
		Address: loc.Offset,
	}
	if loc.IsSymbol {
		l.Line = []profile.Line{{Function: b.function(loc.Name)}}
	} else {
		l.Mapping = b.mapping(loc.Name)
	}

	b.locations[loc] = l
	b.prof.Location = append(b.prof.Location, l)
	return l
}

func (b *builder) function(name string) *profile.Function {
	if f, ok := b.functions[name]; ok {
		return f
	}
	f := &profile.Function{
		ID:         uint64(len(b.prof.Function) + 1),
		Name:       name,
		SystemName: name,
	}
	b.functions[name] = f
	b.prof.Function = append(b.prof.Function, f)
	return f
}

func (b *builder) mapping(file string) *profile.Mapping {
	if m, ok := b.mappings[file]; ok {
		return m
	}
	m := &profile.Mapping{
		ID:   uint64(len(b.prof.Mapping) + 1),
		File: file,
	}
	b.mappings[file] = m
	b.prof.Mapping = append(b.prof.Mapping, m)
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
